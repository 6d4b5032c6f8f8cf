// Package feednest holds the domain types shared between the storage,
// sync, and API layers.
package feednest

import "errors"

var (
	ErrConflict = errors.New("resource already exists")
	ErrNotFound = errors.New("resource not found")
)

// Repository is the full storage surface the application is wired with.
type Repository interface {
	UserService
	FeedService
	ItemService
}
