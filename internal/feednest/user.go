package feednest

import (
	"context"
	"time"
)

type UserService interface {
	InsertUser(ctx context.Context, username, email, passwordHash string) (User, error)
	User(ctx context.Context, id string) (User, error)
	UserByEmail(ctx context.Context, email string) (User, error)
	UpdateUser(ctx context.Context, id string, args UpdateUserArgs) error
	UpdateUserRefreshToken(ctx context.Context, id string, token *string) error
	DeleteUser(ctx context.Context, id string) error
}

type User struct {
	ID           string    `db:"id"`
	Username     string    `db:"username"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	FullName     string    `db:"full_name"`
	Gender       string    `db:"gender"`
	Age          *int      `db:"age"`
	AvatarURL    *string   `db:"avatar_url"`
	RefreshToken *string   `db:"refresh_token"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// Holds the optional fields for updating a user's profile. Zero values are
// left untouched.
type UpdateUserArgs struct {
	FullName     string
	Gender       string
	Age          *int
	AvatarURL    *string
	PasswordHash string
}
