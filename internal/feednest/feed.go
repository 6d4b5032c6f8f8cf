package feednest

import (
	"context"
	"time"
)

type (
	// Feed represents a single remote RSS/Atom source. Feeds are global:
	// adding an already-known URL only subscribes the user to the existing
	// record.
	Feed struct {
		ID            string     `db:"id"`
		Name          string     `db:"name"`
		URL           string     `db:"url"`
		Description   *string    `db:"description"`
		IconURL       *string    `db:"icon_url"`
		Favorite      bool       `db:"favorite"`
		AddedBy       string     `db:"added_by"`
		LastFetchedAt *time.Time `db:"last_fetched_at"`
		CreatedAt     time.Time  `db:"created_at"`
		UpdatedAt     time.Time  `db:"updated_at"`
	}

	// Subscription ties a user to a feed, carrying the source URL alongside
	// the id so syncing doesn't need a second lookup.
	Subscription struct {
		ID        string    `db:"id"`
		UserID    string    `db:"user_id"`
		FeedID    string    `db:"feed_id"`
		URL       string    `db:"url"`
		CreatedAt time.Time `db:"created_at"`
	}

	// Holds the optional fields for updating a feed.
	UpdateFeedArgs struct {
		Name          string
		Description   string
		IconURL       string
		LastFetchedAt time.Time
	}

	FeedService interface {
		Feed(ctx context.Context, id string) (Feed, error)
		FeedByURL(ctx context.Context, url string) (Feed, error)
		InsertFeed(ctx context.Context, feed Feed) (Feed, error)
		UpdateFeed(ctx context.Context, id string, args UpdateFeedArgs) error
		SetFeedFavorite(ctx context.Context, id string, favorite bool) error
		DeleteFeed(ctx context.Context, id string) error

		CreateSubscription(ctx context.Context, userID, feedID, url string) error
		DeleteSubscription(ctx context.Context, userID, feedID string) error
		UserSubscriptions(ctx context.Context, userID string) ([]Subscription, error)
	}
)
