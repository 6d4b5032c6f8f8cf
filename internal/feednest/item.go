package feednest

import (
	"context"
	"time"
)

type (
	// Item is a single normalized entry fetched from a feed.
	//
	// The (feed_id, title, url) tuple is the dedup key: the storage layer
	// refuses to hold two items sharing it for the same feed.
	Item struct {
		ID           string     `db:"id"`
		FeedID       string     `db:"feed_id"`
		Title        string     `db:"title"`
		URL          string     `db:"url"`
		ThumbnailURL *string    `db:"thumbnail_url"`
		Content      *string    `db:"content"`
		Creator      string     `db:"creator"`
		PublishedAt  *time.Time `db:"published_at"`
		FetchedAt    time.Time  `db:"fetched_at"`
		HasRead      bool       `db:"has_read"`
		ReadBy       *string    `db:"read_by"`
		AddedFor     string     `db:"added_for"`
		LastOpenedAt *time.Time `db:"last_opened_at"`
		CreatedAt    time.Time  `db:"created_at"`
	}

	// ListItemsArgs narrows and pages the merged item listing.
	ListItemsArgs struct {
		FeedID string
		Limit  uint64
		Offset uint64
	}

	ItemService interface {
		Item(ctx context.Context, id string) (Item, error)
		// InsertItems persists the items that are not already present by
		// dedup key and returns the ones actually created. Entries are
		// handled independently: a failure on one does not stop the rest,
		// and the aggregated error is returned alongside any successes.
		InsertItems(ctx context.Context, items []Item) ([]Item, error)
		// UserItems returns the merged listing across every feed the user
		// subscribes to, newest published first.
		UserItems(ctx context.Context, userID string, args ListItemsArgs) ([]Item, error)
		CountUserItems(ctx context.Context, userID string, args ListItemsArgs) (int, error)
		FeedItems(ctx context.Context, feedID string) ([]Item, error)
		MarkItemRead(ctx context.Context, id, userID string, openedAt time.Time) (Item, error)

		LikeItem(ctx context.Context, userID, itemID string) error
		UnlikeItem(ctx context.Context, userID, itemID string) error
		LikedItems(ctx context.Context, userID string) ([]Item, error)
		LikeFeed(ctx context.Context, userID, feedID string) error
		UnlikeFeed(ctx context.Context, userID, feedID string) error
		LikedFeeds(ctx context.Context, userID string) ([]Feed, error)

		// ReadItems returns the items the user has opened, most recently
		// opened first. Feeds the read-history view.
		ReadItems(ctx context.Context, userID string) ([]Item, error)
	}
)
