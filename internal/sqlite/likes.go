package sqlite

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/adityarao312/feednest/internal/feednest"
)

const likeNamespace = "-lk"

// Likes are link rows rather than arrays on the user record, so toggling one
// never clobbers a concurrent unrelated update.

func (r Repo) LikeItem(ctx context.Context, userID, itemID string) error {
	const q = `INSERT OR IGNORE INTO liked_items (id, user_id, item_id) VALUES (?, ?, ?);`

	id := uuid.NewString() + likeNamespace
	if _, err := r.db.ExecContext(ctx, q, id, userID, itemID); err != nil {
		return fmt.Errorf("error liking item: %s", err)
	}

	return nil
}

func (r Repo) UnlikeItem(ctx context.Context, userID, itemID string) error {
	const q = `DELETE FROM liked_items WHERE user_id = ? AND item_id = ?;`

	if _, err := r.db.ExecContext(ctx, q, userID, itemID); err != nil {
		return fmt.Errorf("error unliking item: %s", err)
	}

	return nil
}

func (r Repo) LikedItems(ctx context.Context, userID string) ([]feednest.Item, error) {
	const q = `SELECT fi.* FROM feed_items fi
	INNER JOIN liked_items li ON li.item_id = fi.id
	WHERE li.user_id = ?
	ORDER BY li.created_at DESC;`

	var items []feednest.Item
	if err := r.db.SelectContext(ctx, &items, q, userID); err != nil {
		return nil, fmt.Errorf("error selecting liked items: %s", err)
	}

	return items, nil
}

func (r Repo) LikeFeed(ctx context.Context, userID, feedID string) error {
	const q = `INSERT OR IGNORE INTO liked_feeds (id, user_id, feed_id) VALUES (?, ?, ?);`

	id := uuid.NewString() + likeNamespace
	if _, err := r.db.ExecContext(ctx, q, id, userID, feedID); err != nil {
		return fmt.Errorf("error liking feed: %s", err)
	}

	return nil
}

func (r Repo) UnlikeFeed(ctx context.Context, userID, feedID string) error {
	const q = `DELETE FROM liked_feeds WHERE user_id = ? AND feed_id = ?;`

	if _, err := r.db.ExecContext(ctx, q, userID, feedID); err != nil {
		return fmt.Errorf("error unliking feed: %s", err)
	}

	return nil
}

func (r Repo) LikedFeeds(ctx context.Context, userID string) ([]feednest.Feed, error) {
	const q = `SELECT f.* FROM feeds f
	INNER JOIN liked_feeds lf ON lf.feed_id = f.id
	WHERE lf.user_id = ?
	ORDER BY lf.created_at DESC;`

	var feeds []feednest.Feed
	if err := r.db.SelectContext(ctx, &feeds, q, userID); err != nil {
		return nil, fmt.Errorf("error selecting liked feeds: %s", err)
	}

	return feeds, nil
}
