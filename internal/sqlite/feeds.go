package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/adityarao312/feednest/internal/feednest"
)

const (
	feedNamespace         = "-fd"
	subscriptionNamespace = "-sub"
)

func (r Repo) Feed(ctx context.Context, id string) (feednest.Feed, error) {
	const q = `SELECT * FROM feeds WHERE id = ?;`

	var feed feednest.Feed
	err := r.db.GetContext(ctx, &feed, q, id)
	if errors.Is(err, sql.ErrNoRows) {
		return feednest.Feed{}, feednest.ErrNotFound
	}
	if err != nil {
		return feednest.Feed{}, fmt.Errorf("error fetching feed: %s", err)
	}

	return feed, nil
}

func (r Repo) FeedByURL(ctx context.Context, url string) (feednest.Feed, error) {
	const q = `SELECT * FROM feeds WHERE url = ?;`

	var feed feednest.Feed
	err := r.db.GetContext(ctx, &feed, q, url)
	if errors.Is(err, sql.ErrNoRows) {
		return feednest.Feed{}, feednest.ErrNotFound
	}
	if err != nil {
		return feednest.Feed{}, fmt.Errorf("error fetching feed: %s", err)
	}

	return feed, nil
}

func (r Repo) InsertFeed(ctx context.Context, feed feednest.Feed) (feednest.Feed, error) {
	const q = `INSERT INTO feeds (id, name, url, description, icon_url, added_by, last_fetched_at)
	VALUES (:id, :name, :url, :description, :icon_url, :added_by, :last_fetched_at);`

	feed.ID = uuid.NewString() + feedNamespace
	_, err := r.db.NamedExecContext(ctx, q, feed)
	if isUniqueViolation(err) {
		return feednest.Feed{}, fmt.Errorf("feed already exists: %w", feednest.ErrConflict)
	}
	if err != nil {
		return feednest.Feed{}, fmt.Errorf("error inserting feed: %s", err)
	}

	return r.Feed(ctx, feed.ID)
}

func (r Repo) UpdateFeed(ctx context.Context, id string, args feednest.UpdateFeedArgs) error {
	q := sq.Update("feeds")
	if args.Name != "" {
		q = q.Set("name", args.Name)
	}
	if args.Description != "" {
		q = q.Set("description", args.Description)
	}
	if args.IconURL != "" {
		q = q.Set("icon_url", args.IconURL)
	}
	if !args.LastFetchedAt.IsZero() {
		q = q.Set("last_fetched_at", args.LastFetchedAt)
	}
	q = q.Set("updated_at", time.Now().UTC())
	q = q.Where(sq.Eq{"id": id})

	query, qArgs, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("error constructing sql: %s", err)
	}
	_, err = r.db.ExecContext(ctx, query, qArgs...)
	if isUniqueViolation(err) {
		return fmt.Errorf("feed name already taken: %w", feednest.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("error executing feed update: %s", err)
	}

	return nil
}

func (r Repo) SetFeedFavorite(ctx context.Context, id string, favorite bool) error {
	const q = `UPDATE feeds SET favorite = ?, updated_at = ? WHERE id = ?;`

	res, err := r.db.ExecContext(ctx, q, favorite, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("error updating feed favorite: %s", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return feednest.ErrNotFound
	}

	return nil
}

// DeleteFeed removes the feed, its items, and every reference held to those
// items: liked-item rows of all likers, liked-feed rows, and subscriptions.
func (r Repo) DeleteFeed(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %s", err)
	}
	defer tx.Rollback()

	for _, q := range []string{
		`DELETE FROM liked_items WHERE item_id IN (SELECT id FROM feed_items WHERE feed_id = ?);`,
		`DELETE FROM feed_items WHERE feed_id = ?;`,
		`DELETE FROM liked_feeds WHERE feed_id = ?;`,
		`DELETE FROM subscriptions WHERE feed_id = ?;`,
		`DELETE FROM feeds WHERE id = ?;`,
	} {
		if _, err := tx.ExecContext(ctx, q, id); err != nil {
			return fmt.Errorf("error deleting feed: %s", err)
		}
	}

	return tx.Commit()
}

func (r Repo) CreateSubscription(ctx context.Context, userID, feedID, url string) error {
	const q = `INSERT OR IGNORE INTO subscriptions (id, user_id, feed_id, url) VALUES (?, ?, ?, ?);`

	id := uuid.NewString() + subscriptionNamespace
	if _, err := r.db.ExecContext(ctx, q, id, userID, feedID, url); err != nil {
		return fmt.Errorf("error creating subscription: %s", err)
	}

	return nil
}

func (r Repo) DeleteSubscription(ctx context.Context, userID, feedID string) error {
	const q = `DELETE FROM subscriptions WHERE user_id = ? AND feed_id = ?;`

	if _, err := r.db.ExecContext(ctx, q, userID, feedID); err != nil {
		return fmt.Errorf("error deleting subscription: %s", err)
	}

	return nil
}

func (r Repo) UserSubscriptions(ctx context.Context, userID string) ([]feednest.Subscription, error) {
	const q = `SELECT * FROM subscriptions WHERE user_id = ?;`

	var subs []feednest.Subscription
	if err := r.db.SelectContext(ctx, &subs, q, userID); err != nil {
		return nil, fmt.Errorf("error selecting subscriptions: %s", err)
	}

	return subs, nil
}
