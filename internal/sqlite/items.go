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

const itemNamespace = "-itm"

func (r Repo) Item(ctx context.Context, id string) (feednest.Item, error) {
	const q = `SELECT * FROM feed_items WHERE id = ?;`

	var item feednest.Item
	err := r.db.GetContext(ctx, &item, q, id)
	if errors.Is(err, sql.ErrNoRows) {
		return feednest.Item{}, feednest.ErrNotFound
	}
	if err != nil {
		return feednest.Item{}, fmt.Errorf("error fetching item: %s", err)
	}

	return item, nil
}

// InsertItems persists the items not already present by their
// (feed_id, title, url) dedup key and returns the ones actually created.
//
// Each item is inserted on its own so one bad entry can't sink the batch; a
// conflict on the dedup key means the item is already stored and is silently
// skipped, which also makes the check-then-insert race between two concurrent
// syncs of the same feed safe. Errors are aggregated, not fail-fast.
func (r Repo) InsertItems(ctx context.Context, items []feednest.Item) ([]feednest.Item, error) {
	const q = `INSERT INTO feed_items (id, feed_id, title, url, thumbnail_url, content, creator, published_at, fetched_at, has_read, added_for)
	VALUES (:id, :feed_id, :title, :url, :thumbnail_url, :content, :creator, :published_at, :fetched_at, :has_read, :added_for)
	ON CONFLICT (feed_id, title, url) DO NOTHING;`

	var (
		created []feednest.Item
		errs    []error
	)
	for i := range items {
		items[i].ID = uuid.NewString() + itemNamespace

		res, err := r.db.NamedExecContext(ctx, q, items[i])
		if err != nil {
			errs = append(errs, fmt.Errorf("error inserting item %q: %s", items[i].Title, err))
			continue
		}
		if n, err := res.RowsAffected(); err == nil && n > 0 {
			created = append(created, items[i])
		}
	}

	return created, errors.Join(errs...)
}

func (r Repo) UserItems(ctx context.Context, userID string, args feednest.ListItemsArgs) ([]feednest.Item, error) {
	q := sq.Select("fi.*").
		From("feed_items fi").
		Join("subscriptions subs ON subs.feed_id = fi.feed_id").
		Where(sq.Eq{"subs.user_id": userID}).
		OrderBy("fi.published_at DESC")
	if args.FeedID != "" {
		q = q.Where(sq.Eq{"fi.feed_id": args.FeedID})
	}
	if args.Limit > 0 {
		q = q.Limit(args.Limit)
	}
	if args.Offset > 0 {
		q = q.Offset(args.Offset)
	}

	query, qArgs, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("error constructing sql: %s", err)
	}

	var items []feednest.Item
	if err := r.db.SelectContext(ctx, &items, query, qArgs...); err != nil {
		return nil, fmt.Errorf("error selecting user items: %s", err)
	}

	return items, nil
}

func (r Repo) CountUserItems(ctx context.Context, userID string, args feednest.ListItemsArgs) (int, error) {
	q := sq.Select("COUNT(*)").
		From("feed_items fi").
		Join("subscriptions subs ON subs.feed_id = fi.feed_id").
		Where(sq.Eq{"subs.user_id": userID})
	if args.FeedID != "" {
		q = q.Where(sq.Eq{"fi.feed_id": args.FeedID})
	}

	query, qArgs, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("error constructing sql: %s", err)
	}

	var count int
	if err := r.db.GetContext(ctx, &count, query, qArgs...); err != nil {
		return 0, fmt.Errorf("error counting user items: %s", err)
	}

	return count, nil
}

func (r Repo) FeedItems(ctx context.Context, feedID string) ([]feednest.Item, error) {
	const q = `SELECT * FROM feed_items WHERE feed_id = ? ORDER BY published_at DESC;`

	var items []feednest.Item
	if err := r.db.SelectContext(ctx, &items, q, feedID); err != nil {
		return nil, fmt.Errorf("error selecting feed items: %s", err)
	}

	return items, nil
}

// MarkItemRead flags the item as read by the given user and stamps the open
// time, returning the updated record.
func (r Repo) MarkItemRead(ctx context.Context, id, userID string, openedAt time.Time) (feednest.Item, error) {
	const q = `UPDATE feed_items SET has_read = 1, read_by = ?, last_opened_at = ? WHERE id = ?;`

	res, err := r.db.ExecContext(ctx, q, userID, openedAt, id)
	if err != nil {
		return feednest.Item{}, fmt.Errorf("error marking item read: %s", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return feednest.Item{}, feednest.ErrNotFound
	}

	return r.Item(ctx, id)
}

// ReadItems returns the items the user has opened, most recently opened
// first.
func (r Repo) ReadItems(ctx context.Context, userID string) ([]feednest.Item, error) {
	const q = `SELECT * FROM feed_items WHERE read_by = ? ORDER BY last_opened_at DESC;`

	var items []feednest.Item
	if err := r.db.SelectContext(ctx, &items, q, userID); err != nil {
		return nil, fmt.Errorf("error selecting read items: %s", err)
	}

	return items, nil
}
