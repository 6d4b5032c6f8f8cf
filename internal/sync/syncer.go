package sync

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"github.com/adityarao312/feednest/internal/feednest"
)

// How long a fetched feed counts as fresh. A feed synced within this window
// is skipped, so concurrent reads by different users don't hammer the remote.
const defaultFreshFor = time.Minute

// Syncer runs the fetch → parse → dedup-insert pipeline for feeds.
type Syncer struct {
	repo feednest.Repository

	// Tracks when each feed url was last synced by this process.
	recent   *lru.Cache[string, time.Time]
	freshFor time.Duration

	now func() time.Time
}

func NewSyncer(repo feednest.Repository) *Syncer {
	recent, _ := lru.New[string, time.Time](1024)

	return &Syncer{
		repo:     repo,
		recent:   recent,
		freshFor: defaultFreshFor,
		now:      time.Now,
	}
}

// SyncAll refreshes every feed the user subscribes to, fanning out one
// pipeline per feed and waiting for all of them to settle.
//
// A fetch or parse failure for one feed is logged and swallowed so a broken
// feed can't block the items of healthy ones: the caller may serve stale data
// for that feed. Only when every single feed fails does the failure surface.
func (s *Syncer) SyncAll(ctx context.Context, userID string) error {
	subs, err := s.repo.UserSubscriptions(ctx, userID)
	if err != nil {
		return fmt.Errorf("error fetching subscriptions to sync: %w", err)
	}

	var (
		g      = new(errgroup.Group)
		failed atomic.Int64
	)
	for _, sub := range subs {
		sub := sub
		g.Go(func() error {
			if err := s.SyncFeed(ctx, sub.FeedID, sub.URL, userID); err != nil {
				slog.Error("error syncing feed", "feed_id", sub.FeedID, "url", sub.URL, "error", err)
				failed.Add(1)
			}

			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if n := failed.Load(); n > 0 && n == int64(len(subs)) {
		return fmt.Errorf("all %d feeds failed to sync", n)
	}

	return nil
}

// SyncFeed runs one feed through the pipeline: fetch, parse, insert whatever
// the dedup key doesn't already hold, stamp the feed's last fetch.
//
// Re-running against an unchanged remote produces zero new items.
func (s *Syncer) SyncFeed(ctx context.Context, feedID, url, userID string) error {
	if last, ok := s.recent.Get(url); ok && s.now().Sub(last) < s.freshFor {
		return nil
	}

	raw, err := Fetch(ctx, url)
	if err != nil {
		return err
	}
	parsed, err := Parse(raw)
	if err != nil {
		return err
	}

	now := s.now().UTC()
	items := make([]feednest.Item, 0, len(parsed.Entries))
	for _, entry := range parsed.Entries {
		items = append(items, feednest.Item{
			FeedID:       feedID,
			Title:        entry.Title,
			URL:          entry.URL,
			ThumbnailURL: optional(entry.ThumbnailURL),
			Content:      optional(entry.Content),
			Creator:      entry.Creator,
			PublishedAt:  entry.PublishedAt,
			FetchedAt:    now,
			AddedFor:     userID,
		})
	}

	created, err := s.repo.InsertItems(ctx, items)
	if err != nil {
		// Per-entry failures: whatever made it in stays in.
		slog.Warn("some items failed to save", "feed_id", feedID, "saved", len(created), "error", err)
	}

	if err := s.repo.UpdateFeed(ctx, feedID, feednest.UpdateFeedArgs{LastFetchedAt: now}); err != nil {
		return fmt.Errorf("error stamping feed fetch time: %w", err)
	}
	s.recent.Add(url, s.now())

	return nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
