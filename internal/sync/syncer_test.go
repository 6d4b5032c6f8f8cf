package sync

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adityarao312/feednest/internal/feednest"
	"github.com/adityarao312/feednest/internal/migrations"
	"github.com/adityarao312/feednest/internal/sqlite"
)

func newSyncerTest(t *testing.T) (*Syncer, sqlite.Repo) {
	t.Helper()

	dbx, err := sqlx.Open("sqlite", ":memory:")
	require.NoError(t, err)
	dbx.SetMaxOpenConns(1)
	t.Cleanup(func() { dbx.Close() })
	require.NoError(t, migrations.Run(dbx))

	repo := sqlite.New(dbx)
	syncer := NewSyncer(repo)
	// Disable the freshness window so back-to-back syncs hit the remote.
	syncer.freshFor = 0

	return syncer, repo
}

func feedServer(t *testing.T, body string) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/atom+xml")
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	return srv
}

func TestSyncFeed_Idempotent(t *testing.T) {
	var (
		ctx          = context.Background()
		syncer, repo = newSyncerTest(t)
		srv          = feedServer(t, testAtomMediaFeed)
	)

	usr, err := repo.InsertUser(ctx, "alice", "alice@example.com", "hash")
	require.NoError(t, err)
	feed, err := repo.InsertFeed(ctx, feednest.Feed{Name: "Test Channel", URL: srv.URL, AddedBy: usr.ID})
	require.NoError(t, err)
	require.NoError(t, repo.CreateSubscription(ctx, usr.ID, feed.ID, srv.URL))

	require.NoError(t, syncer.SyncFeed(ctx, feed.ID, srv.URL, usr.ID))

	items, err := repo.FeedItems(ctx, feed.ID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.False(t, items[0].HasRead)
	assert.Equal(t, usr.ID, items[0].AddedFor)

	// The remote hasn't changed: a second pass creates nothing.
	require.NoError(t, syncer.SyncFeed(ctx, feed.ID, srv.URL, usr.ID))
	items, err = repo.FeedItems(ctx, feed.ID)
	require.NoError(t, err)
	assert.Len(t, items, 2)

	got, err := repo.Feed(ctx, feed.ID)
	require.NoError(t, err)
	assert.NotNil(t, got.LastFetchedAt)
}

func TestSyncAll_BrokenFeedIsSwallowed(t *testing.T) {
	var (
		ctx          = context.Background()
		syncer, repo = newSyncerTest(t)
		srv          = feedServer(t, testAtomMediaFeed)
	)

	usr, err := repo.InsertUser(ctx, "alice", "alice@example.com", "hash")
	require.NoError(t, err)

	healthy, err := repo.InsertFeed(ctx, feednest.Feed{Name: "healthy", URL: srv.URL, AddedBy: usr.ID})
	require.NoError(t, err)
	require.NoError(t, repo.CreateSubscription(ctx, usr.ID, healthy.ID, srv.URL))

	brokenURL := "http://127.0.0.1:1/feed.xml"
	broken, err := repo.InsertFeed(ctx, feednest.Feed{Name: "broken", URL: brokenURL, AddedBy: usr.ID})
	require.NoError(t, err)
	require.NoError(t, repo.CreateSubscription(ctx, usr.ID, broken.ID, brokenURL))

	// One unreachable feed doesn't surface an error for the whole request.
	require.NoError(t, syncer.SyncAll(ctx, usr.ID))

	items, err := repo.UserItems(ctx, usr.ID, feednest.ListItemsArgs{})
	require.NoError(t, err)
	require.Len(t, items, 2)
	for _, item := range items {
		assert.Equal(t, healthy.ID, item.FeedID)
	}
}

func TestSyncAll_EveryFeedBroken(t *testing.T) {
	var (
		ctx          = context.Background()
		syncer, repo = newSyncerTest(t)
	)

	usr, err := repo.InsertUser(ctx, "alice", "alice@example.com", "hash")
	require.NoError(t, err)

	brokenURL := "http://127.0.0.1:1/feed.xml"
	broken, err := repo.InsertFeed(ctx, feednest.Feed{Name: "broken", URL: brokenURL, AddedBy: usr.ID})
	require.NoError(t, err)
	require.NoError(t, repo.CreateSubscription(ctx, usr.ID, broken.ID, brokenURL))

	// With nothing healthy left to serve, the failure surfaces.
	assert.Error(t, syncer.SyncAll(ctx, usr.ID))
}

func TestSyncFeed_FreshnessWindow(t *testing.T) {
	var (
		ctx          = context.Background()
		syncer, repo = newSyncerTest(t)
	)
	syncer.freshFor = defaultFreshFor

	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte(testAtomMediaFeed))
	}))
	t.Cleanup(srv.Close)

	usr, err := repo.InsertUser(ctx, "alice", "alice@example.com", "hash")
	require.NoError(t, err)
	feed, err := repo.InsertFeed(ctx, feednest.Feed{Name: "fresh", URL: srv.URL, AddedBy: usr.ID})
	require.NoError(t, err)

	require.NoError(t, syncer.SyncFeed(ctx, feed.ID, srv.URL, usr.ID))
	require.NoError(t, syncer.SyncFeed(ctx, feed.ID, srv.URL, usr.ID))
	assert.Equal(t, 1, hits)
}
