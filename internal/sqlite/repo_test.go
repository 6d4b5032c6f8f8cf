package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adityarao312/feednest/internal/feednest"
	"github.com/adityarao312/feednest/internal/migrations"
)

func newTestRepo(t *testing.T) Repo {
	t.Helper()

	dbx, err := sqlx.Open("sqlite", ":memory:?_pragma=foreign_keys(1)")
	require.NoError(t, err)
	// A pool of in-memory connections would each get their own database.
	dbx.SetMaxOpenConns(1)
	t.Cleanup(func() { dbx.Close() })

	require.NoError(t, migrations.Run(dbx))

	return New(dbx)
}

func seedUserAndFeed(t *testing.T, repo Repo, username, email string) (feednest.User, feednest.Feed) {
	t.Helper()
	ctx := context.Background()

	usr, err := repo.InsertUser(ctx, username, email, "hash")
	require.NoError(t, err)

	feed, err := repo.InsertFeed(ctx, feednest.Feed{
		Name:    "Feed for " + username,
		URL:     "https://example.com/" + username + ".xml",
		AddedBy: usr.ID,
	})
	require.NoError(t, err)

	require.NoError(t, repo.CreateSubscription(ctx, usr.ID, feed.ID, feed.URL))

	return usr, feed
}

func testItems(feedID, userID string, titles ...string) []feednest.Item {
	items := make([]feednest.Item, 0, len(titles))
	for _, title := range titles {
		published := time.Now().UTC()
		items = append(items, feednest.Item{
			FeedID:      feedID,
			Title:       title,
			URL:         "https://example.com/" + title,
			Creator:     "author",
			PublishedAt: &published,
			FetchedAt:   time.Now().UTC(),
			AddedFor:    userID,
		})
	}
	return items
}

func TestInsertItems_Idempotent(t *testing.T) {
	var (
		ctx  = context.Background()
		repo = newTestRepo(t)
	)
	usr, feed := seedUserAndFeed(t, repo, "alice", "alice@example.com")

	created, err := repo.InsertItems(ctx, testItems(feed.ID, usr.ID, "one", "two", "three"))
	require.NoError(t, err)
	assert.Len(t, created, 3)

	// Same three entries again: nothing new.
	created, err = repo.InsertItems(ctx, testItems(feed.ID, usr.ID, "one", "two", "three"))
	require.NoError(t, err)
	assert.Empty(t, created)

	count, err := repo.CountUserItems(ctx, usr.ID, feednest.ListItemsArgs{})
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestInsertItems_PartialFailureIsolated(t *testing.T) {
	var (
		ctx  = context.Background()
		repo = newTestRepo(t)
	)
	usr, feed := seedUserAndFeed(t, repo, "alice", "alice@example.com")

	items := testItems(feed.ID, usr.ID, "good-one", "good-two")
	// A foreign key violation sinks only its own entry.
	bad := testItems(feed.ID, usr.ID, "placeholder")[0]
	bad.FeedID = "missing-feed" + feedNamespace
	items = []feednest.Item{items[0], bad, items[1]}

	created, err := repo.InsertItems(ctx, items)
	require.Error(t, err)
	assert.Len(t, created, 2)
}

func TestDeleteFeed_CascadesToAllLikers(t *testing.T) {
	var (
		ctx  = context.Background()
		repo = newTestRepo(t)
	)
	alice, feed := seedUserAndFeed(t, repo, "alice", "alice@example.com")
	bob, err := repo.InsertUser(ctx, "bob", "bob@example.com", "hash")
	require.NoError(t, err)
	require.NoError(t, repo.CreateSubscription(ctx, bob.ID, feed.ID, feed.URL))

	created, err := repo.InsertItems(ctx, testItems(feed.ID, alice.ID, "shared"))
	require.NoError(t, err)
	require.Len(t, created, 1)
	item := created[0]

	// Both users like the same globally-shared item.
	require.NoError(t, repo.LikeItem(ctx, alice.ID, item.ID))
	require.NoError(t, repo.LikeItem(ctx, bob.ID, item.ID))
	require.NoError(t, repo.LikeFeed(ctx, bob.ID, feed.ID))

	require.NoError(t, repo.DeleteFeed(ctx, feed.ID))

	_, err = repo.Item(ctx, item.ID)
	assert.ErrorIs(t, err, feednest.ErrNotFound)

	for _, usr := range []feednest.User{alice, bob} {
		liked, err := repo.LikedItems(ctx, usr.ID)
		require.NoError(t, err)
		assert.Empty(t, liked, "likes of %s should be pruned", usr.Username)
	}

	likedFeeds, err := repo.LikedFeeds(ctx, bob.ID)
	require.NoError(t, err)
	assert.Empty(t, likedFeeds)

	subs, err := repo.UserSubscriptions(ctx, bob.ID)
	require.NoError(t, err)
	assert.Empty(t, subs)
}

func TestLikeItem_Toggle(t *testing.T) {
	var (
		ctx  = context.Background()
		repo = newTestRepo(t)
	)
	usr, feed := seedUserAndFeed(t, repo, "alice", "alice@example.com")

	created, err := repo.InsertItems(ctx, testItems(feed.ID, usr.ID, "toggle-me"))
	require.NoError(t, err)
	item := created[0]

	require.NoError(t, repo.LikeItem(ctx, usr.ID, item.ID))
	// Liking twice is a no-op, not a duplicate.
	require.NoError(t, repo.LikeItem(ctx, usr.ID, item.ID))

	liked, err := repo.LikedItems(ctx, usr.ID)
	require.NoError(t, err)
	require.Len(t, liked, 1)
	assert.Equal(t, item.ID, liked[0].ID)

	require.NoError(t, repo.UnlikeItem(ctx, usr.ID, item.ID))

	liked, err = repo.LikedItems(ctx, usr.ID)
	require.NoError(t, err)
	assert.Empty(t, liked)

	// The underlying item is untouched by the toggle.
	got, err := repo.Item(ctx, item.ID)
	require.NoError(t, err)
	assert.False(t, got.HasRead)
}

func TestMarkItemRead(t *testing.T) {
	var (
		ctx  = context.Background()
		repo = newTestRepo(t)
	)
	usr, feed := seedUserAndFeed(t, repo, "alice", "alice@example.com")

	created, err := repo.InsertItems(ctx, testItems(feed.ID, usr.ID, "read-me"))
	require.NoError(t, err)

	openedAt := time.Now().UTC().Truncate(time.Second)
	got, err := repo.MarkItemRead(ctx, created[0].ID, usr.ID, openedAt)
	require.NoError(t, err)
	assert.True(t, got.HasRead)
	require.NotNil(t, got.ReadBy)
	assert.Equal(t, usr.ID, *got.ReadBy)

	history, err := repo.ReadItems(ctx, usr.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, created[0].ID, history[0].ID)
}

func TestUpdateUserRefreshToken(t *testing.T) {
	var (
		ctx  = context.Background()
		repo = newTestRepo(t)
	)
	usr, err := repo.InsertUser(ctx, "alice", "alice@example.com", "hash")
	require.NoError(t, err)
	assert.Nil(t, usr.RefreshToken)

	token := "signed-token"
	require.NoError(t, repo.UpdateUserRefreshToken(ctx, usr.ID, &token))

	got, err := repo.User(ctx, usr.ID)
	require.NoError(t, err)
	require.NotNil(t, got.RefreshToken)
	assert.Equal(t, token, *got.RefreshToken)

	require.NoError(t, repo.UpdateUserRefreshToken(ctx, usr.ID, nil))
	got, err = repo.User(ctx, usr.ID)
	require.NoError(t, err)
	assert.Nil(t, got.RefreshToken)

	assert.ErrorIs(t, repo.UpdateUserRefreshToken(ctx, "nobody", &token), feednest.ErrNotFound)
}

func TestInsertUser_Conflict(t *testing.T) {
	var (
		ctx  = context.Background()
		repo = newTestRepo(t)
	)
	_, err := repo.InsertUser(ctx, "alice", "alice@example.com", "hash")
	require.NoError(t, err)

	_, err = repo.InsertUser(ctx, "alice", "other@example.com", "hash")
	assert.ErrorIs(t, err, feednest.ErrConflict)

	_, err = repo.InsertUser(ctx, "other", "alice@example.com", "hash")
	assert.ErrorIs(t, err, feednest.ErrConflict)
}
