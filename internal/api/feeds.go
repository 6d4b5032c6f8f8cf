package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/mux"
	"github.com/sethvargo/go-retry"

	nesterrs "github.com/adityarao312/feednest/internal/errors"
	"github.com/adityarao312/feednest/internal/feednest"
	"github.com/adityarao312/feednest/internal/serverutil"
	"github.com/adityarao312/feednest/internal/sync"
)

type FeedResp struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	URL           string     `json:"url"`
	Description   string     `json:"description"`
	IconURL       *string    `json:"icon_url"`
	Favorite      bool       `json:"favorite"`
	LastFetchedAt *time.Time `json:"last_fetched_at"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

type FeedListResp struct {
	Feeds []FeedResp `json:"feeds"`
}

func apiFeed(f feednest.Feed) FeedResp {
	var desc string
	if f.Description != nil {
		desc = *f.Description
	}

	return FeedResp{
		ID:            f.ID,
		Name:          f.Name,
		URL:           f.URL,
		Description:   desc,
		IconURL:       f.IconURL,
		Favorite:      f.Favorite,
		LastFetchedAt: f.LastFetchedAt,
		CreatedAt:     f.CreatedAt,
		UpdatedAt:     f.UpdatedAt,
	}
}

type CreateFeedReq struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

func (req CreateFeedReq) Validate() error {
	u, err := url.Parse(req.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nesterrs.E("a valid feed url is required", http.StatusBadRequest,
			nesterrs.Detail{Field: "url", Error: "must be an absolute http(s) url"})
	}

	return nil
}

func (s Server) postFeeds(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	body, err := serverutil.DecodeValid[CreateFeedReq](r.Body)
	if err != nil {
		return err
	}

	// Feeds are global: a url someone else already added only gains a new
	// subscriber.
	existing, err := s.repo.FeedByURL(ctx, body.URL)
	if err == nil {
		if err := s.repo.CreateSubscription(ctx, userID(r), existing.ID, existing.URL); err != nil {
			return err
		}
		return serverutil.WriteJSON(w, http.StatusOK, apiFeed(existing))
	}
	if !errors.Is(err, feednest.ErrNotFound) {
		return err
	}

	// A feed only gets created if it actually serves a parseable document.
	raw, err := sync.Fetch(ctx, body.URL)
	if err != nil {
		return nesterrs.E(fmt.Errorf("url is not reachable: %w", err), http.StatusUnprocessableEntity)
	}
	parsed, err := sync.Parse(raw)
	if err != nil {
		return nesterrs.E(fmt.Errorf("url is not a valid feed: %w", err), http.StatusUnprocessableEntity)
	}

	name := body.Name
	if name == "" {
		name = parsed.Title
	}

	feed, err := s.repo.InsertFeed(ctx, feednest.Feed{
		Name:        name,
		URL:         body.URL,
		Description: optional(parsed.Description),
		IconURL:     s.fetchIconURL(ctx, body.URL),
		AddedBy:     userID(r),
	})
	if errors.Is(err, feednest.ErrConflict) {
		return nesterrs.E("a feed with that name or url already exists", http.StatusConflict)
	}
	if err != nil {
		return err
	}

	if err := s.repo.CreateSubscription(ctx, userID(r), feed.ID, feed.URL); err != nil {
		return err
	}

	// Pull the initial items so the first timeline read isn't empty.
	if err := s.syncer.SyncFeed(ctx, feed.ID, feed.URL, userID(r)); err != nil {
		return err
	}

	return serverutil.WriteJSON(w, http.StatusCreated, apiFeed(feed))
}

// fetchIconURL probes the site's favicon and returns its url when it's
// actually being served. The probe retries a little since it's outside the
// one-shot feed pipeline, but a missing icon is never an error.
func (s Server) fetchIconURL(ctx context.Context, feedURL string) *string {
	u, err := url.Parse(feedURL)
	if err != nil {
		return nil
	}
	iconURL := fmt.Sprintf("%s://%s/favicon.ico", u.Scheme, u.Host)

	backoff := retry.WithMaxRetries(2, retry.NewFibonacci(200*time.Millisecond))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, iconURL, nil)
		if err != nil {
			return err
		}
		resp, err := s.fetchClient.Do(req)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return retry.RetryableError(fmt.Errorf("unexpected status code: %d", resp.StatusCode))
		}

		return nil
	})
	if err != nil {
		return nil
	}

	return &iconURL
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (s Server) getFeeds(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	subs, err := s.repo.UserSubscriptions(ctx, userID(r))
	if err != nil {
		return err
	}

	resp := FeedListResp{
		Feeds: []FeedResp{},
	}
	for _, sub := range subs {
		// Totally inefficient, yet sufficient:
		feed, err := s.repo.Feed(ctx, sub.FeedID)
		if err != nil {
			return err
		}
		resp.Feeds = append(resp.Feeds, apiFeed(feed))
	}

	return serverutil.WriteJSON(w, http.StatusOK, resp)
}

func (s Server) getFeed(w http.ResponseWriter, r *http.Request) error {
	feed, err := s.repo.Feed(r.Context(), mux.Vars(r)["feedID"])
	if errors.Is(err, feednest.ErrNotFound) {
		return nesterrs.E("feed not found", http.StatusNotFound)
	}
	if err != nil {
		return err
	}

	return serverutil.WriteJSON(w, http.StatusOK, apiFeed(feed))
}

type UpdateFeedReq struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	IconURL     string `json:"icon_url"`
	Favorite    *bool  `json:"favorite"`
}

func (req UpdateFeedReq) Validate() error {
	if req.IconURL != "" {
		if u, err := url.Parse(req.IconURL); err != nil || u.Scheme == "" {
			return nesterrs.E("invalid icon url", http.StatusBadRequest,
				nesterrs.Detail{Field: "icon_url", Error: "must be an absolute url"})
		}
	}

	return nil
}

func (s Server) patchFeed(w http.ResponseWriter, r *http.Request) error {
	var (
		ctx    = r.Context()
		feedID = mux.Vars(r)["feedID"]
	)

	body, err := serverutil.DecodeValid[UpdateFeedReq](r.Body)
	if err != nil {
		return err
	}

	feed, err := s.repo.Feed(ctx, feedID)
	if errors.Is(err, feednest.ErrNotFound) {
		return nesterrs.E("feed not found", http.StatusNotFound)
	}
	if err != nil {
		return err
	}
	if feed.AddedBy != userID(r) {
		return nesterrs.E("only the feed's owner can change it", http.StatusForbidden)
	}

	err = s.repo.UpdateFeed(ctx, feedID, feednest.UpdateFeedArgs{
		Name:        body.Name,
		Description: body.Description,
		IconURL:     body.IconURL,
	})
	if errors.Is(err, feednest.ErrConflict) {
		return nesterrs.E("a feed with that name already exists", http.StatusConflict)
	}
	if err != nil {
		return err
	}

	if body.Favorite != nil {
		if err := s.repo.SetFeedFavorite(ctx, feedID, *body.Favorite); err != nil {
			return err
		}
	}

	feed, err = s.repo.Feed(ctx, feedID)
	if err != nil {
		return err
	}

	return serverutil.WriteJSON(w, http.StatusOK, apiFeed(feed))
}

func (s Server) deleteFeed(w http.ResponseWriter, r *http.Request) error {
	var (
		ctx    = r.Context()
		feedID = mux.Vars(r)["feedID"]
	)

	feed, err := s.repo.Feed(ctx, feedID)
	if errors.Is(err, feednest.ErrNotFound) {
		return nesterrs.E("feed not found", http.StatusNotFound)
	}
	if err != nil {
		return err
	}
	if feed.AddedBy != userID(r) {
		return nesterrs.E("only the feed's owner can delete it", http.StatusForbidden)
	}

	if err := s.repo.DeleteFeed(ctx, feedID); err != nil {
		return err
	}

	return serverutil.WriteJSON(w, http.StatusOK, struct{}{})
}

// Unsubscribing drops the feed from the user's timeline without touching the
// shared feed record or anyone else's subscription.
func (s Server) deleteFeedSubscription(w http.ResponseWriter, r *http.Request) error {
	if err := s.repo.DeleteSubscription(r.Context(), userID(r), mux.Vars(r)["feedID"]); err != nil {
		return err
	}

	return serverutil.WriteJSON(w, http.StatusOK, struct{}{})
}

type FeedLikeReq struct {
	FeedID string `json:"feed_id"`
	Liked  bool   `json:"liked"`
}

func (req FeedLikeReq) Validate() error {
	if req.FeedID == "" {
		return nesterrs.E("feed_id is required", http.StatusBadRequest,
			nesterrs.Detail{Field: "feed_id", Error: "feed_id is required"})
	}

	return nil
}

func (s Server) patchFeedLike(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	body, err := serverutil.DecodeValid[FeedLikeReq](r.Body)
	if err != nil {
		return err
	}

	if _, err := s.repo.Feed(ctx, body.FeedID); errors.Is(err, feednest.ErrNotFound) {
		return nesterrs.E("feed not found", http.StatusNotFound)
	} else if err != nil {
		return err
	}

	if body.Liked {
		err = s.repo.LikeFeed(ctx, userID(r), body.FeedID)
	} else {
		err = s.repo.UnlikeFeed(ctx, userID(r), body.FeedID)
	}
	if err != nil {
		return err
	}

	return serverutil.WriteJSON(w, http.StatusOK, struct{}{})
}
