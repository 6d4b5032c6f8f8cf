package api

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	readability "github.com/go-shiori/go-readability"
	"github.com/gorilla/mux"
	"github.com/sym01/htmlsanitizer"

	nesterrs "github.com/adityarao312/feednest/internal/errors"
	"github.com/adityarao312/feednest/internal/feednest"
	"github.com/adityarao312/feednest/internal/serverutil"
)

type ItemResp struct {
	ID           string     `json:"id"`
	FeedID       string     `json:"feed_id"`
	Title        string     `json:"title"`
	URL          string     `json:"url"`
	ThumbnailURL *string    `json:"thumbnail_url"`
	Content      *string    `json:"content"`
	Creator      string     `json:"creator"`
	PublishedAt  *time.Time `json:"published_at"`
	FetchedAt    time.Time  `json:"fetched_at"`
	HasRead      bool       `json:"has_read"`
	LastOpenedAt *time.Time `json:"last_opened_at"`
}

func apiItem(item feednest.Item) ItemResp {
	return ItemResp{
		ID:           item.ID,
		FeedID:       item.FeedID,
		Title:        item.Title,
		URL:          item.URL,
		ThumbnailURL: item.ThumbnailURL,
		Content:      item.Content,
		Creator:      item.Creator,
		PublishedAt:  item.PublishedAt,
		FetchedAt:    item.FetchedAt,
		HasRead:      item.HasRead,
		LastOpenedAt: item.LastOpenedAt,
	}
}

// paginationMeta holds pagination metadata for API responses.
type paginationMeta struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Total  int `json:"total,omitempty"` // Optional total count
}

// parsePaginationParams parses pagination parameters from an HTTP request.
// Supports offset-based pagination (?offset=20&limit=10).
func parsePaginationParams(r *http.Request, defaultLimit, maxLimit int) (int, int) {
	query := r.URL.Query()

	limit, _ := strconv.Atoi(query.Get("limit"))
	if limit <= 0 || limit > maxLimit {
		limit = defaultLimit
	}

	offset, _ := strconv.Atoi(query.Get("offset"))
	if offset < 0 {
		offset = 0
	}

	return limit, offset
}

type (
	ItemListResp struct {
		Items []ItemResp `json:"items"`
	}

	ItemPageResp struct {
		Items      []ItemResp     `json:"items"`
		Pagination paginationMeta `json:"pagination"`
	}
)

// The timeline read: refresh every subscription, then serve the merged
// listing. A broken feed only costs its own items.
func (s Server) getItems(w http.ResponseWriter, r *http.Request) error {
	var (
		ctx    = r.Context()
		feedID = r.URL.Query().Get("feed_id")
	)

	if err := s.syncer.SyncAll(ctx, userID(r)); err != nil {
		return err
	}

	limit, offset := parsePaginationParams(r, 20, 100) // default=20, max=100

	args := feednest.ListItemsArgs{
		FeedID: feedID,
		Limit:  uint64(limit),
		Offset: uint64(offset),
	}

	total, err := s.repo.CountUserItems(ctx, userID(r), args)
	if err != nil {
		return err
	}
	items, err := s.repo.UserItems(ctx, userID(r), args)
	if err != nil {
		return err
	}

	resp := ItemPageResp{
		Items: make([]ItemResp, 0, len(items)),
		Pagination: paginationMeta{
			Limit:  limit,
			Offset: offset,
			Total:  total,
		},
	}
	for _, item := range items {
		resp.Items = append(resp.Items, apiItem(item))
	}

	return serverutil.WriteJSON(w, http.StatusOK, resp)
}

// Opening an item is what marks it read and stamps the read-history entry.
func (s Server) getItem(w http.ResponseWriter, r *http.Request) error {
	item, err := s.repo.MarkItemRead(r.Context(), mux.Vars(r)["itemID"], userID(r), time.Now())
	if errors.Is(err, feednest.ErrNotFound) {
		return nesterrs.E("item not found", http.StatusNotFound)
	}
	if err != nil {
		return err
	}

	return serverutil.WriteJSON(w, http.StatusOK, apiItem(item))
}

type ItemReaderResp struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	URL           string `json:"url"`
	ReaderContent string `json:"reader_content"`
}

func (s Server) getItemReader(w http.ResponseWriter, r *http.Request) error {
	var (
		ctx    = r.Context()
		itemID = mux.Vars(r)["itemID"]
	)

	item, err := s.repo.Item(ctx, itemID)
	if errors.Is(err, feednest.ErrNotFound) {
		return nesterrs.E("item not found", http.StatusNotFound)
	}
	if err != nil {
		return err
	}

	// Cache results for less processing and prevent refetches
	if resp, ok := s.readerCache.Get(itemID); ok {
		return serverutil.WriteJSON(w, http.StatusOK, resp)
	}

	u, err := url.Parse(item.URL)
	if err != nil {
		return nesterrs.E("item has no readable url", http.StatusUnprocessableEntity)
	}

	// Fetch the actual site
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, item.URL, nil)
	if err != nil {
		return err
	}
	resp, err := s.fetchClient.Do(req)
	if err != nil {
		return nesterrs.E(err, http.StatusBadGateway)
	}
	defer resp.Body.Close()

	// Strip it for readability and sanitize
	parser := readability.NewParser()
	article, err := parser.Parse(resp.Body, u)
	if err != nil {
		return err
	}

	sanitizer := htmlsanitizer.NewHTMLSanitizer()
	contents, err := sanitizer.SanitizeString(article.Content)
	if err != nil {
		return err
	}

	ret := ItemReaderResp{
		ID:            item.ID,
		Title:         item.Title,
		URL:           item.URL,
		ReaderContent: contents,
	}
	// Add to the cache for next time
	s.readerCache.Add(item.ID, ret)

	return serverutil.WriteJSON(w, http.StatusOK, ret)
}

type ItemLikeReq struct {
	ItemID string `json:"item_id"`
	Liked  bool   `json:"liked"`
}

func (req ItemLikeReq) Validate() error {
	if req.ItemID == "" {
		return nesterrs.E("item_id is required", http.StatusBadRequest,
			nesterrs.Detail{Field: "item_id", Error: "item_id is required"})
	}

	return nil
}

func (s Server) patchItemLike(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	body, err := serverutil.DecodeValid[ItemLikeReq](r.Body)
	if err != nil {
		return err
	}

	if _, err := s.repo.Item(ctx, body.ItemID); errors.Is(err, feednest.ErrNotFound) {
		return nesterrs.E("item not found", http.StatusNotFound)
	} else if err != nil {
		return err
	}

	if body.Liked {
		err = s.repo.LikeItem(ctx, userID(r), body.ItemID)
	} else {
		err = s.repo.UnlikeItem(ctx, userID(r), body.ItemID)
	}
	if err != nil {
		return err
	}

	return serverutil.WriteJSON(w, http.StatusOK, struct{}{})
}
