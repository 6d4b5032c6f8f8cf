// Package api is the HTTP boundary: routing, request validation, cookies,
// and the translation of domain results into JSON responses.
package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/adityarao312/feednest/internal/feednest"
	"github.com/adityarao312/feednest/internal/serverutil"
	"github.com/adityarao312/feednest/internal/sync"
	"github.com/adityarao312/feednest/internal/token"
)

type (
	// Server handles requests for accounts, feeds, and the merged item
	// timeline.
	Server struct {
		*http.Server

		repo   feednest.Repository
		tokens *token.Service
		syncer *sync.Syncer

		fetchClient *http.Client
		readerCache *lru.Cache[string, ItemReaderResp]

		httpsCookies bool // Whether or not HTTPS should be used for cookies
	}

	ServerConfig struct {
		Port         int
		HttpsCookies bool
		CorsHeader   string
	}
)

func NewServer(config ServerConfig, repo feednest.Repository, tokens *token.Service, syncer *sync.Syncer) *Server {
	var (
		r        = serverutil.ErrRouter{Router: mux.NewRouter()}
		cache, _ = lru.New[string, ItemReaderResp](1024)
	)

	srvr := Server{
		repo:   repo,
		tokens: tokens,
		syncer: syncer,
		fetchClient: &http.Client{
			Timeout: 5 * time.Second,
		},
		readerCache:  cache,
		httpsCookies: config.HttpsCookies,
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%d", config.Port),
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 30 * time.Second,
			Handler: handlers.CORS(
				handlers.AllowedOrigins([]string{config.CorsHeader}),
				handlers.AllowCredentials(),
				handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions}),
				handlers.AllowedHeaders([]string{"content-type"}),
			)(r),
		},
	}

	r.Use(serverutil.AccessLogMiddleware) // Log everything
	r.HandleFuncE("/api/signup", srvr.postSignup).Methods(http.MethodPost)
	r.HandleFuncE("/api/login", srvr.postLogin).Methods(http.MethodPost)
	r.HandleFuncE("/api/refresh", srvr.postRefresh).Methods(http.MethodPost)

	authed := serverutil.ErrRouter{Router: r.NewRoute().Subrouter()}
	authed.Use(requireAuthMiddleware(tokens))

	authed.HandleFuncE("/api/logout", srvr.postLogout).Methods(http.MethodPost)

	// Profile management
	authed.HandleFuncE("/api/profile", srvr.getProfile).Methods(http.MethodGet)
	authed.HandleFuncE("/api/profile", srvr.patchProfile).Methods(http.MethodPatch)
	authed.HandleFuncE("/api/profile", srvr.deleteProfile).Methods(http.MethodDelete)
	authed.HandleFuncE("/api/profile/password", srvr.patchPassword).Methods(http.MethodPatch)

	// Feed management
	authed.HandleFuncE("/api/feeds", srvr.postFeeds).Methods(http.MethodPost)
	authed.HandleFuncE("/api/feeds", srvr.getFeeds).Methods(http.MethodGet)
	authed.HandleFuncE("/api/feeds/like", srvr.patchFeedLike).Methods(http.MethodPatch)
	authed.HandleFuncE("/api/feeds/{feedID}", srvr.getFeed).Methods(http.MethodGet)
	authed.HandleFuncE("/api/feeds/{feedID}", srvr.patchFeed).Methods(http.MethodPatch)
	authed.HandleFuncE("/api/feeds/{feedID}", srvr.deleteFeed).Methods(http.MethodDelete)
	authed.HandleFuncE("/api/feeds/{feedID}/subscription", srvr.deleteFeedSubscription).Methods(http.MethodDelete)

	// The merged timeline and single-item views
	authed.HandleFuncE("/api/items", srvr.getItems).Methods(http.MethodGet)
	authed.HandleFuncE("/api/items/like", srvr.patchItemLike).Methods(http.MethodPatch)
	authed.HandleFuncE("/api/items/{itemID}", srvr.getItem).Methods(http.MethodGet)
	authed.HandleFuncE("/api/items/{itemID}/reader", srvr.getItemReader).Methods(http.MethodGet)

	// History and likes
	authed.HandleFuncE("/api/history/read", srvr.getReadHistory).Methods(http.MethodGet)
	authed.HandleFuncE("/api/liked/items", srvr.getLikedItems).Methods(http.MethodGet)
	authed.HandleFuncE("/api/liked/feeds", srvr.getLikedFeeds).Methods(http.MethodGet)

	slog.Debug("configured feednest server", "port", config.Port)

	return &srvr
}
