// Feednest is the feed aggregation backend.
//
// It serves the account, feed, and timeline APIs, pulling remote feeds on
// demand when a user reads their timeline.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/oklog/run"
	"github.com/sethvargo/go-envconfig"
	_ "golang.org/x/crypto/x509roots/fallback"
	_ "modernc.org/sqlite"

	"github.com/adityarao312/feednest/internal/api"
	"github.com/adityarao312/feednest/internal/logger"
	"github.com/adityarao312/feednest/internal/migrations"
	nestqlite "github.com/adityarao312/feednest/internal/sqlite"
	"github.com/adityarao312/feednest/internal/sync"
	"github.com/adityarao312/feednest/internal/token"
)

type config struct {
	Database string `env:"DATABASE, required"`

	Port         int    `env:"PORT, default=4444"`
	HTTPSCookies bool   `env:"HTTPS_COOKIES, default=false"`
	CorsHeader   string `env:"CORS_HEADER, default=http://localhost:3000"`
	LogJSON      bool   `env:"LOG_JSON, default=false"`

	AccessHashKey   string `env:"ACCESS_HASH_KEY, required"`
	AccessBlockKey  string `env:"ACCESS_BLOCK_KEY, required"`
	RefreshHashKey  string `env:"REFRESH_HASH_KEY, required"`
	RefreshBlockKey string `env:"REFRESH_BLOCK_KEY, required"`

	AccessTTL  time.Duration `env:"ACCESS_TTL, default=15m"`
	RefreshTTL time.Duration `env:"REFRESH_TTL, default=720h"`
}

func main() {
	ctx := context.Background()

	// Parse the config
	var cfg config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		log.Fatalf("error parsing config: %s", err)
	}

	var handler slog.Handler = slog.NewTextHandler(os.Stdout, nil)
	if cfg.LogJSON {
		handler = slog.NewJSONHandler(os.Stdout, nil)
	}
	slog.SetDefault(slog.New(logger.NewContextHandler(handler)))

	// Connect to the sqlite db
	dbx, err := sqlx.Open("sqlite", fmt.Sprintf("%s?_txlock=immediate&_journal_mode=WAL&_busy_timeout=5000", cfg.Database))
	if err != nil {
		log.Fatalf("error opening database: %s", err)
	}
	defer dbx.Close()

	// Run all migrations
	if err := migrations.Run(dbx); err != nil {
		log.Fatalf("error running migrations: %s", err)
	}

	repo := nestqlite.New(dbx)
	tokens := token.NewService(token.Config{
		AccessHashKey:   []byte(cfg.AccessHashKey),
		AccessBlockKey:  []byte(cfg.AccessBlockKey),
		RefreshHashKey:  []byte(cfg.RefreshHashKey),
		RefreshBlockKey: []byte(cfg.RefreshBlockKey),
		AccessTTL:       cfg.AccessTTL,
		RefreshTTL:      cfg.RefreshTTL,
	}, repo)
	syncer := sync.NewSyncer(repo)

	srvr := api.NewServer(api.ServerConfig{
		Port:         cfg.Port,
		HttpsCookies: cfg.HTTPSCookies,
		CorsHeader:   cfg.CorsHeader,
	}, repo, tokens, syncer)

	var g run.Group
	g.Add(func() error {
		slog.Info("starting server", "port", cfg.Port)
		return srvr.ListenAndServe()
	}, func(error) {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srvr.Shutdown(shutdownCtx); err != nil {
			slog.Error("error shutting down server", "error", err)
		}
	})
	g.Add(run.SignalHandler(ctx, os.Interrupt, syscall.SIGTERM))

	err = g.Run()
	var sigErr run.SignalError
	if errors.As(err, &sigErr) {
		slog.Info("shutting down", "signal", sigErr.Signal)
		return
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("error running: %s", err)
	}
}
