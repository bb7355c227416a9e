package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"linkstudio/internal/auth"
	"linkstudio/internal/catalog"
	"linkstudio/internal/claim"
	"linkstudio/internal/config"
	"linkstudio/internal/db"
	"linkstudio/internal/docstore"
	httpx "linkstudio/internal/http"
	"linkstudio/internal/jobs"
	"linkstudio/internal/logger"
	"linkstudio/internal/pages"
	"linkstudio/internal/pagesync"
	"linkstudio/internal/slug"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel, cfg.Development())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("linkstudio stopped")
	}
}

func run(ctx context.Context, cfg config.Config, log zerolog.Logger) error {
	cat := catalog.Default()
	deps := httpx.Deps{
		Config:  cfg,
		JWT:     auth.NewJWT(cfg.JWTSecret),
		Catalog: cat,
		Log:     log,
	}

	g, ctx := errgroup.WithContext(ctx)

	var (
		store docstore.Store
		gdb   *gorm.DB
	)
	switch cfg.DocStore {
	case config.StorePostgres:
		var err error
		gdb, err = db.Connect(cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		if err := db.AutoMigrateAndIndexes(gdb); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		feed, err := newFeed(cfg, gdb, log)
		if err != nil {
			return err
		}
		gs := docstore.NewGormStore(gdb, feed, log)
		g.Go(func() error { return gs.Run(ctx) })
		store = gs
		deps.Accounts = &auth.Accounts{Users: &auth.GormUsers{DB: gdb}}
	case config.StoreMemory:
		log.Warn().Msg("using the in-memory document store; pages are lost on restart")
		store = docstore.NewMemoryStore()
		deps.Accounts = &auth.Accounts{Users: auth.NewMemoryUsers()}
	default:
		log.Warn().Msg("no document store configured; page routes answer 503 until DATABASE_URL or DOCSTORE=memory is set")
	}

	if store != nil {
		slugs := slug.NewRegistry(store, cfg.AppID, log)
		svc := &pages.Service{Store: store, AppID: cfg.AppID, Catalog: cat, Slugs: slugs, Log: log}
		if gdb != nil {
			repo := &jobs.Repo{DB: gdb}
			svc.Clicks = repo
			worker := &jobs.Worker{ID: "worker-1", Queue: repo, Clicks: svc, Interval: cfg.WorkerPollInterval, Log: log}
			g.Go(func() error { return worker.Run(ctx) })
		}
		deps.Pages = svc
		deps.Claim = &claim.Flow{Store: store, AppID: cfg.AppID, Catalog: cat, Slugs: slugs, Log: log}
		deps.Sync = pagesync.Config{Store: store, AppID: cfg.AppID, Debounce: cfg.SyncDebounce, Log: log}
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpx.NewRouter(deps),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g.Go(func() error {
		log.Info().Str("addr", cfg.HTTPAddr).Str("store", cfg.DocStore).Str("feed", cfg.ChangeFeed).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// graceful shutdown
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func newFeed(cfg config.Config, gdb *gorm.DB, log zerolog.Logger) (docstore.Feed, error) {
	switch cfg.ChangeFeed {
	case config.FeedRedis:
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		return docstore.NewRedisFeed(redis.NewClient(opts), ""), nil
	case config.FeedPostgres:
		return docstore.NewPostgresFeed(gdb, cfg.DatabaseURL, "", log), nil
	default:
		return nil, nil
	}
}
