// Package app assembles the process from configuration: storage, cache,
// realtime backend, services, the sync controller and the HTTP router.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	adapterHTTP "github.com/comitanigiacomo/ferienplan-sync/internal/adapters/handler/http"
	"github.com/comitanigiacomo/ferienplan-sync/internal/adapters/cache"
	"github.com/comitanigiacomo/ferienplan-sync/internal/adapters/database"
	"github.com/comitanigiacomo/ferienplan-sync/internal/adapters/imaging"
	"github.com/comitanigiacomo/ferienplan-sync/internal/adapters/realtime"
	"github.com/comitanigiacomo/ferienplan-sync/internal/adapters/repository"
	"github.com/comitanigiacomo/ferienplan-sync/internal/adapters/storage"
	"github.com/comitanigiacomo/ferienplan-sync/internal/config"
	"github.com/comitanigiacomo/ferienplan-sync/internal/core/domain"
	"github.com/comitanigiacomo/ferienplan-sync/internal/core/livesync"
	"github.com/comitanigiacomo/ferienplan-sync/internal/core/services"
	"github.com/comitanigiacomo/ferienplan-sync/internal/core/workers"
)

const rolloverCheckInterval = time.Minute

type App struct {
	Config *config.Config
	Logger *slog.Logger

	DB    *sqlx.DB
	Redis *redis.Client

	// Repo carries the cache and change publishing. Source is the store
	// underneath it; live reloads read Source.
	Repo       domain.OfferRepository
	Source     domain.OfferRepository
	Images     domain.ImageStore
	Realtime   domain.RealtimeClient
	Retention  *livesync.Retention
	Controller *livesync.Controller
	Offers     *services.OfferService
	Ping       *services.PingService
	KeepAlive  *workers.KeepAliveWorker

	mediaDir      string
	startTime     time.Time
	closers       []func() error
	now           func() time.Time
	rolloverEvery time.Duration

	mu          sync.Mutex
	unsubscribe func()
}

// Build connects every backend named by cfg. On error everything opened so
// far is closed again.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	a := &App{
		Config:        cfg,
		Logger:        logger,
		startTime:     time.Now(),
		now:           time.Now,
		rolloverEvery: rolloverCheckInterval,
	}
	if err := a.build(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) build(ctx context.Context) error {
	cfg, logger := a.Config, a.Logger

	repo, err := a.openRepository(ctx)
	if err != nil {
		return err
	}
	a.Source = repo

	if cfg.Redis.Enabled {
		rdb, err := cache.NewRedisClient(ctx, cache.Config{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		switch {
		case err == nil:
			a.Redis = rdb
			a.closers = append(a.closers, rdb.Close)
			repo = repository.NewCachedOfferRepository(repo, rdb, cfg.Redis.CacheTTL, logger)
		case cfg.Sync.Realtime == config.RealtimeRedis:
			return fmt.Errorf("redis realtime: %w", err)
		default:
			logger.Warn("Redis unavailable, running without cache and rate limiting", "error", err)
		}
	}

	switch cfg.Sync.Realtime {
	case config.RealtimePostgres:
		a.Realtime = realtime.NewPostgresNotifyClient(a.postgresDSN(), logger)
	case config.RealtimeRedis:
		ps := realtime.NewRedisPubSub(a.Redis, logger)
		a.Realtime = ps
		repo = repository.NewNotifyingOfferRepository(repo, ps, cfg.Sync.Table, logger)
	default:
		a.Realtime = realtime.Disabled{}
	}
	a.Repo = repo

	if err := a.openImageStore(ctx); err != nil {
		return err
	}

	a.Offers = services.NewOfferService(repo, a.Images, imaging.NewJPEGResizer(), logger)
	a.Ping = services.NewPingService(repo, logger)
	if cfg.KeepAliveInterval > 0 {
		a.KeepAlive = workers.NewKeepAliveWorker(a.Ping, cfg.KeepAliveInterval, logger)
	}

	a.Retention = livesync.NewRetention(repo, a.Images, logger)
	a.Controller = livesync.NewController(livesync.Config{
		ChannelName:   cfg.Sync.ChannelName,
		Table:         cfg.Sync.Table,
		FallbackDelay: cfg.Sync.FallbackDelay,
		PollInterval:  cfg.Sync.PollInterval,
		Location:      cfg.Sync.Location,
		Now:           func() time.Time { return a.now() },
	}, livesync.NewRecordStore(a.Source, logger), a.Retention, a.Realtime, livesync.NewState(), logger)

	return nil
}

func (a *App) postgresDSN() string {
	db := a.Config.DB
	return database.PostgresDSN(db.User, db.Password, db.Host, db.Port, db.Name, db.SSLMode)
}

func (a *App) openRepository(ctx context.Context) (domain.OfferRepository, error) {
	cfg := a.Config.DB

	var driver, dsn string
	switch cfg.Driver {
	case config.DBDriverMemory:
		a.Logger.Warn("Using in-memory offer store, data is lost on exit")
		return repository.NewInMemoryOfferRepository(), nil
	case config.DBDriverSQLite:
		driver, dsn = database.DriverSQLite, cfg.SQLitePath
	default:
		driver, dsn = database.DriverPostgres, a.postgresDSN()
	}

	db, err := database.Open(ctx, driver, dsn)
	if err != nil {
		return nil, err
	}
	a.DB = db
	a.closers = append(a.closers, db.Close)

	if driver == database.DriverPostgres {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	if cfg.AutoMigrate {
		if err := database.Migrate(db, driver); err != nil {
			return nil, err
		}
		a.Logger.Info("Database schema up to date", "driver", driver)
	}

	return repository.NewSQLOfferRepository(db), nil
}

func (a *App) openImageStore(ctx context.Context) error {
	cfg := a.Config.Storage

	if cfg.Backend == config.StorageGCS {
		gcsCfg := storage.GCSConfig{
			Bucket:          cfg.GCSBucket,
			BaseURL:         cfg.PublicBaseURL,
			CredentialsFile: cfg.GCSCredentials,
			Endpoint:        cfg.GCSEndpoint,
		}
		client, err := storage.NewGCSClient(ctx, gcsCfg)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, client.Close)
		a.Images = storage.NewGCSImageStore(client, gcsCfg, a.Logger)
		return nil
	}

	local, err := storage.NewLocalImageStore(cfg.LocalDir, cfg.PublicBaseURL, a.Logger)
	if err != nil {
		return err
	}
	a.Images = local
	a.mediaDir = local.Dir()
	return nil
}

// Router builds the HTTP API on top of the assembled services.
func (a *App) Router() *gin.Engine {
	return adapterHTTP.NewRouter(adapterHTTP.RouterDependencies{
		OfferHandler: adapterHTTP.NewOfferHandler(a.Offers),
		SyncHandler:  adapterHTTP.NewSyncHandler(a.Controller, a.Config.HTTP.AllowOrigins, a.Logger),
		PingHandler:  adapterHTTP.NewPingHandler(a.Ping),
		Sync:         a.Controller,
		DB:           a.DB,
		Redis:        a.Redis,
		StartTime:    a.startTime,
		Logger:       a.Logger,
		AllowOrigins: a.Config.HTTP.AllowOrigins,
		RateLimit:    a.Config.HTTP.RateLimit,
		RateWindow:   a.Config.HTTP.RateWindow,
		MediaDir:     a.mediaDir,
	})
}

// Start opens the sync session and the background workers. They stop when
// ctx is cancelled or Close is called.
func (a *App) Start(ctx context.Context) {
	a.resubscribe(ctx)

	if a.KeepAlive != nil {
		a.KeepAlive.Start(ctx)
	}
	go a.watchRollover(ctx)
}

func (a *App) resubscribe(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.unsubscribe = a.Controller.Subscribe(ctx, a.Config.Sync.FallbackPolling)
}

// watchRollover opens a fresh session when the day changes, so the published
// window moves on and yesterday's offers get purged.
func (a *App) watchRollover(ctx context.Context) {
	ticker := time.NewTicker(a.rolloverEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			status := a.Controller.Status()
			if status.Mode == livesync.ModeStopped {
				continue
			}
			today := domain.FormatDate(a.now().In(a.Config.Sync.Location))
			if today == status.Window.Today {
				continue
			}
			a.Logger.Info("Day changed, restarting sync session", "today", today)
			a.resubscribe(ctx)
		}
	}
}

// Close stops the sync session and releases every backend. Safe to call on a
// partially built App.
func (a *App) Close() error {
	a.mu.Lock()
	if a.unsubscribe != nil {
		a.unsubscribe()
		a.unsubscribe = nil
	}
	a.mu.Unlock()

	if a.Controller != nil {
		a.Controller.Close()
	}

	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
