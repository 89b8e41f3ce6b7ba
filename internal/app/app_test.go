package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comitanigiacomo/ferienplan-sync/internal/adapters/cache"
	"github.com/comitanigiacomo/ferienplan-sync/internal/adapters/realtime"
	"github.com/comitanigiacomo/ferienplan-sync/internal/config"
	"github.com/comitanigiacomo/ferienplan-sync/internal/core/domain"
	"github.com/comitanigiacomo/ferienplan-sync/internal/core/livesync"
	"github.com/comitanigiacomo/ferienplan-sync/internal/core/services"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig(t *testing.T, driver string) *config.Config {
	return &config.Config{
		Env:  config.EnvLocal,
		Port: "0",
		DB: config.DB{
			Driver:      driver,
			SQLitePath:  filepath.Join(t.TempDir(), "offers.db"),
			AutoMigrate: true,
		},
		Sync: config.Sync{
			Realtime:        config.RealtimeNone,
			FallbackDelay:   20 * time.Millisecond,
			PollInterval:    10 * time.Millisecond,
			FallbackPolling: true,
			Location:        time.UTC,
		},
		Storage: config.Storage{
			Backend:       config.StorageLocal,
			LocalDir:      t.TempDir(),
			PublicBaseURL: "http://localhost/media",
		},
	}
}

func TestBuild_DegradesToPolling(t *testing.T) {
	for _, driver := range []string{config.DBDriverMemory, config.DBDriverSQLite} {
		t.Run(driver, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			a, err := Build(ctx, testConfig(t, driver), discardLogger())
			require.NoError(t, err)
			defer a.Close()

			a.Start(ctx)

			assert.Eventually(t, func() bool {
				return a.Controller.Status().Mode == livesync.ModePolling
			}, 2*time.Second, 5*time.Millisecond)

			today := domain.FormatDate(time.Now().UTC())
			id, err := a.Offers.AddOffer(ctx, today, services.OfferInput{Title: "Basteln", Time: "10:00"})
			require.NoError(t, err)

			assert.Eventually(t, func() bool {
				_, ok := a.Controller.State().Offers().Find(id)
				return ok
			}, 2*time.Second, 5*time.Millisecond, "polling picks up new offers")
		})
	}
}

func TestRouter_Health(t *testing.T) {
	ctx := context.Background()

	a, err := Build(ctx, testConfig(t, config.DBDriverSQLite), discardLogger())
	require.NoError(t, err)
	defer a.Close()

	w := httptest.NewRecorder()
	a.Router().ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"database":"connected"`)
	assert.Contains(t, w.Body.String(), `"redis":"disabled"`)
}

func TestClose_Idempotent(t *testing.T) {
	ctx := context.Background()

	a, err := Build(ctx, testConfig(t, config.DBDriverMemory), discardLogger())
	require.NoError(t, err)

	a.Start(ctx)
	assert.NoError(t, a.Close())
	assert.NoError(t, a.Close())
	assert.Equal(t, livesync.ModeStopped, a.Controller.Status().Mode)
}

func TestBuild_UnreachablePostgres(t *testing.T) {
	cfg := testConfig(t, config.DBDriverPostgres)
	cfg.DB.Host, cfg.DB.Port, cfg.DB.Name = "127.0.0.1", "1", "none"

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := Build(ctx, cfg, discardLogger())
	assert.Error(t, err)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func TestWatchRollover_StartsNewSessionAtMidnight(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := Build(ctx, testConfig(t, config.DBDriverMemory), discardLogger())
	require.NoError(t, err)
	defer a.Close()

	clock := &testClock{now: time.Date(2024, 6, 10, 23, 59, 59, 0, time.UTC)}
	a.now = clock.Now
	a.rolloverEvery = 5 * time.Millisecond

	yesterday, err := domain.NewOffer("2024-06-09", domain.OfferDetails{Title: "Kino"})
	require.NoError(t, err)
	require.NoError(t, a.Repo.Create(ctx, yesterday))
	tomorrow, err := domain.NewOffer("2024-06-11", domain.OfferDetails{Title: "Schwimmbad", Time: "14:00"})
	require.NoError(t, err)
	require.NoError(t, a.Repo.Create(ctx, tomorrow))

	a.Start(ctx)

	first := a.Controller.Status()
	require.Equal(t, "2024-06-10", first.Window.Today)
	_, err = a.Repo.GetByID(ctx, yesterday.ID)
	require.NoError(t, err, "Yesterday's offers survive until the day changes")

	time.Sleep(4 * a.rolloverEvery)
	assert.Equal(t, first.SessionID, a.Controller.Status().SessionID, "No restart within the same day")

	clock.Set(time.Date(2024, 6, 11, 0, 0, 1, 0, time.UTC))

	require.Eventually(t, func() bool {
		return a.Controller.Status().Window.Today == "2024-06-11"
	}, 2*time.Second, 5*time.Millisecond)

	st := a.Controller.Status()
	assert.Greater(t, st.SessionID, first.SessionID)
	assert.Equal(t, "2024-06-12", st.Window.Tomorrow)

	_, err = a.Repo.GetByID(ctx, yesterday.ID)
	assert.ErrorIs(t, err, domain.ErrOfferNotFound, "Retention runs with the new cutoff")

	_, ok := a.Controller.State().Offers().Find(tomorrow.ID)
	assert.True(t, ok, "The new window is published")
}

func TestLiveReload_BypassesCache_Integration(t *testing.T) {
	_ = godotenv.Load("../../.env")

	redisCfg := config.Redis{
		Enabled:  true,
		Host:     getEnv("REDIS_HOST", "localhost"),
		Port:     getEnv("REDIS_PORT", "6379"),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       5,
		CacheTTL: time.Minute,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rdb, err := cache.NewRedisClient(ctx, cache.Config{
		Host: redisCfg.Host, Port: redisCfg.Port, Password: redisCfg.Password, DB: redisCfg.DB,
	})
	if err != nil {
		t.Skipf("Skipping Redis integration test: %v", err)
	}
	require.NoError(t, rdb.FlushDB(ctx).Err(), "Failed to flush test DB")
	rdb.Close()

	cfg := testConfig(t, config.DBDriverMemory)
	cfg.Redis = redisCfg
	cfg.Sync.Realtime = config.RealtimeRedis
	cfg.Sync.Table = "offers"
	cfg.Sync.FallbackPolling = false

	a, err := Build(ctx, cfg, discardLogger())
	require.NoError(t, err)
	defer a.Close()

	a.Start(ctx)
	require.Eventually(t, func() bool {
		return a.Controller.Status().Mode == livesync.ModeLivePending
	}, 2*time.Second, 5*time.Millisecond)

	window := domain.RelevantDates(time.Now().UTC())

	seedID, err := a.Offers.AddOffer(ctx, window.Today, services.OfferInput{Title: "Basteln", Time: "10:00"})
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		_, ok := a.Controller.State().Offers().Find(seedID)
		return ok
	}, 2*time.Second, 5*time.Millisecond)
	require.Equal(t, livesync.ModeLive, a.Controller.Status().Mode)

	// Warm the per-day cache, then write behind its back.
	cached, err := a.Repo.ListByDates(ctx, window.Dates())
	require.NoError(t, err)
	require.Len(t, cached, 1)

	fresh, err := domain.NewOffer(window.Today, domain.OfferDetails{Title: "Lagerfeuer", Time: "19:00"})
	require.NoError(t, err)
	require.NoError(t, a.Source.Create(ctx, fresh))

	stale, err := a.Repo.ListByDates(ctx, window.Dates())
	require.NoError(t, err)
	require.Len(t, stale, 1, "The cache still holds the old day")

	pubsub, ok := a.Realtime.(*realtime.RedisPubSub)
	require.True(t, ok)
	require.NoError(t, pubsub.Publish(ctx, domain.ChangeEvent{
		Table:     "offers",
		Type:      domain.ChangeInsert,
		OfferID:   fresh.ID,
		Date:      fresh.Date,
		Timestamp: time.Now().UTC(),
	}))

	assert.Eventually(t, func() bool {
		_, ok := a.Controller.State().Offers().Find(fresh.ID)
		return ok
	}, 2*time.Second, 5*time.Millisecond, "A change event reloads from the store, not the cache")

	st := a.Controller.Status()
	assert.Equal(t, livesync.ModeLive, st.Mode)
	assert.False(t, st.Polling)
}
