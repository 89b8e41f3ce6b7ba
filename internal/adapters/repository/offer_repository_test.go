package repository

import (
	"context"
	"os"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comitanigiacomo/ferienplan-sync/internal/adapters/database"
	"github.com/comitanigiacomo/ferienplan-sync/internal/core/domain"
)

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func newOffer(t *testing.T, date, title, hhmm string) *domain.Offer {
	t.Helper()
	o, err := domain.NewOffer(date, domain.OfferDetails{Title: title, Time: hhmm})
	require.NoError(t, err)
	return o
}

func ids(offers []*domain.Offer) []string {
	out := make([]string, 0, len(offers))
	for _, o := range offers {
		out = append(out, o.ID)
	}
	return out
}

// runOfferRepositoryContract exercises behaviour every OfferRepository
// implementation must share.
func runOfferRepositoryContract(t *testing.T, repo domain.OfferRepository) {
	ctx := context.Background()

	late := newOffer(t, "2024-06-01", "Lagerfeuer", "19:00")
	early := newOffer(t, "2024-06-01", "Frühsport", "07:30")
	untimed := newOffer(t, "2024-06-01", "Freies Spiel", "")
	tomorrow := newOffer(t, "2024-06-02", "Wanderung", "09:00")
	old := newOffer(t, "2024-05-20", "Altes Angebot", "10:00")
	old.ImageURL = ptr("https://cdn.example.com/offer-images/old_1.jpg")

	for _, o := range []*domain.Offer{late, early, untimed, tomorrow, old} {
		require.NoError(t, repo.Create(ctx, o))
	}

	t.Run("Create rejects duplicate IDs", func(t *testing.T) {
		err := repo.Create(ctx, late)
		assert.ErrorIs(t, err, domain.ErrOfferConflict)
	})

	t.Run("GetByID round-trips fields", func(t *testing.T) {
		got, err := repo.GetByID(ctx, early.ID)
		require.NoError(t, err)

		assert.Equal(t, "2024-06-01", got.Date)
		assert.Equal(t, "Frühsport", got.Title)
		require.NotNil(t, got.Time)
		assert.Equal(t, "07:30", *got.Time)
		assert.Nil(t, got.Description)
		assert.True(t, got.Visible)
		assert.WithinDuration(t, early.CreatedAt, got.CreatedAt, time.Second)
	})

	t.Run("GetByID not found", func(t *testing.T) {
		_, err := repo.GetByID(ctx, "does-not-exist")
		assert.ErrorIs(t, err, domain.ErrOfferNotFound)
	})

	t.Run("ListByDates orders by date then time with untimed last", func(t *testing.T) {
		offers, err := repo.ListByDates(ctx, []string{"2024-06-02", "2024-06-01"})
		require.NoError(t, err)

		assert.Equal(t, []string{early.ID, late.ID, untimed.ID, tomorrow.ID}, ids(offers))
	})

	t.Run("ListByDates with no dates", func(t *testing.T) {
		offers, err := repo.ListByDates(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, offers)
	})

	t.Run("Update replaces editable fields", func(t *testing.T) {
		got, err := repo.GetByID(ctx, late.ID)
		require.NoError(t, err)

		require.NoError(t, got.Update(domain.OfferDetails{Title: "Lagerfeuer mit Stockbrot", Time: "19:30", Location: "Wiese"}, ptr(false)))
		require.NoError(t, repo.Update(ctx, got))

		updated, err := repo.GetByID(ctx, late.ID)
		require.NoError(t, err)
		assert.Equal(t, "Lagerfeuer mit Stockbrot", updated.Title)
		require.NotNil(t, updated.Location)
		assert.Equal(t, "Wiese", *updated.Location)
		assert.False(t, updated.Visible)
	})

	t.Run("Update missing offer", func(t *testing.T) {
		ghost := newOffer(t, "2024-06-01", "Ghost", "")
		assert.ErrorIs(t, repo.Update(ctx, ghost), domain.ErrOfferNotFound)
	})

	t.Run("SetVisibility", func(t *testing.T) {
		require.NoError(t, repo.SetVisibility(ctx, late.ID, true))
		got, err := repo.GetByID(ctx, late.ID)
		require.NoError(t, err)
		assert.True(t, got.Visible)

		assert.ErrorIs(t, repo.SetVisibility(ctx, "missing", true), domain.ErrOfferNotFound)
	})

	t.Run("ListBefore is strict", func(t *testing.T) {
		stale, err := repo.ListBefore(ctx, "2024-06-01")
		require.NoError(t, err)

		require.Len(t, stale, 1)
		assert.Equal(t, old.ID, stale[0].ID)
		require.NotNil(t, stale[0].ImageURL)
		assert.Equal(t, *old.ImageURL, *stale[0].ImageURL)

		none, err := repo.ListBefore(ctx, "2024-05-20")
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("Sample honours limit", func(t *testing.T) {
		offers, err := repo.Sample(ctx, 2)
		require.NoError(t, err)
		assert.Len(t, offers, 2)
	})

	t.Run("DeleteByIDs reports deleted rows", func(t *testing.T) {
		n, err := repo.DeleteByIDs(ctx, []string{old.ID, "missing"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		n, err = repo.DeleteByIDs(ctx, nil)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, untimed.ID))
		assert.ErrorIs(t, repo.Delete(ctx, untimed.ID), domain.ErrOfferNotFound)

		offers, err := repo.ListByDates(ctx, []string{"2024-06-01"})
		require.NoError(t, err)
		got := ids(offers)
		sort.Strings(got)
		want := []string{early.ID, late.ID}
		sort.Strings(want)
		assert.Equal(t, want, got)
	})
}

func ptr[T any](v T) *T {
	return &v
}

func TestInMemoryOfferRepository(t *testing.T) {
	runOfferRepositoryContract(t, NewInMemoryOfferRepository())
}

func TestSQLOfferRepository_SQLite(t *testing.T) {
	ctx := context.Background()

	db, err := database.Open(ctx, database.DriverSQLite, ":memory:")
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, database.Migrate(db, database.DriverSQLite))

	runOfferRepositoryContract(t, NewSQLOfferRepository(db))
}

func TestSQLOfferRepository_Postgres_Integration(t *testing.T) {
	ctx := context.Background()

	dsn := database.PostgresDSN(
		getEnv("DB_USER", "ferienplan"),
		getEnv("DB_PASSWORD", "secret"),
		getEnv("DB_HOST", "localhost"),
		getEnv("DB_PORT", "5432"),
		getEnv("DB_NAME", "ferienplan_test"),
		"disable",
	)

	db, err := database.Open(ctx, database.DriverPostgres, dsn)
	if err != nil {
		t.Skipf("Skipping integration tests: database connection failed: %v", err)
	}
	defer db.Close()

	require.NoError(t, database.Migrate(db, database.DriverPostgres))

	cleanup := func() {
		_, err := db.Exec("TRUNCATE TABLE offers")
		require.NoError(t, err, "Failed to clean up offers table")
	}
	cleanup()
	defer cleanup()

	runOfferRepositoryContract(t, NewSQLOfferRepository(db))
}
