package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/comitanigiacomo/ferienplan-sync/internal/core/domain"
)

var _ domain.OfferRepository = (*SQLOfferRepository)(nil)

const offerColumns = `id, CAST(offer_date AS TEXT) AS offer_date, title, description, start_time,
        location, supervisor, image_url, visible, created_at, updated_at`

// SQLOfferRepository works on both Postgres and SQLite; queries are written
// with '?' placeholders and rebound for the driver in use.
type SQLOfferRepository struct {
	db *sqlx.DB
}

func NewSQLOfferRepository(db *sqlx.DB) *SQLOfferRepository {
	return &SQLOfferRepository{db: db}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY || code == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}

func (r *SQLOfferRepository) Create(ctx context.Context, o *domain.Offer) error {
	query := r.db.Rebind(`
        INSERT INTO offers (
            id, offer_date, title, description, start_time,
            location, supervisor, image_url, visible, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	_, err := r.db.ExecContext(ctx, query,
		o.ID, o.Date, o.Title, o.Description, o.Time,
		o.Location, o.Supervisor, o.ImageURL, o.Visible, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrOfferConflict
		}
		return fmt.Errorf("failed to insert offer: %w", err)
	}
	return nil
}

func (r *SQLOfferRepository) GetByID(ctx context.Context, id string) (*domain.Offer, error) {
	query := r.db.Rebind(`SELECT ` + offerColumns + ` FROM offers WHERE id = ?`)

	var o domain.Offer
	if err := r.db.GetContext(ctx, &o, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrOfferNotFound
		}
		return nil, fmt.Errorf("database scan error: %w", err)
	}
	return &o, nil
}

func (r *SQLOfferRepository) Update(ctx context.Context, o *domain.Offer) error {
	if o.UpdatedAt.IsZero() {
		o.UpdatedAt = time.Now().UTC()
	}

	query := r.db.Rebind(`
        UPDATE offers SET
            title = ?, description = ?, start_time = ?, location = ?,
            supervisor = ?, image_url = ?, visible = ?, updated_at = ?
        WHERE id = ?`)

	res, err := r.db.ExecContext(ctx, query,
		o.Title, o.Description, o.Time, o.Location,
		o.Supervisor, o.ImageURL, o.Visible, o.UpdatedAt,
		o.ID,
	)
	if err != nil {
		return fmt.Errorf("update query failed: %w", err)
	}
	return expectOneRow(res)
}

func (r *SQLOfferRepository) SetVisibility(ctx context.Context, id string, visible bool) error {
	query := r.db.Rebind(`UPDATE offers SET visible = ?, updated_at = ? WHERE id = ?`)

	res, err := r.db.ExecContext(ctx, query, visible, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("visibility update failed: %w", err)
	}
	return expectOneRow(res)
}

func (r *SQLOfferRepository) Delete(ctx context.Context, id string) error {
	query := r.db.Rebind(`DELETE FROM offers WHERE id = ?`)

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete query failed: %w", err)
	}
	return expectOneRow(res)
}

func (r *SQLOfferRepository) ListByDates(ctx context.Context, dates []string) ([]*domain.Offer, error) {
	if len(dates) == 0 {
		return []*domain.Offer{}, nil
	}

	query, args, err := sqlx.In(`
        SELECT `+offerColumns+`
        FROM offers
        WHERE offer_date IN (?)
        ORDER BY offer_date ASC, start_time IS NULL, start_time ASC`, dates)
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	offers := []*domain.Offer{}
	if err := r.db.SelectContext(ctx, &offers, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	return offers, nil
}

func (r *SQLOfferRepository) ListBefore(ctx context.Context, date string) ([]domain.StaleOffer, error) {
	query := r.db.Rebind(`SELECT id, image_url FROM offers WHERE offer_date < ?`)

	stale := []domain.StaleOffer{}
	if err := r.db.SelectContext(ctx, &stale, query, date); err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	return stale, nil
}

func (r *SQLOfferRepository) DeleteByIDs(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	query, args, err := sqlx.In(`DELETE FROM offers WHERE id IN (?)`, ids)
	if err != nil {
		return 0, fmt.Errorf("failed to build query: %w", err)
	}

	res, err := r.db.ExecContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return 0, fmt.Errorf("batch delete failed: %w", err)
	}
	return res.RowsAffected()
}

func (r *SQLOfferRepository) Sample(ctx context.Context, limit int) ([]*domain.Offer, error) {
	query := r.db.Rebind(`SELECT ` + offerColumns + ` FROM offers LIMIT ?`)

	offers := []*domain.Offer{}
	if err := r.db.SelectContext(ctx, &offers, query, limit); err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	return offers, nil
}

func expectOneRow(res sql.Result) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrOfferNotFound
	}
	return nil
}
