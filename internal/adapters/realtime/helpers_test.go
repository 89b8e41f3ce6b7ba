package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
)

func pgxConnect(t *testing.T, dsn string) (*pgx.Conn, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return pgx.Connect(ctx, dsn)
}
