package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comitanigiacomo/ferienplan-sync/internal/core/domain"
	"github.com/comitanigiacomo/ferienplan-sync/internal/core/livesync"
)

func setTestEnv(t *testing.T, driver string) {
	t.Setenv("DB_DRIVER", driver)
	t.Setenv("SQLITE_PATH", t.TempDir()+"/offers.db")
	t.Setenv("REALTIME_BACKEND", "none")
	t.Setenv("REDIS_ENABLED", "false")
	t.Setenv("STORAGE_LOCAL_DIR", t.TempDir())
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{"--env-file", ""}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestPingCommand(t *testing.T) {
	setTestEnv(t, "memory")

	out, err := run(t, "ping")
	require.NoError(t, err)

	var res domain.PingResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.True(t, res.Success)
	assert.Equal(t, 0, res.RecordsFound)

	out, err = run(t, "ping", "--keep-alive")
	require.NoError(t, err)
	assert.Contains(t, out, "Keep-alive successful")
}

func TestMigrateCommand(t *testing.T) {
	t.Run("SQLite", func(t *testing.T) {
		setTestEnv(t, "sqlite")

		out, err := run(t, "migrate")
		require.NoError(t, err)
		assert.Contains(t, out, "Schema up to date (sqlite)")

		_, err = run(t, "migrate")
		assert.NoError(t, err, "migrating twice is a no-op")
	})

	t.Run("Memory has no schema", func(t *testing.T) {
		setTestEnv(t, "memory")

		_, err := run(t, "migrate")
		assert.Error(t, err)
	})
}

func TestPurgeCommand(t *testing.T) {
	setTestEnv(t, "sqlite")

	out, err := run(t, "purge")
	require.NoError(t, err)

	var res purgeOutput
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, domain.Yesterday(time.Now().UTC()), res.Cutoff)
	assert.Zero(t, res.Found)
}

func TestPrintSnapshot(t *testing.T) {
	early, err := domain.NewOffer("2024-06-01", domain.OfferDetails{Title: "Basteln", Time: "10:00"})
	require.NoError(t, err)
	hidden, err := domain.NewOffer("2024-06-01", domain.OfferDetails{Title: "Singen"})
	require.NoError(t, err)
	hidden.Visible = false

	var buf bytes.Buffer
	printSnapshot(&buf,
		livesync.Status{Mode: livesync.ModeLive, Confirmed: true},
		livesync.Snapshot{Offers: domain.GroupByDate([]*domain.Offer{early, hidden})},
	)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "mode=LIVE confirmed=true polling=false offers=2")
	assert.Contains(t, lines[1], "2024-06-01 10:00  Basteln")
	assert.Contains(t, lines[2], "2024-06-01 --:--  Singen (hidden)")
}
