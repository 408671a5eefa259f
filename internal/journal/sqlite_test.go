package journal

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/louisruiz/mt5-trading-analyzer/internal/domain"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLite(t *testing.T) (*SQLite, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "journal.db")
	j, err := NewSQLite(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return j, path
}

func TestSQLiteSchemaCreated(t *testing.T) {
	t.Parallel()

	j, path := newTestSQLite(t)
	require.NoError(t, j.Close())

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	rows, err := db.Query(`SELECT name FROM sqlite_master WHERE type='table' AND name IN ('alerts','risk_scores')`)
	require.NoError(t, err)
	defer rows.Close()

	found := map[string]bool{}
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		found[name] = true
	}
	require.NoError(t, rows.Err())
	assert.True(t, found["alerts"])
	assert.True(t, found["risk_scores"])
}

func TestSQLiteReopenKeepsData(t *testing.T) {
	t.Parallel()

	j, path := newTestSQLite(t)
	at := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)
	require.NoError(t, j.SaveAlerts(context.Background(), []domain.Alert{{ID: "a1", Kind: "drawdown", Severity: domain.SeverityWarning, Message: "m", Timestamp: at}}))
	require.NoError(t, j.Close())

	again, err := NewSQLite(path)
	require.NoError(t, err)
	defer again.Close()
	got, err := again.RecentAlerts(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestSQLiteAlertsNewestFirstAndDeduped(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	ctx := context.Background()
	t0 := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

	first := domain.Alert{
		ID: "01A", Kind: domain.MetricMarginPct, Subject: "account", Severity: domain.SeverityWarning,
		Message: "margin 55%", Suggestion: "close positions", Value: 55, Threshold: 50, Timestamp: t0,
	}
	second := domain.Alert{
		ID: "01B", Kind: domain.MetricDrawdown, Severity: domain.SeverityCritical,
		Message: "drawdown 12%", Value: 12, Threshold: 10, Timestamp: t0.Add(time.Minute),
	}
	require.NoError(t, j.SaveAlerts(ctx, []domain.Alert{first, second}))
	require.NoError(t, j.SaveAlerts(ctx, []domain.Alert{first}))
	require.NoError(t, j.SaveAlerts(ctx, nil))

	got, err := j.RecentAlerts(ctx, 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "01B", got[0].ID)
	assert.Equal(t, first, got[1])

	limited, err := j.RecentAlerts(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestSQLiteScoreHistory(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	ctx := context.Background()
	t0 := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

	score := domain.RiskScore{
		Score: 42, Band: domain.BandMedium, Available: true,
		Components: []domain.RiskComponent{{Name: domain.MetricMarginPct, Weight: 0.2, Available: true}},
	}
	for i := 0; i < 3; i++ {
		s := score
		s.Score += float64(i)
		require.NoError(t, j.SaveScore(ctx, int64(i+1), t0.Add(time.Duration(i)*time.Hour), s))
	}
	require.NoError(t, j.SaveScore(ctx, 1, t0, score), "duplicate cycle is ignored")

	got, err := j.ScoreHistory(ctx, t0.Add(30*time.Minute))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(2), got[0].Cycle)
	assert.Equal(t, 43.0, got[0].Score)
	assert.Equal(t, domain.BandMedium, got[0].Band)
	assert.Equal(t, t0.Add(2*time.Hour), got[1].ComputedAt)
}
