package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/louisruiz/mt5-trading-analyzer/internal/config"
	"github.com/louisruiz/mt5-trading-analyzer/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSnapshot(t *testing.T, dir string) string {
	t.Helper()
	start := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	points := make([]domain.EquityPoint, 60)
	eq := 10000.0
	for i := range points {
		if i > 0 {
			eq *= 1 + 0.01*math.Sin(float64(i)) - 0.001
		}
		points[i] = domain.EquityPoint{Timestamp: start.AddDate(0, 0, i), Equity: eq, Balance: 10000}
	}
	snap := domain.Snapshot{
		Account: domain.AccountInfo{Login: 42, Currency: "USD", Balance: 10000, Equity: eq, Margin: 1000, MarginFree: eq - 1000},
		Equity:  points,
		Positions: []domain.Position{
			{Ticket: 1, Symbol: "EURUSD", Direction: domain.DirectionLong, Volume: 1, ContractSize: 100000, OpenPrice: 1.08, CurrentPrice: 1.09, OpenTime: start},
		},
		FetchedAt: start.AddDate(0, 0, 60),
	}
	data, err := json.Marshal(snap)
	require.NoError(t, err)
	path := filepath.Join(dir, "snapshot.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func execute(args ...string) (string, error) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestRunPrintsReport(t *testing.T) {
	dir := t.TempDir()
	snap := writeSnapshot(t, dir)

	out, err := execute("run", "--snapshot", snap, "--seed", "7", "--simulations", "300", "--compact")
	require.NoError(t, err)

	var report domain.RiskReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, int64(1), report.Cycle)
	assert.Equal(t, int64(42), report.Account.Login)
	assert.True(t, report.IsAvailable(domain.SectionVaR))
	assert.True(t, report.VaR.Seeded)
	assert.Equal(t, uint64(7), report.VaR.Seed)
}

func TestRunSameSeedSameVaR(t *testing.T) {
	dir := t.TempDir()
	snap := writeSnapshot(t, dir)

	var runs [2]domain.RiskReport
	for i := range runs {
		out, err := execute("run", "--snapshot", snap, "--seed", "11", "--simulations", "300", "--strict")
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal([]byte(out), &runs[i]))
	}
	assert.Equal(t, runs[0].VaR, runs[1].VaR)
}

func TestRunStrictNeedsSeed(t *testing.T) {
	snap := writeSnapshot(t, t.TempDir())

	_, err := execute("run", "--snapshot", snap, "--strict", "--simulations", "100")
	assert.True(t, errors.Is(err, domain.ErrSimulationNonDeterminism), "got %v", err)
}

func TestRunRequiresSnapshot(t *testing.T) {
	_, err := execute("run")
	assert.Error(t, err)
}

func TestRunBadSettingsFile(t *testing.T) {
	dir := t.TempDir()
	snap := writeSnapshot(t, dir)
	bad := filepath.Join(dir, "settings.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0o644))

	_, err := execute("run", "--snapshot", snap, "--settings", bad, "--seed", "1")
	assert.Error(t, err)
}

func TestRunJournalsAlerts(t *testing.T) {
	dir := t.TempDir()
	snap := writeSnapshot(t, dir)
	settings := filepath.Join(dir, "settings.json")
	require.NoError(t, os.WriteFile(settings, []byte(`{"alert_thresholds": {"margin_pct": 5}}`), 0o644))
	journalPath := filepath.Join(dir, "journal.db")

	_, err := execute("run", "--snapshot", snap, "--settings", settings, "--seed", "3",
		"--simulations", "200", "--journal", journalPath)
	require.NoError(t, err)

	out, err := execute("alerts", "--journal", journalPath)
	require.NoError(t, err)
	assert.Contains(t, out, domain.MetricMarginPct)

	out, err = execute("scores", "--journal", journalPath, "--since", "87600h")
	require.NoError(t, err)
	assert.Contains(t, out, "cycle 1")
}

func TestAlertsEmptyJournal(t *testing.T) {
	out, err := execute("alerts", "--journal", filepath.Join(t.TempDir(), "empty.db"))
	require.NoError(t, err)
	assert.Equal(t, "No alerts.", strings.TrimSpace(out))
}

func TestSettingsInitAndPrint(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")

	out, err := execute("settings", "--settings", path, "--init")
	require.NoError(t, err)
	assert.Contains(t, out, "wrote default settings")

	_, err = execute("settings", "--settings", path, "--init")
	assert.Error(t, err, "init must not overwrite")

	out, err = execute("settings", "--settings", path)
	require.NoError(t, err)
	var st config.Settings
	require.NoError(t, json.Unmarshal([]byte(out), &st))
	assert.Equal(t, config.DefaultSettings().AlertThresholds, st.AlertThresholds)
}
