package repository

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/louisruiz/mt5-trading-analyzer/internal/domain"
)

func TestSnapshotRepository_FetchSnapshot(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	opened := now.Add(-48 * time.Hour)
	closed := now.Add(-24 * time.Hour)

	pool := &fakePool{
		row: &fakeRow{values: []any{int64(7), "USD", 10000.0, 10250.0, 500.0, 9750.0, now}},
		rows: []*fakeRows{
			{data: [][]any{
				{now.Add(-2 * time.Hour), 10100.0, 10000.0},
				{now.Add(-time.Hour), 10250.0, 10000.0},
			}},
			{data: [][]any{
				{int64(11), "EURUSD", "long", 1.0, 100000.0, 1.08, 1.09, opened, nil, -2.5, 1000.0},
			}},
			{data: [][]any{
				{int64(9), "XAUUSD", "short", 0.5, 100.0, 2000.0, 1990.0, opened, closed, 0.0, 500.0},
			}},
		},
	}
	repo := NewSnapshotRepository(pool, testTracer, func() int { return 30 })
	repo.now = func() time.Time { return now }

	snap, err := repo.FetchSnapshot(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.Account.Login != 7 || snap.Account.Equity != 10250 || !snap.FetchedAt.Equal(now) {
		t.Fatalf("unexpected account: %+v", snap.Account)
	}
	if len(snap.Equity) != 2 || snap.Equity[1].Equity != 10250 {
		t.Fatalf("unexpected equity: %+v", snap.Equity)
	}
	if len(snap.Positions) != 1 || snap.Positions[0].Direction != domain.DirectionLong || snap.Positions[0].CloseTime != nil {
		t.Fatalf("unexpected open positions: %+v", snap.Positions)
	}
	if len(snap.Closed) != 1 || snap.Closed[0].CloseTime == nil || !snap.Closed[0].CloseTime.Equal(closed) {
		t.Fatalf("unexpected closed positions: %+v", snap.Closed)
	}

	// account row, equity, open, closed
	if len(pool.queries) != 4 {
		t.Fatalf("expected 4 queries, got %d", len(pool.queries))
	}
	since := pool.queries[1].args[1].(time.Time)
	if !since.Equal(now.AddDate(0, 0, -30)) {
		t.Fatalf("expected a 30 day window, got %s", since)
	}
	if !strings.Contains(pool.queries[2].sql, "close_time IS NULL") {
		t.Fatalf("expected open positions query, got %s", pool.queries[2].sql)
	}
}

func TestSnapshotRepository_NoAccount(t *testing.T) {
	repo := NewSnapshotRepository(&fakePool{}, testTracer, nil)
	if _, err := repo.FetchSnapshot(context.Background()); !errors.Is(err, ErrNoAccount) {
		t.Fatalf("expected ErrNoAccount, got %v", err)
	}
}

func TestSnapshotRepository_QueryError(t *testing.T) {
	pool := &fakePool{
		row:  &fakeRow{values: []any{int64(7), "USD", 1.0, 1.0, 0.0, 1.0, time.Now()}},
		rows: []*fakeRows{{queryErr: errors.New("relation does not exist")}},
	}
	repo := NewSnapshotRepository(pool, testTracer, nil)
	if _, err := repo.FetchSnapshot(context.Background()); err == nil {
		t.Fatal("expected query error")
	}
}
