package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/louisruiz/mt5-trading-analyzer/internal/domain"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ErrNoAccount means the bridge has not written any account snapshot yet.
var ErrNoAccount = errors.New("no account snapshot recorded")

const positionColumns = `ticket, symbol, direction, volume, contract_size, open_price, current_price,
		        open_time, close_time, swap, profit`

// SnapshotRepository reads the tables the MT5 bridge writes and assembles a
// domain.Snapshot for one refresh cycle.
type SnapshotRepository struct {
	pool        PgxPool
	tracer      trace.Tracer
	historyDays func() int
	now         func() time.Time
}

// NewSnapshotRepository bounds the equity and closed-trade history to the
// window returned by historyDays, read on every fetch so settings reloads
// apply.
func NewSnapshotRepository(pool PgxPool, tracer trace.Tracer, historyDays func() int) *SnapshotRepository {
	if historyDays == nil {
		historyDays = func() int { return 90 }
	}
	return &SnapshotRepository{pool: pool, tracer: tracer, historyDays: historyDays, now: time.Now}
}

func (r *SnapshotRepository) FetchSnapshot(ctx context.Context) (domain.Snapshot, error) {
	ctx, span := r.tracer.Start(ctx, "snapshot-repo.fetch")
	defer span.End()

	var snap domain.Snapshot
	acc, capturedAt, err := r.latestAccount(ctx)
	if err != nil {
		return snap, err
	}
	snap.Account = acc
	snap.FetchedAt = capturedAt

	days := r.historyDays()
	if days <= 0 {
		days = 90
	}
	since := r.now().UTC().AddDate(0, 0, -days)
	span.SetAttributes(attribute.Int64("login", acc.Login), attribute.Int("history_days", days))

	if snap.Equity, err = r.equity(ctx, acc.Login, since); err != nil {
		return snap, fmt.Errorf("load equity points: %w", err)
	}
	if snap.Positions, err = r.positions(ctx,
		`SELECT `+positionColumns+`
		 FROM positions
		 WHERE login = $1 AND close_time IS NULL
		 ORDER BY ticket`, acc.Login); err != nil {
		return snap, fmt.Errorf("load open positions: %w", err)
	}
	if snap.Closed, err = r.positions(ctx,
		`SELECT `+positionColumns+`
		 FROM positions
		 WHERE login = $1 AND close_time IS NOT NULL AND close_time >= $2
		 ORDER BY close_time`, acc.Login, since); err != nil {
		return snap, fmt.Errorf("load closed positions: %w", err)
	}
	return snap, nil
}

func (r *SnapshotRepository) latestAccount(ctx context.Context) (domain.AccountInfo, time.Time, error) {
	var acc domain.AccountInfo
	var capturedAt time.Time
	err := r.pool.QueryRow(ctx,
		`SELECT login, currency, balance, equity, margin, margin_free, captured_at
		 FROM account_snapshots
		 ORDER BY captured_at DESC
		 LIMIT 1`,
	).Scan(&acc.Login, &acc.Currency, &acc.Balance, &acc.Equity, &acc.Margin, &acc.MarginFree, &capturedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return acc, capturedAt, ErrNoAccount
	}
	if err != nil {
		return acc, capturedAt, fmt.Errorf("load account snapshot: %w", err)
	}
	return acc, capturedAt.UTC(), nil
}

func (r *SnapshotRepository) equity(ctx context.Context, login int64, since time.Time) ([]domain.EquityPoint, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT ts, equity, balance
		 FROM equity_points
		 WHERE login = $1 AND ts >= $2
		 ORDER BY ts`,
		login, since,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []domain.EquityPoint
	for rows.Next() {
		var p domain.EquityPoint
		if err := rows.Scan(&p.Timestamp, &p.Equity, &p.Balance); err != nil {
			return nil, err
		}
		p.Timestamp = p.Timestamp.UTC()
		points = append(points, p)
	}
	return points, rows.Err()
}

func (r *SnapshotRepository) positions(ctx context.Context, sql string, args ...any) ([]domain.Position, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Position
	for rows.Next() {
		var p domain.Position
		var dir string
		if err := rows.Scan(&p.Ticket, &p.Symbol, &dir, &p.Volume, &p.ContractSize, &p.OpenPrice,
			&p.CurrentPrice, &p.OpenTime, &p.CloseTime, &p.Swap, &p.Profit); err != nil {
			return nil, err
		}
		p.Direction = domain.Direction(dir)
		out = append(out, p)
	}
	return out, rows.Err()
}
