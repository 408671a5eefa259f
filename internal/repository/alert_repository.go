package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/louisruiz/mt5-trading-analyzer/internal/domain"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// AlertRepository keeps the long-term alert and risk score history. The
// in-memory alerts.History only holds the most recent entries.
type AlertRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewAlertRepository(pool PgxPool, tracer trace.Tracer) *AlertRepository {
	return &AlertRepository{pool: pool, tracer: tracer}
}

func (r *AlertRepository) SaveAlerts(ctx context.Context, alerts []domain.Alert) error {
	if len(alerts) == 0 {
		return nil
	}

	ctx, span := r.tracer.Start(ctx, "alert-repo.save-alerts")
	defer span.End()
	span.SetAttributes(attribute.Int("alerts", len(alerts)))

	batch := &pgx.Batch{}
	for _, a := range alerts {
		batch.Queue(
			`INSERT INTO alerts (id, kind, subject, severity, message, suggestion, value, threshold, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			 ON CONFLICT (id) DO NOTHING`,
			a.ID, a.Kind, a.Subject, string(a.Severity), a.Message, a.Suggestion, a.Value, a.Threshold, a.Timestamp,
		)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range alerts {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

func (r *AlertRepository) SaveScore(ctx context.Context, cycle int64, at time.Time, score domain.RiskScore) error {
	ctx, span := r.tracer.Start(ctx, "alert-repo.save-score")
	defer span.End()

	components, err := json.Marshal(score.Components)
	if err != nil {
		return fmt.Errorf("encode score components: %w", err)
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO risk_scores (cycle, computed_at, score, band, components)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (computed_at, cycle) DO NOTHING`,
		cycle, at, score.Score, string(score.Band), components,
	)
	return err
}

// RecentAlerts returns up to limit alerts, newest first.
func (r *AlertRepository) RecentAlerts(ctx context.Context, limit int) ([]domain.Alert, error) {
	ctx, span := r.tracer.Start(ctx, "alert-repo.recent-alerts")
	defer span.End()

	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx,
		`SELECT id, kind, subject, severity, message, suggestion, value, threshold, created_at
		 FROM alerts
		 ORDER BY created_at DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Alert
	for rows.Next() {
		var a domain.Alert
		var severity string
		if err := rows.Scan(&a.ID, &a.Kind, &a.Subject, &severity, &a.Message, &a.Suggestion,
			&a.Value, &a.Threshold, &a.Timestamp); err != nil {
			return nil, err
		}
		a.Severity = domain.Severity(severity)
		a.Timestamp = a.Timestamp.UTC()
		out = append(out, a)
	}
	return out, rows.Err()
}

// ScoreHistory returns the scores recorded since the given time, oldest first.
func (r *AlertRepository) ScoreHistory(ctx context.Context, since time.Time) ([]domain.ScorePoint, error) {
	ctx, span := r.tracer.Start(ctx, "alert-repo.score-history")
	defer span.End()

	rows, err := r.pool.Query(ctx,
		`SELECT cycle, computed_at, score, band
		 FROM risk_scores
		 WHERE computed_at >= $1
		 ORDER BY computed_at`,
		since,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ScorePoint
	for rows.Next() {
		var p domain.ScorePoint
		var band string
		if err := rows.Scan(&p.Cycle, &p.ComputedAt, &p.Score, &band); err != nil {
			return nil, err
		}
		p.Band = domain.RiskBand(band)
		p.ComputedAt = p.ComputedAt.UTC()
		out = append(out, p)
	}
	return out, rows.Err()
}
