// Package journal keeps a local SQLite record of alerts and risk scores for
// runs that have no Postgres, such as the offline analyze command.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/louisruiz/mt5-trading-analyzer/internal/domain"

	_ "github.com/mattn/go-sqlite3"
)

type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open journal %s: %w", path, err)
	}
	// sqlite allows a single writer
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply journal schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (j *SQLite) SaveAlerts(ctx context.Context, alerts []domain.Alert) error {
	if len(alerts) == 0 {
		return nil
	}
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO alerts
		(id, kind, subject, severity, message, suggestion, value, threshold, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, a := range alerts {
		if _, err := stmt.ExecContext(ctx,
			a.ID, a.Kind, a.Subject, string(a.Severity), a.Message, a.Suggestion,
			a.Value, a.Threshold, a.Timestamp.UTC(),
		); err != nil {
			return fmt.Errorf("journal alert %s: %w", a.ID, err)
		}
	}
	return tx.Commit()
}

func (j *SQLite) SaveScore(ctx context.Context, cycle int64, at time.Time, score domain.RiskScore) error {
	components, err := json.Marshal(score.Components)
	if err != nil {
		return fmt.Errorf("encode score components: %w", err)
	}
	_, err = j.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO risk_scores (cycle, computed_at, score, band, components)
		VALUES (?, ?, ?, ?, ?)`,
		cycle, at.UTC(), score.Score, string(score.Band), string(components),
	)
	return err
}

// RecentAlerts returns up to limit alerts, newest first.
func (j *SQLite) RecentAlerts(ctx context.Context, limit int) ([]domain.Alert, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, kind, subject, severity, message, suggestion, value, threshold, created_at
		FROM alerts
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, limit)
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
func (j *SQLite) ScoreHistory(ctx context.Context, since time.Time) ([]domain.ScorePoint, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT cycle, computed_at, score, band
		FROM risk_scores
		WHERE computed_at >= ?
		ORDER BY computed_at, cycle`, since.UTC())
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

func (j *SQLite) Close() error {
	return j.db.Close()
}
