// Package provider holds snapshot sources that do not need a database.
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/louisruiz/mt5-trading-analyzer/internal/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// FileProvider reads a JSON snapshot document on every fetch, so an external
// exporter can overwrite the file between cycles.
type FileProvider struct {
	tracer trace.Tracer
	path   string
}

func NewFileProvider(tracer trace.Tracer, path string) *FileProvider {
	return &FileProvider{tracer: tracer, path: path}
}

func (p *FileProvider) Path() string {
	return p.path
}

func (p *FileProvider) FetchSnapshot(ctx context.Context) (domain.Snapshot, error) {
	_, span := p.tracer.Start(ctx, "file-provider.fetch-snapshot")
	defer span.End()
	span.SetAttributes(attribute.String("path", p.path))

	var snap domain.Snapshot
	info, err := os.Stat(p.path)
	if err != nil {
		return snap, fmt.Errorf("stat snapshot %s: %w", p.path, err)
	}
	data, err := os.ReadFile(p.path)
	if err != nil {
		return snap, fmt.Errorf("read snapshot %s: %w", p.path, err)
	}
	snap, err = DecodeSnapshot(data)
	if err != nil {
		return snap, fmt.Errorf("snapshot %s: %w", p.path, err)
	}
	if snap.FetchedAt.IsZero() {
		snap.FetchedAt = info.ModTime().UTC()
	}
	span.SetAttributes(attribute.Int("equity_points", len(snap.Equity)), attribute.Int("positions", len(snap.Positions)))
	return snap, nil
}

// DecodeSnapshot parses a snapshot document. Directions are accepted in any
// case, and "buy"/"sell" map to long/short.
func DecodeSnapshot(data []byte) (domain.Snapshot, error) {
	var snap domain.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return snap, fmt.Errorf("decode snapshot: %w", err)
	}
	for i := range snap.Positions {
		snap.Positions[i].Direction = direction(snap.Positions[i].Direction)
	}
	for i := range snap.Closed {
		snap.Closed[i].Direction = direction(snap.Closed[i].Direction)
	}
	if snap.Account.Currency == "" {
		snap.Account.Currency = "USD"
	}
	return snap, nil
}

func direction(d domain.Direction) domain.Direction {
	switch strings.ToLower(string(d)) {
	case "long", "buy":
		return domain.DirectionLong
	case "short", "sell":
		return domain.DirectionShort
	}
	return d
}
