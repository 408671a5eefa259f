package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/louisruiz/mt5-trading-analyzer/internal/domain"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"
)

const (
	ReportKey  = "mt5:risk:report"
	DefaultTTL = 10 * time.Minute
)

// ErrNoReport is returned by LoadReport when no report has been mirrored or
// the mirrored one expired.
var ErrNoReport = errors.New("no risk report cached")

type RedisClient interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
}

// ReportCache mirrors the latest published report into Redis so the SSH
// dashboard and MCP processes can read it without running the analytics.
type ReportCache struct {
	tracer trace.Tracer
	redis  RedisClient
	ttl    time.Duration
}

func NewReportCache(tracer trace.Tracer, client RedisClient, ttl time.Duration) *ReportCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &ReportCache{tracer: tracer, redis: client, ttl: ttl}
}

func (c *ReportCache) StoreReport(ctx context.Context, report *domain.RiskReport) error {
	ctx, span := c.tracer.Start(ctx, "report-cache.store")
	defer span.End()

	if report == nil {
		return nil
	}
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return c.redis.Set(ctx, ReportKey, data, c.ttl).Err()
}

func (c *ReportCache) LoadReport(ctx context.Context) (*domain.RiskReport, error) {
	ctx, span := c.tracer.Start(ctx, "report-cache.load")
	defer span.End()

	data, err := c.redis.Get(ctx, ReportKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoReport
	}
	if err != nil {
		return nil, err
	}
	var report domain.RiskReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("decode cached report: %w", err)
	}
	return &report, nil
}
