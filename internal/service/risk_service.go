package service

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/louisruiz/mt5-trading-analyzer/internal/alerts"
	"github.com/louisruiz/mt5-trading-analyzer/internal/config"
	"github.com/louisruiz/mt5-trading-analyzer/internal/domain"
	"github.com/louisruiz/mt5-trading-analyzer/internal/metrics"
	"github.com/louisruiz/mt5-trading-analyzer/internal/riskscore"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// SnapshotProvider is the broker-side collaborator. Implementations bound
// their own I/O time.
type SnapshotProvider interface {
	FetchSnapshot(ctx context.Context) (domain.Snapshot, error)
}

type SettingsProvider interface {
	Current() config.Settings
	Reload() (bool, error)
}

// ReportMirror keeps a copy of the latest report for other processes.
type ReportMirror interface {
	StoreReport(ctx context.Context, report *domain.RiskReport) error
}

type HistoryStore interface {
	SaveAlerts(ctx context.Context, alerts []domain.Alert) error
	SaveScore(ctx context.Context, cycle int64, at time.Time, score domain.RiskScore) error
}

type AlertNotifier interface {
	NotifyAlerts(ctx context.Context, alerts []domain.Alert) error
}

type ReportBroadcaster interface {
	Broadcast(report *domain.RiskReport)
}

// Sinks receive a report after it is published. All of them are optional.
type Sinks struct {
	Mirror      ReportMirror
	History     HistoryStore
	Notifier    AlertNotifier
	Broadcaster ReportBroadcaster
}

type RiskService struct {
	tracer   trace.Tracer
	provider SnapshotProvider
	settings SettingsProvider
	alerts   *alerts.Engine
	opts     AnalyzeOptions
	sinks    Sinks
	series   *SeriesStore
	now      func() time.Time

	latest atomic.Pointer[domain.RiskReport]
	cycle  atomic.Int64
}

func NewRiskService(
	tracer trace.Tracer,
	provider SnapshotProvider,
	settings SettingsProvider,
	alertEngine *alerts.Engine,
	opts AnalyzeOptions,
	sinks Sinks,
) *RiskService {
	if alertEngine == nil {
		alertEngine = alerts.NewEngine(alerts.DefaultOptions(), nil)
	}
	return &RiskService{
		tracer:   tracer,
		provider: provider,
		settings: settings,
		alerts:   alertEngine,
		opts:     opts,
		sinks:    sinks,
		series:   NewSeriesStore(),
		now:      time.Now,
	}
}

// Latest returns the last published report, or nil before the first cycle.
// The report must be treated as read-only.
func (s *RiskService) Latest() *domain.RiskReport {
	return s.latest.Load()
}

// SetNotifier attaches the alert notifier. Call it before the first cycle.
func (s *RiskService) SetNotifier(n AlertNotifier) { s.sinks.Notifier = n }

func (s *RiskService) Series() *SeriesStore {
	return s.series
}

func (s *RiskService) AlertHistory() *alerts.History {
	return s.alerts.History()
}

func (s *RiskService) Settings() config.Settings {
	return s.settings.Current()
}

// RunCycle fetches a snapshot, recomputes every section and publishes the
// result in one atomic swap. A cancelled context before the swap discards
// the result.
func (s *RiskService) RunCycle(ctx context.Context) (*domain.RiskReport, error) {
	ctx, span := s.tracer.Start(ctx, "risk-service.run-cycle")
	defer span.End()
	start := time.Now()

	if _, err := s.settings.Reload(); err != nil {
		log.Printf("Warning: settings reload failed, keeping previous snapshot: %v", err)
	}
	st := s.settings.Current()

	snap, err := s.provider.FetchSnapshot(ctx)
	if err != nil {
		metrics.ObserveCycle(result(ctx), time.Since(start))
		return nil, fmt.Errorf("fetch snapshot: %w", err)
	}

	s.series.Replace(snap)
	snap, _ = s.series.Snapshot()

	opts := s.opts
	opts.Now = s.now()
	report, err := Analyze(snap, st, opts)
	if err != nil {
		metrics.ObserveCycle("error", time.Since(start))
		return nil, fmt.Errorf("analyze snapshot: %w", err)
	}

	if err := ctx.Err(); err != nil {
		metrics.ObserveCycle("canceled", time.Since(start))
		return nil, err
	}

	fresh, suggestions := s.alerts.Evaluate(alertInput(report, st))
	report.Alerts = fresh
	report.Suggestions = suggestions
	report.Cycle = s.cycle.Add(1)
	s.latest.Store(report)

	span.SetAttributes(
		attribute.Int64("cycle", report.Cycle),
		attribute.Float64("risk_score", report.Score.Score),
		attribute.Int("alerts", len(fresh)),
	)
	metrics.ObserveCycle("ok", time.Since(start))
	metrics.ObserveScore(report.Score)
	metrics.ObserveAlerts(fresh)

	s.fanOut(ctx, report)
	log.Printf("Risk cycle %d: score=%.1f band=%s alerts=%d", report.Cycle, report.Score.Score, report.Score.Band, len(fresh))
	return report, nil
}

// Refresh satisfies the job runner; the report itself is reachable via Latest.
func (s *RiskService) Refresh(ctx context.Context) error {
	_, err := s.RunCycle(ctx)
	return err
}

func (s *RiskService) fanOut(ctx context.Context, report *domain.RiskReport) {
	// the report is already published; side effects must not be cut short
	ctx = context.WithoutCancel(ctx)

	if s.sinks.Mirror != nil {
		if err := s.sinks.Mirror.StoreReport(ctx, report); err != nil {
			log.Printf("report mirror error: %v", err)
		}
	}
	if s.sinks.History != nil {
		if err := s.sinks.History.SaveAlerts(ctx, report.Alerts); err != nil {
			log.Printf("alert history write error: %v", err)
		}
		if report.Score.Available {
			if err := s.sinks.History.SaveScore(ctx, report.Cycle, report.GeneratedAt, report.Score); err != nil {
				log.Printf("risk score history write error: %v", err)
			}
		}
	}
	if s.sinks.Notifier != nil && len(report.Alerts) > 0 {
		if err := s.sinks.Notifier.NotifyAlerts(ctx, report.Alerts); err != nil {
			log.Printf("alert notification error: %v", err)
		}
	}
	if s.sinks.Broadcaster != nil {
		s.sinks.Broadcaster.Broadcast(report)
	}
}

func alertInput(r *domain.RiskReport, st config.Settings) alerts.Input {
	opts := alerts.DefaultOptions()
	opts.Cooldown = time.Duration(st.Analytics.CooldownMinutes) * time.Minute
	opts.InfoRatio = st.Analytics.InfoRatio
	opts.CriticalRatio = st.Analytics.CriticalRatio
	return alerts.Input{
		Metrics:    riskscore.Metrics(r),
		Score:      r.Score,
		Leverage:   r.Leverage,
		Thresholds: st.AlertThresholds,
		Bands:      st.RiskScore.Bands,
		Now:        r.GeneratedAt,
		Options:    &opts,
	}
}

func result(ctx context.Context) string {
	if ctx.Err() != nil {
		return "canceled"
	}
	return "error"
}
