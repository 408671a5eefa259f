// Package metrics exposes refresh-cycle and alerting counters to Prometheus.
package metrics

import (
	"time"

	"github.com/louisruiz/mt5-trading-analyzer/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "mt5"

var (
	cycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "refresh_cycle_duration_seconds",
			Help:      "Duration of a full analytics refresh cycle",
			Buckets:   prometheus.DefBuckets,
		},
	)

	cyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_cycles_total",
			Help:      "Refresh cycles by result",
		},
		[]string{"result"},
	)

	skippedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_skipped_total",
			Help:      "Refresh ticks skipped because a cycle was still running",
		},
	)

	riskScore = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "risk_score",
			Help:      "Latest composite risk score (0-100)",
		},
	)

	componentScore = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "risk_component_normalized",
			Help:      "Latest normalized risk component value (0-100)",
		},
		[]string{"component"},
	)

	alertsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_total",
			Help:      "Alerts emitted after deduplication",
		},
		[]string{"kind", "severity"},
	)
)

// ObserveCycle records one finished cycle. result is "ok", "error" or "canceled".
func ObserveCycle(result string, d time.Duration) {
	cyclesTotal.WithLabelValues(result).Inc()
	cycleDuration.Observe(d.Seconds())
}

func SkippedTick() {
	skippedTotal.Inc()
}

func ObserveScore(s domain.RiskScore) {
	if !s.Available {
		return
	}
	riskScore.Set(s.Score)
	for _, c := range s.Components {
		if c.Available {
			componentScore.WithLabelValues(c.Name).Set(c.Normalized)
		}
	}
}

func ObserveAlerts(alerts []domain.Alert) {
	for _, a := range alerts {
		alertsTotal.WithLabelValues(a.Kind, string(a.Severity)).Inc()
	}
}
