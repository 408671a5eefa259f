// Package riskscore folds the live risk metrics into a single 0-100 score.
package riskscore

import (
	"fmt"
	"math"
	"sort"

	"github.com/louisruiz/mt5-trading-analyzer/internal/domain"
	"github.com/louisruiz/mt5-trading-analyzer/internal/stats"
)

const weightTolerance = 1e-6

// Weights maps a metric name to its share of the composite score.
type Weights map[string]float64

func DefaultWeights() Weights {
	return Weights{
		domain.MetricDLeverage:           0.25,
		domain.MetricVaRMonthly:          0.20,
		domain.MetricDrawdown:            0.15,
		domain.MetricMarginPct:           0.15,
		domain.MetricSectorConcentration: 0.10,
		domain.MetricDailyLoss:           0.10,
		domain.MetricCorrelation:         0.05,
	}
}

func (w Weights) Validate() error {
	var sum float64
	for name, v := range w {
		if !isScoreMetric(name) {
			return fmt.Errorf("unknown weight %q: %w", name, domain.ErrConfigurationInvalid)
		}
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("weight %s=%v: %w", name, v, domain.ErrConfigurationInvalid)
		}
		sum += v
	}
	if math.Abs(sum-1) > weightTolerance {
		return fmt.Errorf("weights sum to %.6f, want 1: %w", sum, domain.ErrConfigurationInvalid)
	}
	return nil
}

// Bands holds the lower bound of each band above low.
type Bands struct {
	Medium   float64 `json:"medium" yaml:"medium"`
	High     float64 `json:"high" yaml:"high"`
	Critical float64 `json:"critical" yaml:"critical"`
}

func DefaultBands() Bands {
	return Bands{Medium: 25, High: 50, Critical: 75}
}

func (b Bands) Validate() error {
	if !(0 < b.Medium && b.Medium < b.High && b.High < b.Critical && b.Critical <= 100) {
		return fmt.Errorf("bands %v/%v/%v not increasing within (0,100]: %w",
			b.Medium, b.High, b.Critical, domain.ErrConfigurationInvalid)
	}
	return nil
}

func (b Bands) Classify(score float64) domain.RiskBand {
	switch {
	case score >= b.Critical:
		return domain.BandCritical
	case score >= b.High:
		return domain.BandHigh
	case score >= b.Medium:
		return domain.BandMedium
	default:
		return domain.BandLow
	}
}

// Normalize maps a raw value onto [0,100]; a value at its threshold scores 100.
func Normalize(raw, threshold float64) float64 {
	if threshold == 0 {
		return 0
	}
	ratio := raw / threshold
	if ratio >= 1 {
		return 100
	}
	return stats.Clamp(100*ratio, 0, 100)
}

// Compute scores the available metrics. Weights of unavailable metrics are
// redistributed over the available ones.
func Compute(metrics []domain.Metric, thresholds domain.Thresholds, weights Weights, bands Bands) domain.RiskScore {
	byName := make(map[string]domain.Metric, len(metrics))
	for _, m := range metrics {
		byName[m.Name] = m
	}

	components := make([]domain.RiskComponent, 0, len(domain.ScoreMetrics))
	active := 0.0
	for _, name := range domain.ScoreMetrics {
		threshold, _ := thresholds.For(name)
		c := domain.RiskComponent{Name: name, Threshold: threshold, Weight: weights[name]}
		m, ok := byName[name]
		switch {
		case !ok:
			c.Reason = "metric not reported"
		case !m.Available:
			c.Reason = m.Reason
		default:
			c.Available = true
			c.RawValue = m.Value
			c.Normalized = Normalize(m.Value, threshold)
			active += c.Weight
		}
		components = append(components, c)
	}

	out := domain.RiskScore{Components: components, Band: domain.BandLow}
	if active <= 0 {
		return out
	}

	var score float64
	for _, c := range components {
		if c.Available {
			score += c.Weight / active * c.Normalized
		}
	}
	out.Score = stats.Clamp(score, 0, 100)
	out.Band = bands.Classify(out.Score)
	out.Available = true
	return out
}

// Metrics extracts the scored metrics from a report. Sections that were not
// computed come back unavailable with their reason.
func Metrics(r *domain.RiskReport) []domain.Metric {
	out := make([]domain.Metric, 0, len(domain.ScoreMetrics))
	exposure, exposureReason := availability(r, domain.SectionExposure)

	out = append(out, domain.Metric{
		Name:      domain.MetricMarginPct,
		Subject:   domain.SubjectAccount,
		Value:     r.Exposure.MarginPct,
		Available: exposure,
		Reason:    exposureReason,
	})

	daily := domain.Metric{Name: domain.MetricDailyLoss, Subject: domain.SubjectAccount, Value: r.Exposure.DailyPnLPct}
	switch {
	case !exposure:
		daily.Reason = exposureReason
	case !r.Exposure.DailyPnLDefined:
		daily.Reason = domain.ErrDivisionByZero.Error()
	default:
		daily.Available = true
	}
	out = append(out, daily)

	ok, reason := availability(r, domain.SectionDrawdown)
	out = append(out, domain.Metric{
		Name:      domain.MetricDrawdown,
		Subject:   domain.SubjectAccount,
		Value:     r.Drawdown.CurrentDrawdown * 100,
		Available: ok,
		Reason:    reason,
	})

	lev := domain.Metric{Name: domain.MetricDLeverage, Subject: domain.SubjectAccount, Value: r.Leverage.DLeverage}
	ok, reason = availability(r, domain.SectionLeverage)
	switch {
	case !ok:
		lev.Reason = reason
	case !r.Leverage.Defined:
		lev.Reason = domain.ErrDivisionByZero.Error()
	default:
		lev.Available = true
	}
	out = append(out, lev)

	v := domain.Metric{Name: domain.MetricVaRMonthly, Subject: domain.SubjectAccount}
	ok, reason = availability(r, domain.SectionVaR)
	monthly, found := r.VaR.MonthlyVaR()
	switch {
	case !ok:
		v.Reason = reason
	case !found:
		v.Reason = "monthly 95% VaR missing"
	default:
		v.Available = true
		v.Value = monthly.Value * 100
	}
	out = append(out, v)

	out = append(out, domain.Metric{
		Name:      domain.MetricCorrelation,
		Subject:   subject(r.Exposure.ClusterCurrency),
		Value:     float64(r.Exposure.ClusterSize),
		Available: exposure,
		Reason:    exposureReason,
	})
	out = append(out, domain.Metric{
		Name:      domain.MetricSectorConcentration,
		Subject:   subject(r.Exposure.TopSector),
		Value:     r.Exposure.TopSectorPct,
		Available: exposure,
		Reason:    exposureReason,
	})
	return out
}

func availability(r *domain.RiskReport, s domain.Section) (bool, string) {
	a, ok := r.Availability[s]
	if !ok {
		return false, fmt.Sprintf("%s not computed", s)
	}
	return a.Available, a.Reason
}

func subject(s string) string {
	if s == "" {
		return domain.SubjectAccount
	}
	return s
}

func isScoreMetric(name string) bool {
	i := sort.SearchStrings(sortedMetrics, name)
	return i < len(sortedMetrics) && sortedMetrics[i] == name
}

var sortedMetrics = func() []string {
	out := append([]string(nil), domain.ScoreMetrics...)
	sort.Strings(out)
	return out
}()
