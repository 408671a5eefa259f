package domain

import "time"

type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 3
	case SeverityWarning:
		return 2
	case SeverityInfo:
		return 1
	}
	return 0
}

// Metric names double as alert kinds and risk score component names.
const (
	MetricMarginPct           = "margin_pct"
	MetricDailyLoss           = "daily_loss"
	MetricDrawdown            = "drawdown"
	MetricDLeverage           = "d_leverage"
	MetricVaRMonthly          = "var_monthly"
	MetricCorrelation         = "correlation"
	MetricSectorConcentration = "sector_concentration"
	MetricRiskScore           = "risk_score"
)

var ScoreMetrics = []string{
	MetricMarginPct,
	MetricDailyLoss,
	MetricDrawdown,
	MetricDLeverage,
	MetricVaRMonthly,
	MetricCorrelation,
	MetricSectorConcentration,
}

const SubjectAccount = "account"

// Thresholds are the configured alert limits. Percent-valued limits are in
// percent points; daily_loss and drawdown are negative.
type Thresholds struct {
	MarginPct           float64 `json:"margin_pct" yaml:"margin_pct"`
	DailyLoss           float64 `json:"daily_loss" yaml:"daily_loss"`
	Drawdown            float64 `json:"drawdown" yaml:"drawdown"`
	DLeverage           float64 `json:"d_leverage" yaml:"d_leverage"`
	VaRMonthly          float64 `json:"var_monthly" yaml:"var_monthly"`
	Correlation         float64 `json:"correlation" yaml:"correlation"`
	SectorConcentration float64 `json:"sector_concentration" yaml:"sector_concentration"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		MarginPct:           50,
		DailyLoss:           -6,
		Drawdown:            -10,
		DLeverage:           16.25,
		VaRMonthly:          0.8,
		Correlation:         7,
		SectorConcentration: 25,
	}
}

func (t Thresholds) For(metric string) (float64, bool) {
	switch metric {
	case MetricMarginPct:
		return t.MarginPct, true
	case MetricDailyLoss:
		return t.DailyLoss, true
	case MetricDrawdown:
		return t.Drawdown, true
	case MetricDLeverage:
		return t.DLeverage, true
	case MetricVaRMonthly:
		return t.VaRMonthly, true
	case MetricCorrelation:
		return t.Correlation, true
	case MetricSectorConcentration:
		return t.SectorConcentration, true
	}
	return 0, false
}

// Metric is one live value checked against its threshold.
type Metric struct {
	Name      string  `json:"name"`
	Subject   string  `json:"subject"`
	Value     float64 `json:"value"`
	Available bool    `json:"available"`
	Reason    string  `json:"reason,omitempty"`
}

type Alert struct {
	ID         string    `json:"id"`
	Kind       string    `json:"kind"`
	Subject    string    `json:"subject"`
	Severity   Severity  `json:"severity"`
	Message    string    `json:"message"`
	Suggestion string    `json:"suggestion"`
	Value      float64   `json:"value"`
	Threshold  float64   `json:"threshold"`
	Timestamp  time.Time `json:"timestamp"`
}

type Suggestion struct {
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}
