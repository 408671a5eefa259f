package domain

import (
	"math"
	"time"
)

type VaRMethod string

const (
	VaRParametric VaRMethod = "parametric"
	VaRHistorical VaRMethod = "historical"
	VaRMonteCarlo VaRMethod = "monte_carlo"
)

var VaRMethods = []VaRMethod{VaRParametric, VaRHistorical, VaRMonteCarlo}

// Horizon is a named holding period expressed in return periods.
type Horizon struct {
	Name    string `json:"name"`
	Periods int    `json:"periods"`
}

var (
	HorizonDay   = Horizon{Name: "1d", Periods: 1}
	HorizonWeek  = Horizon{Name: "1w", Periods: 5}
	HorizonMonth = Horizon{Name: "1m", Periods: 22}
)

var DefaultHorizons = []Horizon{HorizonDay, HorizonWeek, HorizonMonth}

var DefaultConfidences = []float64{0.95, 0.99}

// VaRResult values are positive loss fractions of equity.
type VaRResult struct {
	Method            VaRMethod `json:"method"`
	Horizon           string    `json:"horizon"`
	Periods           int       `json:"periods"`
	Confidence        float64   `json:"confidence"`
	Value             float64   `json:"value"`
	ExpectedShortfall float64   `json:"expected_shortfall"`
}

// VaRRatio is max/min of rolling monthly VaR. Defined is false when the
// minimum is not strictly positive.
type VaRRatio struct {
	Value   float64 `json:"value"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Windows int     `json:"windows"`
	Defined bool    `json:"defined"`
}

type VaRReport struct {
	Results []VaRResult `json:"results"`
	Ratio   VaRRatio    `json:"ratio"`
	Samples int         `json:"samples"`
	Mean    float64     `json:"mean"`
	StdDev  float64     `json:"std_dev"`
	Partial bool        `json:"partial"`
	Missing []VaRMethod `json:"missing,omitempty"`
	Seed    uint64      `json:"seed"`
	Seeded  bool        `json:"seeded"`
}

func (r VaRReport) Find(method VaRMethod, horizon string, confidence float64) (VaRResult, bool) {
	for _, res := range r.Results {
		if res.Method == method && res.Horizon == horizon && math.Abs(res.Confidence-confidence) < 1e-9 {
			return res, true
		}
	}
	return VaRResult{}, false
}

// MonthlyVaR is the 95% one-month figure used for scoring and alerting:
// historical when available, parametric otherwise.
func (r VaRReport) MonthlyVaR() (VaRResult, bool) {
	if res, ok := r.Find(VaRHistorical, HorizonMonth.Name, 0.95); ok {
		return res, true
	}
	return r.Find(VaRParametric, HorizonMonth.Name, 0.95)
}

type DrawdownEpisode struct {
	StartIndex    int           `json:"start_index"`
	TroughIndex   int           `json:"trough_index"`
	EndIndex      int           `json:"end_index"`
	RecoveryIndex int           `json:"recovery_index"`
	StartTime     time.Time     `json:"start_time"`
	EndTime       time.Time     `json:"end_time"`
	PeakValue     float64       `json:"peak_value"`
	TroughValue   float64       `json:"trough_value"`
	DepthPct      float64       `json:"depth_pct"`
	Duration      int           `json:"duration"`
	Span          time.Duration `json:"span"`
	Active        bool          `json:"active"`
}

type TrendDirection string

const (
	TrendUp   TrendDirection = "up"
	TrendDown TrendDirection = "down"
)

type TrendChange struct {
	Index     int            `json:"index"`
	Timestamp time.Time      `json:"timestamp"`
	Direction TrendDirection `json:"direction"`
}

// DrawdownReport values are fractions (-0.0667 is -6.67%).
type DrawdownReport struct {
	Series          []float64         `json:"series"`
	Episodes        []DrawdownEpisode `json:"episodes"`
	MaxDrawdown     float64           `json:"max_drawdown"`
	CurrentDrawdown float64           `json:"current_drawdown"`
	PainIndex       float64           `json:"pain_index"`
	UlcerIndex      float64           `json:"ulcer_index"`
	TrendChanges    []TrendChange     `json:"trend_changes"`
}

type TradingStyle string

const (
	StyleNone     TradingStyle = "none"
	StyleScalping TradingStyle = "scalping"
	StyleIntraday TradingStyle = "intraday"
	StyleSwing    TradingStyle = "swing"
)

type Rating string

const (
	RatingPoor       Rating = "poor"
	RatingAcceptable Rating = "acceptable"
	RatingGood       Rating = "good"
	RatingVeryGood   Rating = "very_good"
	RatingExcellent  Rating = "excellent"
	RatingOptimal    Rating = "optimal"
	RatingExcessive  Rating = "excessive"
	RatingUndefined  Rating = "undefined"
)

type ResizeSuggestion struct {
	Ticket    int64   `json:"ticket"`
	Symbol    string  `json:"symbol"`
	Volume    float64 `json:"volume"`
	NewVolume float64 `json:"new_volume"`
	ReducePct float64 `json:"reduce_pct"`
}

type LeverageReport struct {
	DLeverage         float64            `json:"d_leverage"`
	Defined           bool               `json:"defined"`
	Style             TradingStyle       `json:"style"`
	AvgHoldingMinutes float64            `json:"avg_holding_minutes"`
	Threshold         float64            `json:"threshold"`
	Exceeded          bool               `json:"exceeded"`
	ScaleFactor       float64            `json:"scale_factor"`
	Suggestions       []ResizeSuggestion `json:"suggestions,omitempty"`
	Rating            Rating             `json:"rating"`
}

type SymbolAllocation struct {
	Symbol   string  `json:"symbol"`
	Notional float64 `json:"notional"`
	Pct      float64 `json:"pct"`
}

type ExposureReport struct {
	GrossNotional    float64            `json:"gross_notional"`
	LongNotional     float64            `json:"long_notional"`
	ShortNotional    float64            `json:"short_notional"`
	NetNotional      float64            `json:"net_notional"`
	LongPct          float64            `json:"long_pct"`
	ShortPct         float64            `json:"short_pct"`
	HHI              float64            `json:"hhi"`
	Top3Pct          float64            `json:"top3_pct"`
	MaxExposurePct   float64            `json:"max_exposure_pct"`
	Allocations      []SymbolAllocation `json:"allocations"`
	Sectors          map[string]float64 `json:"sectors"`
	TopSector        string             `json:"top_sector"`
	TopSectorPct     float64            `json:"top_sector_pct"`
	ClusterCurrency  string             `json:"cluster_currency"`
	ClusterDirection Direction          `json:"cluster_direction"`
	ClusterSize      int                `json:"cluster_size"`
	MarginPct        float64            `json:"margin_pct"`
	DailyPnLPct      float64            `json:"daily_pnl_pct"`
	DailyPnLDefined  bool               `json:"daily_pnl_defined"`
	Recommendations  []string           `json:"recommendations"`
	Durations        []DurationBucket   `json:"durations"`
	Sizing           PositionSizing     `json:"sizing"`
}

// DurationBucket groups open positions by how long they have been held.
type DurationBucket struct {
	Label         string  `json:"label"`
	Positions     int     `json:"positions"`
	Notional      float64 `json:"notional"`
	Pct           float64 `json:"pct"`
	LongNotional  float64 `json:"long_notional"`
	ShortNotional float64 `json:"short_notional"`
}

// PositionSizing describes single position sizes relative to equity. HHI is
// taken over the individual positions rather than over symbols.
type PositionSizing struct {
	Defined bool    `json:"defined"`
	Count   int     `json:"count"`
	AvgPct  float64 `json:"avg_pct"`
	MaxPct  float64 `json:"max_pct"`
	MinPct  float64 `json:"min_pct"`
	HHI     float64 `json:"hhi"`
}

type PerformanceReport struct {
	TotalReturnPct  float64 `json:"total_return_pct"`
	AnnualReturnPct float64 `json:"annual_return_pct"`
	VolatilityPct   float64 `json:"volatility_pct"`
	Sharpe          float64 `json:"sharpe"`
	Sortino         float64 `json:"sortino"`
	Calmar          float64 `json:"calmar"`
	MaxDrawdownPct  float64 `json:"max_drawdown_pct"`
	WinRatio        float64 `json:"win_ratio"`
	BestPct         float64 `json:"best_pct"`
	WorstPct        float64 `json:"worst_pct"`
	Skew            float64 `json:"skew"`
	ExcessKurtosis  float64 `json:"excess_kurtosis"`
	SharpeRating    Rating  `json:"sharpe_rating"`
	SortinoRating   Rating  `json:"sortino_rating"`
	CalmarRating    Rating  `json:"calmar_rating"`

	RollingWindow int            `json:"rolling_window"`
	Rolling       []RollingPoint `json:"rolling"`
}

// RollingPoint holds the metrics of the window ending at Timestamp.
type RollingPoint struct {
	Timestamp      time.Time `json:"timestamp"`
	ReturnPct      float64   `json:"return_pct"`
	VolatilityPct  float64   `json:"volatility_pct"`
	Sharpe         float64   `json:"sharpe"`
	SharpeDefined  bool      `json:"sharpe_defined"`
	MaxDrawdownPct float64   `json:"max_drawdown_pct"`
}

type RiskBand string

const (
	BandLow      RiskBand = "low"
	BandMedium   RiskBand = "medium"
	BandHigh     RiskBand = "high"
	BandCritical RiskBand = "critical"
)

type RiskComponent struct {
	Name       string  `json:"name"`
	RawValue   float64 `json:"raw_value"`
	Threshold  float64 `json:"threshold"`
	Normalized float64 `json:"normalized"`
	Weight     float64 `json:"weight"`
	Available  bool    `json:"available"`
	Reason     string  `json:"reason,omitempty"`
}

type RiskScore struct {
	Score      float64         `json:"score"`
	Band       RiskBand        `json:"band"`
	Components []RiskComponent `json:"components"`
	Available  bool            `json:"available"`
}

// ScorePoint is one archived composite score.
type ScorePoint struct {
	Cycle      int64     `json:"cycle"`
	ComputedAt time.Time `json:"computed_at"`
	Score      float64   `json:"score"`
	Band       RiskBand  `json:"band"`
}

func (s RiskScore) Component(name string) (RiskComponent, bool) {
	for _, c := range s.Components {
		if c.Name == name {
			return c, true
		}
	}
	return RiskComponent{}, false
}
