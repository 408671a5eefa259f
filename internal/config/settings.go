package config

import (
	"encoding/json"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/louisruiz/mt5-trading-analyzer/internal/domain"
	"github.com/louisruiz/mt5-trading-analyzer/internal/riskscore"

	"gopkg.in/yaml.v3"
)

// Settings is the user-editable analytics configuration. A loaded value is
// never mutated; a refresh cycle works on the snapshot it started with.
type Settings struct {
	AlertThresholds    domain.Thresholds `json:"alert_thresholds" yaml:"alert_thresholds"`
	UISettings         map[string]any    `json:"ui_settings,omitempty" yaml:"ui_settings,omitempty"`
	EmailNotifications map[string]any    `json:"email_notifications,omitempty" yaml:"email_notifications,omitempty"`
	DataRefresh        DataRefresh       `json:"data_refresh" yaml:"data_refresh"`
	RiskScore          RiskScore         `json:"risk_score" yaml:"risk_score"`
	Analytics          Analytics         `json:"analytics" yaml:"analytics"`

	// Invalid lists the fields that were replaced by their default.
	Invalid []error `json:"-" yaml:"-"`
}

type DataRefresh struct {
	Enabled         bool `json:"enabled" yaml:"enabled"`
	IntervalSeconds int  `json:"interval_seconds" yaml:"interval_seconds"`
	HistoryDays     int  `json:"history_days" yaml:"history_days"`
}

type RiskScore struct {
	Weights riskscore.Weights `json:"weights" yaml:"weights"`
	Bands   riskscore.Bands   `json:"bands" yaml:"bands"`
}

type Analytics struct {
	MinSamples      int                `json:"min_samples" yaml:"min_samples"`
	Simulations     int                `json:"simulations" yaml:"simulations"`
	Sampling        string             `json:"sampling" yaml:"sampling"`
	RatioWindow     int                `json:"ratio_window" yaml:"ratio_window"`
	SlopeWindow     int                `json:"slope_window" yaml:"slope_window"`
	MinPersistence  int                `json:"min_persistence" yaml:"min_persistence"`
	CooldownMinutes int                `json:"cooldown_minutes" yaml:"cooldown_minutes"`
	InfoRatio       float64            `json:"info_ratio" yaml:"info_ratio"`
	CriticalRatio   float64            `json:"critical_ratio" yaml:"critical_ratio"`
	DefaultLotStep  float64            `json:"default_lot_step" yaml:"default_lot_step"`
	LotSteps        map[string]float64 `json:"lot_steps,omitempty" yaml:"lot_steps,omitempty"`
	RollingWindow   int                `json:"rolling_window" yaml:"rolling_window"`
}

func DefaultSettings() Settings {
	return Settings{
		AlertThresholds: domain.DefaultThresholds(),
		DataRefresh:     DataRefresh{Enabled: true, IntervalSeconds: 60, HistoryDays: 90},
		RiskScore:       RiskScore{Weights: riskscore.DefaultWeights(), Bands: riskscore.DefaultBands()},
		Analytics: Analytics{
			MinSamples:      10,
			Simulations:     10000,
			Sampling:        "normal",
			RatioWindow:     126,
			SlopeWindow:     5,
			MinPersistence:  3,
			CooldownMinutes: 15,
			InfoRatio:       0.9,
			CriticalRatio:   1.2,
			DefaultLotStep:  0.01,
			RollingWindow:   30,
		},
	}
}

// LoadSettings reads a JSON or YAML settings file, chosen by extension.
// Missing keys take their default. Keys with unusable values also take their
// default and are listed in Settings.Invalid. When the file cannot be read or
// parsed the defaults are returned together with the error.
func LoadSettings(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return DefaultSettings(), fmt.Errorf("read settings %s: %w", path, err)
	}
	return ParseSettings(data, isYAML(path))
}

func ParseSettings(data []byte, asYAML bool) (Settings, error) {
	doc := map[string]any{}
	var err error
	if asYAML {
		err = yaml.Unmarshal(data, &doc)
	} else {
		err = json.Unmarshal(data, &doc)
	}
	if err != nil {
		return DefaultSettings(), fmt.Errorf("parse settings: %v: %w", err, domain.ErrConfigurationInvalid)
	}

	r := &resolver{}
	s := DefaultSettings()

	th := r.group(doc, "alert_thresholds")
	s.AlertThresholds.MarginPct = r.floatField(th, "alert_thresholds.margin_pct", s.AlertThresholds.MarginPct, nonNegative)
	s.AlertThresholds.DailyLoss = r.floatField(th, "alert_thresholds.daily_loss", s.AlertThresholds.DailyLoss, nonPositive)
	s.AlertThresholds.Drawdown = r.floatField(th, "alert_thresholds.drawdown", s.AlertThresholds.Drawdown, nonPositive)
	s.AlertThresholds.DLeverage = r.floatField(th, "alert_thresholds.d_leverage", s.AlertThresholds.DLeverage, nonNegative)
	s.AlertThresholds.VaRMonthly = r.floatField(th, "alert_thresholds.var_monthly", s.AlertThresholds.VaRMonthly, nonNegative)
	s.AlertThresholds.Correlation = r.floatField(th, "alert_thresholds.correlation", s.AlertThresholds.Correlation, nonNegative)
	s.AlertThresholds.SectorConcentration = r.floatField(th, "alert_thresholds.sector_concentration",
		s.AlertThresholds.SectorConcentration, nonNegative)

	s.UISettings = r.group(doc, "ui_settings")
	s.EmailNotifications = r.group(doc, "email_notifications")

	dr := r.group(doc, "data_refresh")
	s.DataRefresh.Enabled = r.boolField(dr, "data_refresh.enabled", s.DataRefresh.Enabled)
	s.DataRefresh.IntervalSeconds = r.intField(dr, "data_refresh.interval_seconds", s.DataRefresh.IntervalSeconds, 1)
	s.DataRefresh.HistoryDays = r.intField(dr, "data_refresh.history_days", s.DataRefresh.HistoryDays, 1)

	rs := r.group(doc, "risk_score")
	if raw, ok := rs["weights"]; ok {
		s.RiskScore.Weights = r.weights(raw, s.RiskScore.Weights)
	}
	bands := r.group(rs, "bands")
	b := riskscore.Bands{
		Medium:   r.floatField(bands, "risk_score.bands.medium", s.RiskScore.Bands.Medium, finite),
		High:     r.floatField(bands, "risk_score.bands.high", s.RiskScore.Bands.High, finite),
		Critical: r.floatField(bands, "risk_score.bands.critical", s.RiskScore.Bands.Critical, finite),
	}
	if err := b.Validate(); err != nil {
		r.invalid("risk_score.bands", err)
	} else {
		s.RiskScore.Bands = b
	}

	an := r.group(doc, "analytics")
	a := &s.Analytics
	a.MinSamples = r.intField(an, "analytics.min_samples", a.MinSamples, 2)
	a.Simulations = r.intField(an, "analytics.simulations", a.Simulations, 1)
	a.RatioWindow = r.intField(an, "analytics.ratio_window", a.RatioWindow, 2)
	a.SlopeWindow = r.intField(an, "analytics.slope_window", a.SlopeWindow, 2)
	a.MinPersistence = r.intField(an, "analytics.min_persistence", a.MinPersistence, 1)
	a.RollingWindow = r.intField(an, "analytics.rolling_window", a.RollingWindow, 2)
	a.CooldownMinutes = r.intField(an, "analytics.cooldown_minutes", a.CooldownMinutes, 0)
	a.InfoRatio = r.floatField(an, "analytics.info_ratio", a.InfoRatio, func(v float64) bool { return v >= 0 && v < 1 })
	a.CriticalRatio = r.floatField(an, "analytics.critical_ratio", a.CriticalRatio, func(v float64) bool { return v > 1 })
	a.DefaultLotStep = r.floatField(an, "analytics.default_lot_step", a.DefaultLotStep, positive)
	if v, ok := an["sampling"]; ok {
		if str, _ := v.(string); str == "normal" || str == "bootstrap" {
			a.Sampling = str
		} else {
			r.invalid("analytics.sampling", fmt.Errorf("want normal or bootstrap, got %v", v))
		}
	}
	steps := r.group(an, "lot_steps")
	if len(steps) > 0 {
		a.LotSteps = make(map[string]float64, len(steps))
		for _, symbol := range sortedKeys(steps) {
			if v, ok := number(steps[symbol]); ok && v > 0 {
				a.LotSteps[strings.ToUpper(symbol)] = v
				continue
			}
			r.invalid("analytics.lot_steps."+symbol, fmt.Errorf("want a positive number, got %v", steps[symbol]))
		}
	}

	s.Invalid = r.errs
	for _, e := range s.Invalid {
		log.Printf("Warning: %v", e)
	}
	return s, nil
}

// SaveSettings writes s in the format implied by the path extension.
func SaveSettings(path string, s Settings) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(s)
	} else {
		data, err = json.MarshalIndent(s, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write settings %s: %w", path, err)
	}
	return nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

type resolver struct {
	errs []error
}

func (r *resolver) invalid(field string, cause error) {
	r.errs = append(r.errs, fmt.Errorf("settings field %s: %v, using default: %w", field, cause, domain.ErrConfigurationInvalid))
}

func (r *resolver) group(m map[string]any, key string) map[string]any {
	v, ok := m[key]
	if !ok || v == nil {
		return map[string]any{}
	}
	g, ok := v.(map[string]any)
	if !ok {
		r.invalid(key, fmt.Errorf("not an object"))
		return map[string]any{}
	}
	return g
}

func (r *resolver) floatField(m map[string]any, field string, def float64, valid func(float64) bool) float64 {
	v, ok := m[lastSegment(field)]
	if !ok || v == nil {
		return def
	}
	f, ok := number(v)
	if !ok {
		r.invalid(field, fmt.Errorf("non-numeric value %v", v))
		return def
	}
	if !valid(f) {
		r.invalid(field, fmt.Errorf("value %v out of range", f))
		return def
	}
	return f
}

func (r *resolver) intField(m map[string]any, field string, def, min int) int {
	f := r.floatField(m, field, float64(def), func(v float64) bool {
		return v == math.Trunc(v) && v >= float64(min)
	})
	return int(f)
}

func (r *resolver) boolField(m map[string]any, field string, def bool) bool {
	v, ok := m[lastSegment(field)]
	if !ok || v == nil {
		return def
	}
	b, ok := v.(bool)
	if !ok {
		r.invalid(field, fmt.Errorf("non-boolean value %v", v))
		return def
	}
	return b
}

func (r *resolver) weights(raw any, def riskscore.Weights) riskscore.Weights {
	m, ok := raw.(map[string]any)
	if !ok {
		r.invalid("risk_score.weights", fmt.Errorf("not an object"))
		return def
	}
	w := make(riskscore.Weights, len(m))
	for k, v := range m {
		f, ok := number(v)
		if !ok {
			r.invalid("risk_score.weights."+k, fmt.Errorf("non-numeric value %v", v))
			return def
		}
		w[k] = f
	}
	if err := w.Validate(); err != nil {
		r.invalid("risk_score.weights", err)
		return def
	}
	return w
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, !math.IsNaN(n) && !math.IsInf(n, 0)
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}

func lastSegment(field string) string {
	if i := strings.LastIndex(field, "."); i >= 0 {
		return field[i+1:]
	}
	return field
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func finite(v float64) bool      { return !math.IsNaN(v) && !math.IsInf(v, 0) }
func positive(v float64) bool    { return v > 0 }
func nonNegative(v float64) bool { return v >= 0 }
func nonPositive(v float64) bool { return v <= 0 }
