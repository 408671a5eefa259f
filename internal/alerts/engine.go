// Package alerts checks live risk metrics against their thresholds, attaches
// remediation text and keeps a deduplicated alert history.
package alerts

import (
	"fmt"
	"time"

	"github.com/louisruiz/mt5-trading-analyzer/internal/domain"
	"github.com/louisruiz/mt5-trading-analyzer/internal/riskscore"
	"github.com/louisruiz/mt5-trading-analyzer/pkg/id"
)

type Options struct {
	Cooldown        time.Duration
	HistoryLimit    int
	SuggestionLimit int
	// InfoRatio emits an info alert once a metric reaches this share of its
	// threshold. Zero disables info alerts.
	InfoRatio     float64
	CriticalRatio float64
}

func DefaultOptions() Options {
	return Options{
		Cooldown:        15 * time.Minute,
		HistoryLimit:    50,
		SuggestionLimit: 20,
		InfoRatio:       0.9,
		CriticalRatio:   1.2,
	}
}

// Input is everything one evaluation needs. It is built once per cycle.
type Input struct {
	Metrics    []domain.Metric
	Score      domain.RiskScore
	Leverage   domain.LeverageReport
	Thresholds domain.Thresholds
	Bands      riskscore.Bands
	Now        time.Time
	// Options replaces the engine defaults for this evaluation when set.
	// History limits are fixed at construction.
	Options *Options
}

type Engine struct {
	opts    Options
	history *History
	newID   func(time.Time) string
}

func NewEngine(opts Options, history *History) *Engine {
	if opts.CriticalRatio <= 1 {
		opts.CriticalRatio = DefaultOptions().CriticalRatio
	}
	if history == nil {
		history = NewHistory(opts.HistoryLimit, opts.SuggestionLimit)
	}
	return &Engine{opts: opts, history: history, newID: id.NewAt}
}

func (e *Engine) History() *History {
	return e.history
}

// Evaluate returns the alerts and optimisation suggestions that passed
// deduplication this cycle. Both are appended to the history.
func (e *Engine) Evaluate(in Input) ([]domain.Alert, []domain.Suggestion) {
	opts := e.opts
	if in.Options != nil {
		opts = *in.Options
		if opts.CriticalRatio <= 1 {
			opts.CriticalRatio = e.opts.CriticalRatio
		}
	}
	var (
		fresh       []domain.Alert
		suggestions []domain.Suggestion
	)
	emit := func(a domain.Alert) {
		a.ID = e.newID(in.Now)
		a.Timestamp = in.Now
		if !e.history.admit(a, opts.Cooldown) {
			return
		}
		fresh = append(fresh, a)
		if a.Severity != domain.SeverityInfo {
			suggestions = append(suggestions, optimisation(a, in))
		}
	}

	for _, m := range in.Metrics {
		if !m.Available {
			continue
		}
		threshold, ok := in.Thresholds.For(m.Name)
		if !ok {
			continue
		}
		sev, hit := Classify(m.Value, threshold, opts.InfoRatio, opts.CriticalRatio)
		if !hit {
			continue
		}
		a := domain.Alert{
			Kind:      m.Name,
			Subject:   m.Subject,
			Severity:  sev,
			Value:     m.Value,
			Threshold: threshold,
			Message:   message(m.Name, m.Subject, sev, m.Value, threshold),
		}
		if sev != domain.SeverityInfo {
			a.Suggestion = suggest(m, threshold, in)
		}
		emit(a)
	}

	if a, ok := scoreAlert(in); ok {
		emit(a)
	}

	e.history.addSuggestions(suggestions)
	return fresh, suggestions
}

// Classify compares value with threshold. Negative thresholds are limits on
// losses and compare by magnitude. A zero threshold never fires.
func Classify(value, threshold, infoRatio, criticalRatio float64) (domain.Severity, bool) {
	if threshold == 0 {
		return "", false
	}
	ratio := value / threshold
	switch {
	case ratio > criticalRatio:
		return domain.SeverityCritical, true
	case ratio > 1:
		return domain.SeverityWarning, true
	case infoRatio > 0 && ratio >= infoRatio:
		return domain.SeverityInfo, true
	}
	return "", false
}

func scoreAlert(in Input) (domain.Alert, bool) {
	if !in.Score.Available {
		return domain.Alert{}, false
	}
	a := domain.Alert{
		Kind:    domain.MetricRiskScore,
		Subject: domain.SubjectAccount,
		Value:   in.Score.Score,
	}
	switch in.Score.Band {
	case domain.BandCritical:
		a.Severity = domain.SeverityCritical
		a.Threshold = in.Bands.Critical
	case domain.BandHigh:
		a.Severity = domain.SeverityWarning
		a.Threshold = in.Bands.High
	default:
		return domain.Alert{}, false
	}
	a.Message = fmt.Sprintf("%s: %.1f (%s band from %.0f)", titles[a.Kind], a.Value, in.Score.Band, a.Threshold)
	a.Suggestion = suggestScore(in.Score)
	return a, true
}
