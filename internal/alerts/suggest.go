package alerts

import (
	"fmt"
	"math"
	"strings"

	"github.com/louisruiz/mt5-trading-analyzer/internal/domain"
)

var titles = map[string]string{
	domain.MetricMarginPct:           "High margin level",
	domain.MetricDailyLoss:           "Large daily loss",
	domain.MetricDrawdown:            "Large drawdown",
	domain.MetricDLeverage:           "High D-Leverage",
	domain.MetricVaRMonthly:          "High monthly VaR",
	domain.MetricCorrelation:         "Correlated positions",
	domain.MetricSectorConcentration: "Sector concentration",
	domain.MetricRiskScore:           "Elevated risk score",
}

var optimisationTitles = map[string]string{
	domain.MetricMarginPct:           "Margin reduction",
	domain.MetricDailyLoss:           "Daily risk management",
	domain.MetricDrawdown:            "Drawdown management",
	domain.MetricDLeverage:           "D-Leverage optimisation",
	domain.MetricVaRMonthly:          "VaR reduction",
	domain.MetricCorrelation:         "Correlation hedge",
	domain.MetricSectorConcentration: "Sector diversification",
	domain.MetricRiskScore:           "Risk score review",
}

func format(kind string, v float64) string {
	switch kind {
	case domain.MetricDLeverage:
		return fmt.Sprintf("%.2f", v)
	case domain.MetricCorrelation:
		return fmt.Sprintf("%.0f positions", v)
	default:
		return fmt.Sprintf("%.2f%%", v)
	}
}

func message(kind, subject string, sev domain.Severity, value, threshold float64) string {
	title := titles[kind]
	if subject != "" && subject != domain.SubjectAccount {
		title += " on " + subject
	}
	if sev == domain.SeverityInfo {
		return fmt.Sprintf("%s approaching threshold: %s (threshold %s)", title, format(kind, value), format(kind, threshold))
	}
	return fmt.Sprintf("%s: %s (threshold %s)", title, format(kind, value), format(kind, threshold))
}

func suggest(m domain.Metric, threshold float64, in Input) string {
	switch m.Name {
	case domain.MetricDLeverage:
		return suggestLeverage(m.Value, threshold, in.Leverage)
	case domain.MetricMarginPct:
		return fmt.Sprintf("close or reduce positions, or add capital, to bring margin usage below %.0f%%", threshold)
	case domain.MetricDailyLoss:
		return fmt.Sprintf("reduce exposure for the rest of the day or tighten stops; daily loss limit is %.1f%%", math.Abs(threshold))
	case domain.MetricDrawdown:
		return fmt.Sprintf("temporarily cut position sizes and review the strategy until drawdown is back within %.1f%%", math.Abs(threshold))
	case domain.MetricVaRMonthly:
		return fmt.Sprintf("diversify or reduce exposure on volatile instruments to bring monthly VaR below %.2f%%", threshold)
	case domain.MetricCorrelation:
		return fmt.Sprintf("close or hedge some of the %.0f positions moving %s the same way", m.Value, m.Subject)
	case domain.MetricSectorConcentration:
		return fmt.Sprintf("spread exposure away from %s to keep any sector below %.0f%% of gross exposure", m.Subject, threshold)
	}
	return ""
}

// suggestLeverage lists the per-position cuts when the optimizer produced
// them and falls back to a uniform reduction otherwise.
func suggestLeverage(d, threshold float64, rep domain.LeverageReport) string {
	target := threshold
	if rep.Exceeded && rep.Threshold > 0 {
		target = rep.Threshold
	}
	var parts []string
	for _, s := range rep.Suggestions {
		if s.NewVolume >= s.Volume {
			continue
		}
		parts = append(parts, fmt.Sprintf("reduce %s volume by %.0f%% (%.2f -> %.2f lots)",
			s.Symbol, s.ReducePct, s.Volume, s.NewVolume))
	}
	if len(parts) == 0 {
		cut := 0.0
		if d > 0 {
			cut = (d - target) / d * 100
		}
		return fmt.Sprintf("reduce total volume by %.0f%% to restore D-Leverage below %.1f", cut, target)
	}
	return strings.Join(parts, "; ") + fmt.Sprintf(" to restore D-Leverage below %.1f", target)
}

func suggestScore(score domain.RiskScore) string {
	var top domain.RiskComponent
	best := -1.0
	for _, c := range score.Components {
		if !c.Available {
			continue
		}
		if contrib := c.Weight * c.Normalized; contrib > best {
			best, top = contrib, c
		}
	}
	if best < 0 {
		return "review overall exposure"
	}
	return fmt.Sprintf("largest contributor is %s at %.0f/100; address it first", top.Name, top.Normalized)
}

func optimisation(a domain.Alert, in Input) domain.Suggestion {
	msg := a.Message + ". " + capitalise(a.Suggestion) + "."
	if a.Kind == domain.MetricDLeverage && in.Leverage.Style != domain.StyleNone && in.Leverage.Style != "" {
		msg = fmt.Sprintf("D-Leverage %.2f is above target for %s trading (average holding %.0f min). %s.",
			a.Value, in.Leverage.Style, in.Leverage.AvgHoldingMinutes, capitalise(a.Suggestion))
	}
	return domain.Suggestion{
		Title:     optimisationTitles[a.Kind],
		Message:   msg,
		Timestamp: a.Timestamp,
	}
}

func capitalise(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
