package bot

import (
	"fmt"
	"strings"

	"github.com/louisruiz/mt5-trading-analyzer/internal/domain"
)

const noReport = "No risk report yet. The first refresh cycle has not finished."

func unavailable(r *domain.RiskReport, s domain.Section) (string, bool) {
	a, ok := r.Availability[s]
	if ok && a.Available {
		return "", false
	}
	reason := a.Reason
	if reason == "" {
		reason = "not computed"
	}
	return fmt.Sprintf("%s unavailable: %s", s, reason), true
}

// FormatRisk is the /risk summary: score, band and the main figures.
func FormatRisk(r *domain.RiskReport) string {
	if r == nil {
		return noReport
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Risk report #%d (%s)\n", r.Cycle, r.GeneratedAt.UTC().Format("2006-01-02 15:04 UTC"))
	fmt.Fprintf(&b, "Equity: %.2f %s  Balance: %.2f\n", r.Account.Equity, r.Account.Currency, r.Account.Balance)
	if r.Score.Available {
		fmt.Fprintf(&b, "Risk score: %.1f (%s)\n", r.Score.Score, r.Score.Band)
	} else {
		b.WriteString("Risk score: unavailable\n")
	}
	if v, ok := r.VaR.MonthlyVaR(); ok {
		fmt.Fprintf(&b, "VaR 1m 95%% (%s): %.2f%%\n", v.Method, v.Value*100)
	}
	if r.IsAvailable(domain.SectionDrawdown) {
		fmt.Fprintf(&b, "Drawdown: %.2f%% (max %.2f%%)\n", r.Drawdown.CurrentDrawdown*100, r.Drawdown.MaxDrawdown*100)
	}
	if r.Leverage.Defined {
		fmt.Fprintf(&b, "D-Leverage: %.2f / %.2f (%s)\n", r.Leverage.DLeverage, r.Leverage.Threshold, r.Leverage.Style)
	}
	fmt.Fprintf(&b, "Margin: %.1f%%", r.Exposure.MarginPct)
	if r.Exposure.DailyPnLDefined {
		fmt.Fprintf(&b, "  Daily P&L: %+.2f%%", r.Exposure.DailyPnLPct)
	}
	b.WriteString("\n")
	if n := len(r.Alerts); n > 0 {
		fmt.Fprintf(&b, "%d new alert(s) this cycle. Use /alerts.", n)
	}
	return strings.TrimRight(b.String(), "\n")
}

func FormatVaR(r *domain.RiskReport) string {
	if r == nil {
		return noReport
	}
	if msg, bad := unavailable(r, domain.SectionVaR); bad {
		return msg
	}
	var b strings.Builder
	fmt.Fprintf(&b, "VaR over %d returns", r.VaR.Samples)
	if r.VaR.Partial {
		b.WriteString(" (partial: parametric only)")
	}
	b.WriteString("\n")
	for _, h := range domain.DefaultHorizons {
		for _, c := range domain.DefaultConfidences {
			fmt.Fprintf(&b, "%s %.0f%%:", h.Name, c*100)
			for _, m := range domain.VaRMethods {
				if res, ok := r.VaR.Find(m, h.Name, c); ok {
					fmt.Fprintf(&b, " %s %.2f%%", shortMethod(m), res.Value*100)
				}
			}
			b.WriteString("\n")
		}
	}
	if r.VaR.Ratio.Defined {
		fmt.Fprintf(&b, "VaR ratio: %.2f over %d windows", r.VaR.Ratio.Value, r.VaR.Ratio.Windows)
	}
	return strings.TrimRight(b.String(), "\n")
}

func shortMethod(m domain.VaRMethod) string {
	switch m {
	case domain.VaRParametric:
		return "par"
	case domain.VaRHistorical:
		return "hist"
	case domain.VaRMonteCarlo:
		return "mc"
	}
	return string(m)
}

func FormatDrawdown(r *domain.RiskReport) string {
	if r == nil {
		return noReport
	}
	if msg, bad := unavailable(r, domain.SectionDrawdown); bad {
		return msg
	}
	d := r.Drawdown
	var b strings.Builder
	fmt.Fprintf(&b, "Current drawdown: %.2f%%\nMax drawdown: %.2f%%\n", d.CurrentDrawdown*100, d.MaxDrawdown*100)
	fmt.Fprintf(&b, "Pain index: %.4f  Ulcer index: %.4f\n", d.PainIndex, d.UlcerIndex)
	fmt.Fprintf(&b, "Episodes: %d", len(d.Episodes))
	if n := len(d.Episodes); n > 0 {
		last := d.Episodes[n-1]
		state := "recovered"
		if last.Active {
			state = "active"
		}
		fmt.Fprintf(&b, "\nLast episode: %.2f%% over %d periods (%s)", last.DepthPct, last.Duration, state)
	}
	return b.String()
}

func FormatLeverage(r *domain.RiskReport) string {
	if r == nil {
		return noReport
	}
	if msg, bad := unavailable(r, domain.SectionLeverage); bad {
		return msg
	}
	l := r.Leverage
	var b strings.Builder
	fmt.Fprintf(&b, "D-Leverage: %.2f (%s)\nStyle: %s, avg holding %.0f min\nThreshold: %.2f\n",
		l.DLeverage, l.Rating, l.Style, l.AvgHoldingMinutes, l.Threshold)
	if !l.Exceeded {
		b.WriteString("Within threshold.")
		return b.String()
	}
	fmt.Fprintf(&b, "Scale volumes by %.2f:", l.ScaleFactor)
	for _, s := range l.Suggestions {
		fmt.Fprintf(&b, "\n  %s #%d: %.2f -> %.2f lots (-%.0f%%)", s.Symbol, s.Ticket, s.Volume, s.NewVolume, s.ReducePct)
	}
	return b.String()
}

func FormatAlerts(list []domain.Alert) string {
	if len(list) == 0 {
		return "No alerts."
	}
	var b strings.Builder
	for i := len(list) - 1; i >= 0; i-- {
		a := list[i]
		fmt.Fprintf(&b, "%s %s %s\n", a.Timestamp.UTC().Format("01-02 15:04"), severityTag(a.Severity), a.Message)
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatPush renders the alerts of one cycle for the push notification. Info
// alerts are not pushed.
func FormatPush(list []domain.Alert) (string, bool) {
	var b strings.Builder
	n := 0
	for _, a := range list {
		if a.Severity == domain.SeverityInfo {
			continue
		}
		n++
		fmt.Fprintf(&b, "%s %s\n", severityTag(a.Severity), a.Message)
		if a.Suggestion != "" {
			fmt.Fprintf(&b, "  -> %s\n", a.Suggestion)
		}
	}
	if n == 0 {
		return "", false
	}
	return strings.TrimRight(b.String(), "\n"), true
}

func severityTag(s domain.Severity) string {
	return "[" + strings.ToUpper(string(s)) + "]"
}
