package tui

import (
	"fmt"
	"strings"

	"github.com/louisruiz/mt5-trading-analyzer/internal/domain"
)

func row(label, value string) string {
	return labelStyle.Render(fmt.Sprintf("%-18s", label)) + value + "\n"
}

func unavailable(r *domain.RiskReport, s domain.Section) (string, bool) {
	if r.IsAvailable(s) {
		return "", false
	}
	reason := "not computed"
	if a, ok := r.Availability[s]; ok && a.Reason != "" {
		reason = a.Reason
	}
	return mutedStyle.Render(fmt.Sprintf("%s unavailable: %s", s, reason)), true
}

func renderOverview(r *domain.RiskReport) string {
	var b strings.Builder
	a := r.Account
	b.WriteString(row("Account", fmt.Sprintf("%d (%s)", a.Login, a.Currency)))
	b.WriteString(row("Equity", fmt.Sprintf("%.2f", a.Equity)))
	b.WriteString(row("Balance", fmt.Sprintf("%.2f", a.Balance)))
	b.WriteString(row("Margin", fmt.Sprintf("%.2f (free %.2f)", a.Margin, a.MarginFree)))
	b.WriteString(row("Positions", fmt.Sprintf("%d", r.Positions)))
	b.WriteString("\n")

	if msg, bad := unavailable(r, domain.SectionScore); bad {
		b.WriteString(msg + "\n")
	} else {
		s := r.Score
		b.WriteString(row("Risk score", bandStyle(s.Band).Render(fmt.Sprintf("%.1f %s", s.Score, strings.ToUpper(string(s.Band))))))
		for _, c := range s.Components {
			if !c.Available {
				b.WriteString(row("  "+c.Name, mutedStyle.Render("n/a")))
				continue
			}
			b.WriteString(row("  "+c.Name, fmt.Sprintf("%6.1f  %s", c.Normalized, bar(c.Normalized/100, 20))))
		}
	}

	if r.IsAvailable(domain.SectionDrawdown) {
		b.WriteString("\n")
		b.WriteString(row("Drawdown", fmt.Sprintf("%.2f%% (max %.2f%%)", r.Drawdown.CurrentDrawdown*100, r.Drawdown.MaxDrawdown*100)))
	}
	if res, ok := r.VaR.MonthlyVaR(); ok && r.IsAvailable(domain.SectionVaR) {
		b.WriteString(row("VaR 1m 95%", fmt.Sprintf("%.2f%% (%s)", res.Value*100, res.Method)))
	}
	return strings.TrimRight(b.String(), "\n")
}

// bar draws a fill gauge for a value in [0, 1].
func bar(v float64, width int) string {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	n := int(v*float64(width) + 0.5)
	return strings.Repeat("█", n) + strings.Repeat("░", width-n)
}

func renderVaR(r *domain.RiskReport) string {
	if msg, bad := unavailable(r, domain.SectionVaR); bad {
		return msg
	}
	var b strings.Builder
	b.WriteString(labelStyle.Render(fmt.Sprintf("%-12s %-7s %5s %8s %8s", "method", "horizon", "conf", "VaR%", "ES%")) + "\n")
	for _, res := range r.VaR.Results {
		fmt.Fprintf(&b, "%-12s %-7s %4.0f%% %8.2f %8.2f\n",
			res.Method, res.Horizon, res.Confidence*100, res.Value*100, res.ExpectedShortfall*100)
	}
	fmt.Fprintf(&b, "\n%d samples, mean %.4f%%, sd %.4f%%", r.VaR.Samples, r.VaR.Mean*100, r.VaR.StdDev*100)
	if r.VaR.Ratio.Defined {
		fmt.Fprintf(&b, "\nVaR ratio %.2f over %d windows", r.VaR.Ratio.Value, r.VaR.Ratio.Windows)
	}
	if r.VaR.Partial {
		b.WriteString("\n" + mutedStyle.Render(fmt.Sprintf("partial: missing %v", r.VaR.Missing)))
	}
	return b.String()
}

func renderDrawdown(r *domain.RiskReport) string {
	if msg, bad := unavailable(r, domain.SectionDrawdown); bad {
		return msg
	}
	d := r.Drawdown
	var b strings.Builder
	b.WriteString(row("Current", fmt.Sprintf("%.2f%%", d.CurrentDrawdown*100)))
	b.WriteString(row("Maximum", fmt.Sprintf("%.2f%%", d.MaxDrawdown*100)))
	b.WriteString(row("Pain index", fmt.Sprintf("%.4f", d.PainIndex)))
	b.WriteString(row("Ulcer index", fmt.Sprintf("%.4f", d.UlcerIndex)))
	if len(d.Episodes) > 0 {
		b.WriteString("\n" + labelStyle.Render("depth%   periods  state") + "\n")
		for _, e := range d.Episodes {
			state := "recovered"
			if e.Active {
				state = "active"
			}
			fmt.Fprintf(&b, "%7.2f  %7d  %s\n", e.DepthPct, e.Duration, state)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderLeverage(r *domain.RiskReport) string {
	if msg, bad := unavailable(r, domain.SectionLeverage); bad {
		return msg
	}
	l := r.Leverage
	var b strings.Builder
	b.WriteString(row("D-Leverage", fmt.Sprintf("%.2f", l.DLeverage)))
	b.WriteString(row("Threshold", fmt.Sprintf("%.2f (%s)", l.Threshold, l.Style)))
	b.WriteString(row("Avg holding", fmt.Sprintf("%.0f min", l.AvgHoldingMinutes)))
	b.WriteString(row("Rating", string(l.Rating)))
	if l.Exceeded {
		b.WriteString("\n" + errorStyle.Render(fmt.Sprintf("Scale volumes by %.2f", l.ScaleFactor)) + "\n")
		for _, s := range l.Suggestions {
			fmt.Fprintf(&b, "%-10s #%-8d %6.2f -> %6.2f lots (-%.0f%%)\n", s.Symbol, s.Ticket, s.Volume, s.NewVolume, s.ReducePct)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderExposure(r *domain.RiskReport) string {
	if msg, bad := unavailable(r, domain.SectionExposure); bad {
		return msg
	}
	e := r.Exposure
	var b strings.Builder
	b.WriteString(row("Margin used", fmt.Sprintf("%.1f%%", e.MarginPct)))
	b.WriteString(row("Long / short", fmt.Sprintf("%.1f%% / %.1f%%", e.LongPct, e.ShortPct)))
	b.WriteString(row("HHI", fmt.Sprintf("%.3f", e.HHI)))
	if e.TopSector != "" {
		b.WriteString(row("Top sector", fmt.Sprintf("%s %.1f%%", e.TopSector, e.TopSectorPct)))
	}
	if e.DailyPnLDefined {
		b.WriteString(row("Daily P&L", fmt.Sprintf("%+.2f%%", e.DailyPnLPct)))
	}
	if len(e.Allocations) > 0 {
		b.WriteString("\n")
		for _, a := range e.Allocations {
			b.WriteString(row(a.Symbol, fmt.Sprintf("%5.1f%%  %s", a.Pct, bar(a.Pct/100, 20))))
		}
	}
	if len(e.Durations) > 0 {
		b.WriteString("\n")
		for _, d := range e.Durations {
			b.WriteString(row(d.Label, fmt.Sprintf("%5.1f%%  %d pos  long %.0f / short %.0f",
				d.Pct, d.Positions, d.LongNotional, d.ShortNotional)))
		}
	}
	if s := e.Sizing; s.Defined {
		b.WriteString("\n")
		b.WriteString(row("Position size", fmt.Sprintf("avg %.1f%%  max %.1f%%  min %.1f%% of equity", s.AvgPct, s.MaxPct, s.MinPct)))
		b.WriteString(row("Position HHI", fmt.Sprintf("%.3f", s.HHI)))
	}
	for _, rec := range e.Recommendations {
		b.WriteString(mutedStyle.Render("- "+rec) + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// rollingRows caps the rolling table to the newest windows.
const rollingRows = 10

func renderPerformance(r *domain.RiskReport) string {
	if msg, bad := unavailable(r, domain.SectionPerformance); bad {
		return msg
	}
	p := r.Performance
	var b strings.Builder
	b.WriteString(row("Total return", fmt.Sprintf("%+.2f%%", p.TotalReturnPct)))
	b.WriteString(row("Annual return", fmt.Sprintf("%+.2f%%", p.AnnualReturnPct)))
	b.WriteString(row("Volatility", fmt.Sprintf("%.2f%%", p.VolatilityPct)))
	b.WriteString(row("Sharpe", fmt.Sprintf("%.2f (%s)", p.Sharpe, p.SharpeRating)))
	b.WriteString(row("Sortino", fmt.Sprintf("%.2f (%s)", p.Sortino, p.SortinoRating)))
	b.WriteString(row("Calmar", fmt.Sprintf("%.2f (%s)", p.Calmar, p.CalmarRating)))
	b.WriteString(row("Max drawdown", fmt.Sprintf("%.2f%%", p.MaxDrawdownPct)))
	b.WriteString(row("Win ratio", fmt.Sprintf("%.1f%%", p.WinRatio)))

	if len(p.Rolling) > 0 {
		b.WriteString("\n" + labelStyle.Render(fmt.Sprintf("Rolling %d periods", p.RollingWindow)) + "\n")
		rolling := p.Rolling
		if len(rolling) > rollingRows {
			rolling = rolling[len(rolling)-rollingRows:]
		}
		for _, w := range rolling {
			sharpe := "n/a"
			if w.SharpeDefined {
				sharpe = fmt.Sprintf("%.2f", w.Sharpe)
			}
			fmt.Fprintf(&b, "%s  ret %+7.2f%%  vol %6.2f%%  sharpe %6s  dd %7.2f%%\n",
				w.Timestamp.UTC().Format("01-02 15:04"), w.ReturnPct, w.VolatilityPct, sharpe, w.MaxDrawdownPct)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderAlerts(r *domain.RiskReport) string {
	if len(r.Alerts) == 0 {
		return mutedStyle.Render("No active alerts.")
	}
	var b strings.Builder
	for i := len(r.Alerts) - 1; i >= 0; i-- {
		a := r.Alerts[i]
		tag := severityStyle(a.Severity).Render(fmt.Sprintf("%-8s", strings.ToUpper(string(a.Severity))))
		fmt.Fprintf(&b, "%s %s %s\n", a.Timestamp.UTC().Format("01-02 15:04"), tag, a.Message)
		if a.Suggestion != "" {
			b.WriteString(mutedStyle.Render("    "+a.Suggestion) + "\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
