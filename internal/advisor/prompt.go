package advisor

import (
	"fmt"
	"strings"
	"time"

	"github.com/louisruiz/mt5-trading-analyzer/internal/domain"
)

const riskPhilosophy = `You are a risk analyst for a MetaTrader 5 trading account. Your role is to explain the risk report below, NOT to produce trade signals or execute orders.

Risk bands:
- low (score < 25): exposure is comfortable. Normal sizing.
- medium (25-50): watch the leading components. No new correlated positions.
- high (50-75): reduce the largest contributors first.
- critical (75+): cut leverage now. Follow the resize suggestions.

Rules:
- Always quote the numbers from the report when making observations.
- Never fabricate data. If a section is unavailable, say so and give its reason.
- VaR and drawdown values are percentages of equity.
- When leverage is exceeded, point to the per-position resize suggestions.
- Keep responses concise and actionable. You are talking via Telegram.
- Do not add financial advice disclaimers to every message.
- When asked about a symbol, summarize its allocation and its positions' share of exposure.`

func BuildSystemPrompt(riskContext string) string {
	var sb strings.Builder
	sb.WriteString(riskPhilosophy)
	sb.WriteString("\n\n--- LIVE RISK DATA (as of ")
	sb.WriteString(time.Now().UTC().Format(time.RFC822))
	sb.WriteString(") ---\n")
	sb.WriteString(riskContext)
	return sb.String()
}

// FormatRiskContext summarizes the report for the model. Symbols, when
// given, narrow the allocation list to the instruments the user asked about.
func FormatRiskContext(r *domain.RiskReport, symbols []string) string {
	if r == nil {
		return "No risk report is available yet."
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Cycle %d, account %d (%s): equity %.2f, balance %.2f, margin %.2f\n",
		r.Cycle, r.Account.Login, r.Account.Currency, r.Account.Equity, r.Account.Balance, r.Account.Margin)
	fmt.Fprintf(&sb, "%d equity points, %d open positions\n", r.EquityPoints, r.Positions)

	if r.IsAvailable(domain.SectionScore) {
		fmt.Fprintf(&sb, "\nRisk score: %.1f (%s)\n", r.Score.Score, r.Score.Band)
		for _, c := range r.Score.Components {
			if !c.Available {
				continue
			}
			fmt.Fprintf(&sb, "  %s: raw %.4f, threshold %.4f, weight %.2f\n", c.Name, c.RawValue, c.Threshold, c.Weight)
		}
	}

	if r.IsAvailable(domain.SectionVaR) {
		sb.WriteString("\nValue at Risk:\n")
		for _, res := range r.VaR.Results {
			fmt.Fprintf(&sb, "  %s %s %.0f%%: %.2f%% (ES %.2f%%)\n",
				res.Method, res.Horizon, res.Confidence*100, res.Value*100, res.ExpectedShortfall*100)
		}
	} else {
		writeUnavailable(&sb, r, domain.SectionVaR)
	}

	if r.IsAvailable(domain.SectionDrawdown) {
		fmt.Fprintf(&sb, "\nDrawdown: current %.2f%%, max %.2f%%, %d episodes\n",
			r.Drawdown.CurrentDrawdown*100, r.Drawdown.MaxDrawdown*100, len(r.Drawdown.Episodes))
	} else {
		writeUnavailable(&sb, r, domain.SectionDrawdown)
	}

	if r.IsAvailable(domain.SectionLeverage) {
		l := r.Leverage
		fmt.Fprintf(&sb, "\nD-Leverage: %.2f, threshold %.2f (%s), rating %s\n", l.DLeverage, l.Threshold, l.Style, l.Rating)
		for _, s := range l.Suggestions {
			fmt.Fprintf(&sb, "  resize %s #%d: %.2f -> %.2f lots\n", s.Symbol, s.Ticket, s.Volume, s.NewVolume)
		}
	} else {
		writeUnavailable(&sb, r, domain.SectionLeverage)
	}

	if r.IsAvailable(domain.SectionExposure) {
		e := r.Exposure
		fmt.Fprintf(&sb, "\nExposure: margin %.1f%%, long %.1f%%, short %.1f%%, top sector %s %.1f%%\n",
			e.MarginPct, e.LongPct, e.ShortPct, e.TopSector, e.TopSectorPct)
		for _, a := range filterAllocations(e.Allocations, symbols) {
			fmt.Fprintf(&sb, "  %s: notional %.2f (%.1f%%)\n", a.Symbol, a.Notional, a.Pct)
		}
	}

	if len(r.Alerts) > 0 {
		sb.WriteString("\nActive alerts:\n")
		for _, a := range r.Alerts {
			fmt.Fprintf(&sb, "  [%s] %s\n", a.Severity, a.Message)
		}
	}
	return sb.String()
}

func writeUnavailable(sb *strings.Builder, r *domain.RiskReport, s domain.Section) {
	reason := "not computed"
	if a, ok := r.Availability[s]; ok && a.Reason != "" {
		reason = a.Reason
	}
	fmt.Fprintf(sb, "\n%s unavailable: %s\n", s, reason)
}

func filterAllocations(all []domain.SymbolAllocation, symbols []string) []domain.SymbolAllocation {
	if len(symbols) == 0 {
		return all
	}
	want := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		want[s] = true
	}
	var out []domain.SymbolAllocation
	for _, a := range all {
		if want[strings.ToUpper(a.Symbol)] {
			out = append(out, a)
		}
	}
	return out
}
