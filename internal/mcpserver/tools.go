package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/louisruiz/mt5-trading-analyzer/internal/domain"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const maxAlerts = 200

type reportArgs struct {
	Section string `json:"section,omitempty" jsonschema:"one of var, drawdown, leverage, exposure, performance or score; empty returns the whole report"`
}

type varArgs struct {
	Method  string `json:"method,omitempty" jsonschema:"parametric, historical or monte_carlo; empty returns all methods"`
	Horizon string `json:"horizon,omitempty" jsonschema:"1d, 1w or 1m; empty returns all horizons"`
}

type alertArgs struct {
	Limit   int  `json:"limit,omitempty" jsonschema:"maximum number of alerts, newest first"`
	History bool `json:"history,omitempty" jsonschema:"read the persisted alert archive instead of the latest cycle"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "risk_report",
		Description: "Latest MT5 account risk report, or one section of it, as JSON.",
	}, s.riskReport)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "var_table",
		Description: "Value at Risk and expected shortfall per method, horizon and confidence, in percent of equity.",
	}, s.varTable)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "alerts",
		Description: "Risk alerts raised by the analyzer, newest first.",
	}, s.alerts)
}

func (s *Server) riskReport(ctx context.Context, _ *mcp.CallToolRequest, in reportArgs) (*mcp.CallToolResult, any, error) {
	ctx, done, limited := s.begin(ctx, "risk_report")
	defer done()
	if limited != nil {
		return limited, nil, nil
	}
	r, failed := s.load(ctx)
	if failed != nil {
		return failed, nil, nil
	}

	var payload any = r
	if in.Section != "" {
		section := domain.Section(strings.ToLower(in.Section))
		value, ok := sectionValue(r, section)
		if !ok {
			return errorResult(fmt.Sprintf("unknown section %q", in.Section)), nil, nil
		}
		a := r.Availability[section]
		m := map[string]any{
			"cycle":        r.Cycle,
			"generated_at": r.GeneratedAt,
			"available":    a.Available,
			"reason":       a.Reason,
		}
		m[string(section)] = value
		payload = m
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, nil, fmt.Errorf("encode report: %w", err)
	}
	return textResult(string(data)), nil, nil
}

func sectionValue(r *domain.RiskReport, s domain.Section) (any, bool) {
	switch s {
	case domain.SectionVaR:
		return r.VaR, true
	case domain.SectionDrawdown:
		return r.Drawdown, true
	case domain.SectionLeverage:
		return r.Leverage, true
	case domain.SectionExposure:
		return r.Exposure, true
	case domain.SectionPerformance:
		return r.Performance, true
	case domain.SectionScore:
		return r.Score, true
	}
	return nil, false
}

func (s *Server) varTable(ctx context.Context, _ *mcp.CallToolRequest, in varArgs) (*mcp.CallToolResult, any, error) {
	ctx, done, limited := s.begin(ctx, "var_table")
	defer done()
	if limited != nil {
		return limited, nil, nil
	}
	r, failed := s.load(ctx)
	if failed != nil {
		return failed, nil, nil
	}
	if !r.IsAvailable(domain.SectionVaR) {
		return errorResult("var unavailable: " + r.Availability[domain.SectionVaR].Reason), nil, nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "cycle %d, %d samples\n", r.Cycle, r.VaR.Samples)
	b.WriteString("method       horizon  conf  var%    es%\n")
	n := 0
	for _, res := range r.VaR.Results {
		if in.Method != "" && !strings.EqualFold(string(res.Method), in.Method) {
			continue
		}
		if in.Horizon != "" && !strings.EqualFold(res.Horizon, in.Horizon) {
			continue
		}
		n++
		fmt.Fprintf(&b, "%-12s %-8s %3.0f%%  %6.2f  %6.2f\n",
			res.Method, res.Horizon, res.Confidence*100, res.Value*100, res.ExpectedShortfall*100)
	}
	if n == 0 {
		return errorResult("no VaR results match the filter"), nil, nil
	}
	if r.VaR.Ratio.Defined {
		fmt.Fprintf(&b, "VaR ratio %.2f over %d windows\n", r.VaR.Ratio.Value, r.VaR.Ratio.Windows)
	}
	if r.VaR.Partial {
		fmt.Fprintf(&b, "partial: missing %v\n", r.VaR.Missing)
	}
	return textResult(strings.TrimRight(b.String(), "\n")), nil, nil
}

func (s *Server) alerts(ctx context.Context, _ *mcp.CallToolRequest, in alertArgs) (*mcp.CallToolResult, any, error) {
	ctx, done, limited := s.begin(ctx, "alerts")
	defer done()
	if limited != nil {
		return limited, nil, nil
	}
	limit := in.Limit
	if limit <= 0 || limit > maxAlerts {
		limit = 20
	}

	var list []domain.Alert
	if in.History {
		if s.archive == nil {
			return errorResult("alert history is not configured"), nil, nil
		}
		var err error
		// archive rows come back newest first
		list, err = s.archive.RecentAlerts(ctx, limit)
		if err != nil {
			return errorResult("failed to read alert history: " + err.Error()), nil, nil
		}
	} else {
		r, failed := s.load(ctx)
		if failed != nil {
			return failed, nil, nil
		}
		for i := len(r.Alerts) - 1; i >= 0 && len(list) < limit; i-- {
			list = append(list, r.Alerts[i])
		}
	}

	if len(list) == 0 {
		return textResult("No alerts."), nil, nil
	}
	var b strings.Builder
	for _, a := range list {
		fmt.Fprintf(&b, "%s [%s] %s: %s", a.Timestamp.UTC().Format("2006-01-02 15:04"), a.Severity, a.Kind, a.Message)
		if a.Suggestion != "" {
			fmt.Fprintf(&b, " (%s)", a.Suggestion)
		}
		b.WriteString("\n")
	}
	return textResult(strings.TrimRight(b.String(), "\n")), nil, nil
}
