package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/louisruiz/mt5-trading-analyzer/internal/cache"
	"github.com/louisruiz/mt5-trading-analyzer/internal/domain"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

var testTracer = trace.NewNoopTracerProvider().Tracer("test")

type stubLoader struct {
	report *domain.RiskReport
	err    error
}

func (s *stubLoader) LoadReport(ctx context.Context) (*domain.RiskReport, error) {
	return s.report, s.err
}

type stubArchive struct {
	alerts []domain.Alert
	err    error
	limit  int
}

func (s *stubArchive) RecentAlerts(ctx context.Context, limit int) ([]domain.Alert, error) {
	s.limit = limit
	return s.alerts, s.err
}

func sampleReport() *domain.RiskReport {
	at := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	r := &domain.RiskReport{
		Cycle:       4,
		GeneratedAt: at,
		VaR: domain.VaRReport{
			Samples: 250,
			Results: []domain.VaRResult{
				{Method: domain.VaRParametric, Horizon: "1d", Confidence: 0.95, Value: 0.012, ExpectedShortfall: 0.015},
				{Method: domain.VaRHistorical, Horizon: "1m", Confidence: 0.99, Value: 0.081, ExpectedShortfall: 0.094},
			},
		},
		Score: domain.RiskScore{Score: 61, Band: domain.BandHigh, Available: true},
		Alerts: []domain.Alert{
			{Kind: domain.MetricMarginPct, Severity: domain.SeverityWarning, Message: "margin 55%", Timestamp: at},
			{Kind: domain.MetricDrawdown, Severity: domain.SeverityCritical, Message: "drawdown 12%", Suggestion: "cut size", Timestamp: at},
		},
	}
	r.SetAvailability(domain.SectionVaR, nil)
	r.SetAvailability(domain.SectionScore, nil)
	r.SetAvailability(domain.SectionDrawdown, errors.New("insufficient data"))
	return r
}

func connect(t *testing.T, s *Server) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()
	clientT, serverT := mcp.NewInMemoryTransports()
	_, err := s.MCP().Connect(ctx, serverT, nil)
	require.NoError(t, err)
	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0"}, nil)
	cs, err := client.Connect(ctx, clientT, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cs.Close() })
	return cs
}

func call(t *testing.T, cs *mcp.ClientSession, tool string, args map[string]any) (string, bool) {
	t.Helper()
	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{Name: tool, Arguments: args})
	require.NoError(t, err)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok, "expected text content")
	return text.Text, res.IsError
}

func TestListTools(t *testing.T) {
	cs := connect(t, New(testTracer, &stubLoader{report: sampleReport()}, Options{}))

	res, err := cs.ListTools(context.Background(), nil)
	require.NoError(t, err)
	var names []string
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{"risk_report", "var_table", "alerts"}, names)
}

func TestRiskReportFull(t *testing.T) {
	cs := connect(t, New(testTracer, &stubLoader{report: sampleReport()}, Options{}))

	text, isErr := call(t, cs, "risk_report", map[string]any{})
	require.False(t, isErr, text)
	var got domain.RiskReport
	require.NoError(t, json.Unmarshal([]byte(text), &got))
	assert.Equal(t, int64(4), got.Cycle)
	assert.Equal(t, domain.BandHigh, got.Score.Band)
}

func TestRiskReportSection(t *testing.T) {
	cs := connect(t, New(testTracer, &stubLoader{report: sampleReport()}, Options{}))

	text, isErr := call(t, cs, "risk_report", map[string]any{"section": "drawdown"})
	require.False(t, isErr, text)
	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(text), &got))
	assert.Equal(t, false, got["available"])
	assert.Equal(t, "insufficient data", got["reason"])
	assert.Contains(t, got, "drawdown")

	text, isErr = call(t, cs, "risk_report", map[string]any{"section": "gamma"})
	assert.True(t, isErr)
	assert.Contains(t, text, "unknown section")
}

func TestRiskReportNotPublished(t *testing.T) {
	cs := connect(t, New(testTracer, &stubLoader{err: cache.ErrNoReport}, Options{}))

	text, isErr := call(t, cs, "risk_report", map[string]any{})
	assert.True(t, isErr)
	assert.Contains(t, text, "no risk report")
}

func TestVaRTableFilters(t *testing.T) {
	cs := connect(t, New(testTracer, &stubLoader{report: sampleReport()}, Options{}))

	text, isErr := call(t, cs, "var_table", map[string]any{})
	require.False(t, isErr, text)
	assert.Contains(t, text, "parametric")
	assert.Contains(t, text, "historical")

	text, isErr = call(t, cs, "var_table", map[string]any{"method": "historical"})
	require.False(t, isErr, text)
	assert.Contains(t, text, "8.10")
	assert.NotContains(t, text, "parametric")

	_, isErr = call(t, cs, "var_table", map[string]any{"horizon": "1w"})
	assert.True(t, isErr)
}

func TestVaRTableUnavailable(t *testing.T) {
	r := sampleReport()
	r.SetAvailability(domain.SectionVaR, errors.New("insufficient data: 3 returns"))
	cs := connect(t, New(testTracer, &stubLoader{report: r}, Options{}))

	text, isErr := call(t, cs, "var_table", map[string]any{})
	assert.True(t, isErr)
	assert.Contains(t, text, "insufficient data: 3 returns")
}

func TestAlertsNewestFirst(t *testing.T) {
	cs := connect(t, New(testTracer, &stubLoader{report: sampleReport()}, Options{}))

	text, isErr := call(t, cs, "alerts", map[string]any{})
	require.False(t, isErr, text)
	lines := strings.Split(text, "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "drawdown 12% (cut size)")
	assert.Contains(t, lines[1], "[warning] margin_pct")

	text, _ = call(t, cs, "alerts", map[string]any{"limit": 1})
	assert.Len(t, strings.Split(text, "\n"), 1)
}

func TestAlertsHistory(t *testing.T) {
	archive := &stubArchive{alerts: []domain.Alert{{Kind: domain.MetricRiskScore, Severity: domain.SeverityInfo, Message: "score 30"}}}
	cs := connect(t, New(testTracer, &stubLoader{report: sampleReport()}, Options{Archive: archive}))

	text, isErr := call(t, cs, "alerts", map[string]any{"history": true, "limit": 5})
	require.False(t, isErr, text)
	assert.Contains(t, text, "score 30")
	assert.Equal(t, 5, archive.limit)

	noArchive := connect(t, New(testTracer, &stubLoader{report: sampleReport()}, Options{}))
	_, isErr = call(t, noArchive, "alerts", map[string]any{"history": true})
	assert.True(t, isErr)
}

func TestRateLimit(t *testing.T) {
	cs := connect(t, New(testTracer, &stubLoader{report: sampleReport()}, Options{RatePerMinute: 1}))

	_, isErr := call(t, cs, "alerts", map[string]any{})
	require.False(t, isErr)
	text, isErr := call(t, cs, "alerts", map[string]any{})
	assert.True(t, isErr)
	assert.Contains(t, text, "rate limit")
}

func TestBearerAuth(t *testing.T) {
	h := BearerAuth("s3cret", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	for _, tc := range []struct {
		header string
		want   int
	}{
		{"", http.StatusUnauthorized},
		{"Bearer wrong", http.StatusUnauthorized},
		{"s3cret", http.StatusUnauthorized},
		{"Bearer s3cret", http.StatusNoContent},
	} {
		req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, tc.want, rec.Code, "header %q", tc.header)
	}
}
