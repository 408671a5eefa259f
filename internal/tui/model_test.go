package tui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/louisruiz/mt5-trading-analyzer/internal/domain"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLoader struct {
	report *domain.RiskReport
	err    error
	calls  int
}

func (s *stubLoader) LoadReport(ctx context.Context) (*domain.RiskReport, error) {
	s.calls++
	return s.report, s.err
}

type stubAdvisor struct {
	reply    string
	err      error
	question string
	chatID   int64
}

func (s *stubAdvisor) Ask(ctx context.Context, chatID int64, question string) (string, error) {
	s.question = question
	s.chatID = chatID
	return s.reply, s.err
}

func sampleReport() *domain.RiskReport {
	r := &domain.RiskReport{
		Cycle:       9,
		GeneratedAt: time.Now(),
		Account:     domain.AccountInfo{Login: 7001, Currency: "EUR", Equity: 20500, Balance: 20000, Margin: 1200},
		Positions:   2,
		Score: domain.RiskScore{
			Score: 78, Band: domain.BandCritical, Available: true,
			Components: []domain.RiskComponent{
				{Name: domain.MetricDrawdown, Normalized: 90, Available: true},
				{Name: domain.MetricVaRMonthly, Available: false},
			},
		},
		VaR: domain.VaRReport{Samples: 120, Results: []domain.VaRResult{
			{Method: domain.VaRHistorical, Horizon: "1m", Confidence: 0.95, Value: 0.105, ExpectedShortfall: 0.12},
		}},
		Leverage: domain.LeverageReport{
			DLeverage: 19.2, Threshold: 16.25, Style: domain.StyleIntraday, Exceeded: true, ScaleFactor: 0.85,
			Suggestions: []domain.ResizeSuggestion{{Ticket: 4, Symbol: "EURUSD", Volume: 1, NewVolume: 0.85, ReducePct: 15}},
		},
		Alerts: []domain.Alert{
			{Severity: domain.SeverityWarning, Message: "older alert"},
			{Severity: domain.SeverityCritical, Message: "newer alert", Suggestion: "reduce volume"},
		},
	}
	r.SetAvailability(domain.SectionScore, nil)
	r.SetAvailability(domain.SectionVaR, nil)
	r.SetAvailability(domain.SectionLeverage, nil)
	r.SetAvailability(domain.SectionDrawdown, errors.New("insufficient data"))
	return r
}

func loaded(t *testing.T, svc Services) *AppModel {
	t.Helper()
	m := NewAppModel(svc)
	m.SetSize(120, 40)
	msg := m.load()()
	_, _ = m.Update(msg)
	return m
}

func press(m *AppModel, k tea.KeyMsg) tea.Cmd {
	_, cmd := m.Update(k)
	return cmd
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestOverviewShowsScoreAndAccount(t *testing.T) {
	m := loaded(t, Services{Reports: &stubLoader{report: sampleReport()}, Username: "trader"})

	view := m.View()
	assert.Contains(t, view, "MT5 Risk Dashboard")
	assert.Contains(t, view, "7001 (EUR)")
	assert.Contains(t, view, "78.0 CRITICAL")
	assert.Contains(t, view, "trader")
	assert.NotContains(t, view, "Ask", "no advisor means no ask tab")
}

func TestTabNavigation(t *testing.T) {
	m := loaded(t, Services{Reports: &stubLoader{report: sampleReport()}})

	press(m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, tabVaR, m.current())
	assert.Contains(t, m.content(), "historical")

	press(m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, tabDrawdown, m.current())
	assert.Contains(t, m.content(), "drawdown unavailable: insufficient data")

	press(m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Contains(t, m.content(), "0.85 lots (-15%)")

	for i := 0; i < 4; i++ {
		press(m, tea.KeyMsg{Type: tea.KeyShiftTab})
	}
	assert.Equal(t, tabAlerts, m.current(), "shift+tab wraps around")

	content := m.content()
	assert.Less(t, strings.Index(content, "newer alert"), strings.Index(content, "older alert"))
}

func TestExposureAndPerformanceTabs(t *testing.T) {
	r := sampleReport()
	r.Exposure = domain.ExposureReport{
		Durations: []domain.DurationBucket{{Label: "scalping", Positions: 2, Pct: 60, LongNotional: 1500, ShortNotional: 300}},
		Sizing:    domain.PositionSizing{Defined: true, Count: 2, AvgPct: 45, MaxPct: 70, MinPct: 20, HHI: 0.58},
	}
	r.Performance = domain.PerformanceReport{
		TotalReturnPct: 2.5, Sharpe: 1.4, SharpeRating: domain.RatingGood,
		RollingWindow: 30,
		Rolling: []domain.RollingPoint{
			{Timestamp: time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC), ReturnPct: 1.2, Sharpe: 0.8, SharpeDefined: true, MaxDrawdownPct: -3},
			{Timestamp: time.Date(2025, 6, 3, 10, 0, 0, 0, time.UTC), ReturnPct: -0.4},
		},
	}
	r.SetAvailability(domain.SectionExposure, nil)
	r.SetAvailability(domain.SectionPerformance, nil)
	m := loaded(t, Services{Reports: &stubLoader{report: r}})

	for i := 0; i < 4; i++ {
		press(m, tea.KeyMsg{Type: tea.KeyTab})
	}
	require.Equal(t, tabExposure, m.current())
	exp := m.content()
	assert.Contains(t, exp, "scalping")
	assert.Contains(t, exp, "avg 45.0%  max 70.0%  min 20.0% of equity")

	press(m, tea.KeyMsg{Type: tea.KeyTab})
	require.Equal(t, tabPerformance, m.current())
	perf := m.content()
	assert.Contains(t, perf, "1.40 (good)")
	assert.Contains(t, perf, "Rolling 30 periods")
	assert.Contains(t, perf, "06-03 10:00")
	assert.Contains(t, perf, "n/a", "undefined rolling Sharpe")
}

func TestQuit(t *testing.T) {
	m := loaded(t, Services{Reports: &stubLoader{report: sampleReport()}})
	cmd := press(m, runes("q"))
	require.NotNil(t, cmd)
	_, ok := cmd().(tea.QuitMsg)
	assert.True(t, ok)
}

func TestLoadErrorKeepsPreviousReport(t *testing.T) {
	loader := &stubLoader{report: sampleReport()}
	m := loaded(t, Services{Reports: loader})

	loader.err = errors.New("redis down")
	_, _ = m.Update(m.load()())
	assert.NotNil(t, m.report)
	assert.Contains(t, m.content(), "7001")

	empty := loaded(t, Services{Reports: &stubLoader{err: errors.New("redis down")}})
	assert.Contains(t, empty.content(), "No report: redis down")
}

func TestReloadKey(t *testing.T) {
	loader := &stubLoader{report: sampleReport()}
	m := loaded(t, Services{Reports: loader})

	cmd := press(m, runes("r"))
	require.NotNil(t, cmd)
	_, ok := cmd().(reportMsg)
	assert.True(t, ok)
	assert.Equal(t, 2, loader.calls)
}

func TestAskFlow(t *testing.T) {
	adv := &stubAdvisor{reply: "Cut EURUSD first."}
	m := loaded(t, Services{Reports: &stubLoader{report: sampleReport()}, Advisor: adv, ChatID: -42})

	press(m, tea.KeyMsg{Type: tea.KeyShiftTab})
	require.Equal(t, tabAsk, m.current())
	assert.True(t, m.input.Focused())

	for _, r := range "quick?" {
		press(m, runes(string(r)))
	}
	assert.Equal(t, "quick?", m.input.Value(), "letters go to the input, not the key bindings")

	cmd := press(m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.True(t, m.asking)
	assert.Empty(t, m.input.Value())

	_, _ = m.Update(cmd())
	assert.False(t, m.asking)
	assert.Equal(t, "quick?", adv.question)
	assert.Equal(t, int64(-42), adv.chatID)
	assert.Contains(t, m.content(), "Cut EURUSD first.")
}

func TestAskError(t *testing.T) {
	adv := &stubAdvisor{err: errors.New("quota")}
	m := loaded(t, Services{Reports: &stubLoader{report: sampleReport()}, Advisor: adv})
	press(m, tea.KeyMsg{Type: tea.KeyShiftTab})
	m.input.SetValue("hello")

	cmd := press(m, tea.KeyMsg{Type: tea.KeyEnter})
	_, _ = m.Update(cmd())
	assert.Contains(t, m.content(), "advisor error: quota")
}

func TestBar(t *testing.T) {
	assert.Equal(t, "█████░░░░░", bar(0.5, 10))
	assert.Equal(t, "░░░░░░░░░░", bar(-1, 10))
	assert.Equal(t, "██████████", bar(2, 10))
}
