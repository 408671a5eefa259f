// Package tui is the bubbletea risk dashboard served over SSH.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/louisruiz/mt5-trading-analyzer/internal/domain"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ReportLoader reads the report published by the analyzer process.
type ReportLoader interface {
	LoadReport(ctx context.Context) (*domain.RiskReport, error)
}

type AdvisorQuerier interface {
	Ask(ctx context.Context, chatID int64, question string) (string, error)
}

// Services are the per-session dependencies of the dashboard.
type Services struct {
	Reports  ReportLoader
	Advisor  AdvisorQuerier
	ChatID   int64
	Username string
	Refresh  time.Duration
}

type tab int

const (
	tabOverview tab = iota
	tabVaR
	tabDrawdown
	tabLeverage
	tabExposure
	tabPerformance
	tabAlerts
	tabAsk
)

var tabNames = []string{"Overview", "VaR", "Drawdown", "Leverage", "Exposure", "Performance", "Alerts", "Ask"}

type keyMap struct {
	Next    key.Binding
	Prev    key.Binding
	Refresh key.Binding
	Quit    key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Next, k.Prev, k.Refresh, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

var keys = keyMap{
	Next:    key.NewBinding(key.WithKeys("tab", "right"), key.WithHelp("tab", "next")),
	Prev:    key.NewBinding(key.WithKeys("shift+tab", "left"), key.WithHelp("shift+tab", "prev")),
	Refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
	Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

type reportMsg struct {
	report *domain.RiskReport
	err    error
}

type tickMsg time.Time

type answerMsg struct {
	question string
	reply    string
	err      error
}

type AppModel struct {
	svc    Services
	tabs   []tab
	active int

	report   *domain.RiskReport
	loadErr  error
	loading  bool
	loadedAt time.Time

	spinner  spinner.Model
	viewport viewport.Model
	input    textinput.Model
	help     help.Model

	asking     bool
	transcript []string

	width  int
	height int
}

func NewAppModel(svc Services) *AppModel {
	if svc.Refresh <= 0 {
		svc.Refresh = 15 * time.Second
	}
	tabs := []tab{tabOverview, tabVaR, tabDrawdown, tabLeverage, tabExposure, tabPerformance, tabAlerts}
	if svc.Advisor != nil {
		tabs = append(tabs, tabAsk)
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	in := textinput.New()
	in.Placeholder = "Ask about your risk, e.g. why is my score high?"
	in.CharLimit = 500

	m := &AppModel{
		svc:      svc,
		tabs:     tabs,
		loading:  true,
		spinner:  sp,
		viewport: viewport.New(80, 20),
		input:    in,
		help:     help.New(),
	}
	return m
}

// SetSize fits the content area to the terminal.
func (m *AppModel) SetSize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	m.width = width
	m.height = height
	m.input.Width = width - 6
	m.viewport.Width = width - 4
	// title, tabs, panel border, help
	m.viewport.Height = max(height-8, 3)
	m.refreshContent()
}

func (m *AppModel) Init() tea.Cmd {
	return tea.Batch(m.load(), m.tick(), m.spinner.Tick)
}

func (m *AppModel) load() tea.Cmd {
	loader := m.svc.Reports
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		r, err := loader.LoadReport(ctx)
		return reportMsg{report: r, err: err}
	}
}

func (m *AppModel) tick() tea.Cmd {
	return tea.Tick(m.svc.Refresh, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m *AppModel) ask(question string) tea.Cmd {
	advisor, chatID := m.svc.Advisor, m.svc.ChatID
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()
		reply, err := advisor.Ask(ctx, chatID, question)
		return answerMsg{question: question, reply: reply, err: err}
	}
}

func (m *AppModel) current() tab {
	return m.tabs[m.active]
}

func (m *AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.SetSize(msg.Width, msg.Height)
		return m, nil

	case reportMsg:
		m.loading = false
		m.loadErr = msg.err
		if msg.err == nil {
			m.report = msg.report
			m.loadedAt = time.Now()
		}
		m.refreshContent()
		return m, nil

	case tickMsg:
		m.loading = true
		return m, tea.Batch(m.load(), m.tick())

	case answerMsg:
		m.asking = false
		if msg.err != nil {
			m.transcript = append(m.transcript, errorStyle.Render("advisor error: "+msg.err.Error()))
		} else {
			m.transcript = append(m.transcript, msg.reply)
		}
		m.refreshContent()
		m.viewport.GotoBottom()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if m.current() == tabAsk && m.input.Focused() {
			switch msg.String() {
			case "enter":
				q := strings.TrimSpace(m.input.Value())
				if q == "" || m.asking {
					return m, nil
				}
				m.input.SetValue("")
				m.asking = true
				m.transcript = append(m.transcript, labelStyle.Render("> "+q))
				m.refreshContent()
				return m, m.ask(q)
			case "esc":
				m.input.Blur()
				return m, nil
			case "tab", "shift+tab", "ctrl+c":
			default:
				var cmd tea.Cmd
				m.input, cmd = m.input.Update(msg)
				return m, cmd
			}
		}

		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, keys.Next):
			m.switchTab(1)
			return m, nil
		case key.Matches(msg, keys.Prev):
			m.switchTab(-1)
			return m, nil
		case key.Matches(msg, keys.Refresh):
			m.loading = true
			return m, m.load()
		case msg.String() == "enter" && m.current() == tabAsk:
			return m, m.input.Focus()
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m *AppModel) switchTab(delta int) {
	m.active = (m.active + delta + len(m.tabs)) % len(m.tabs)
	if m.current() == tabAsk {
		m.input.Focus()
	} else {
		m.input.Blur()
	}
	m.refreshContent()
	m.viewport.GotoTop()
}

func (m *AppModel) refreshContent() {
	m.viewport.SetContent(m.content())
}

func (m *AppModel) content() string {
	if m.current() == tabAsk {
		if len(m.transcript) == 0 {
			return mutedStyle.Render("Ask the advisor about the current report. Press enter to send.")
		}
		return strings.Join(m.transcript, "\n\n")
	}
	if m.report == nil {
		if m.loadErr != nil {
			return errorStyle.Render("No report: " + m.loadErr.Error())
		}
		return mutedStyle.Render("Waiting for the first risk report...")
	}
	switch m.current() {
	case tabVaR:
		return renderVaR(m.report)
	case tabDrawdown:
		return renderDrawdown(m.report)
	case tabLeverage:
		return renderLeverage(m.report)
	case tabExposure:
		return renderExposure(m.report)
	case tabPerformance:
		return renderPerformance(m.report)
	case tabAlerts:
		return renderAlerts(m.report)
	}
	return renderOverview(m.report)
}

func (m *AppModel) View() string {
	var b strings.Builder

	title := titleStyle.Render("MT5 Risk Dashboard")
	status := ""
	switch {
	case m.loading || m.asking:
		status = m.spinner.View()
	case m.report != nil:
		status = labelStyle.Render(fmt.Sprintf("cycle %d, %s ago", m.report.Cycle, time.Since(m.report.GeneratedAt).Round(time.Second)))
	}
	if m.svc.Username != "" {
		status += labelStyle.Render("  " + m.svc.Username)
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Center, title, " ", status))
	b.WriteString("\n")

	tabs := make([]string, len(m.tabs))
	for i, t := range m.tabs {
		if i == m.active {
			tabs[i] = activeTabStyle.Render(tabNames[t])
		} else {
			tabs[i] = tabStyle.Render(tabNames[t])
		}
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, tabs...))
	b.WriteString("\n")

	b.WriteString(panelStyle.Render(m.viewport.View()))
	b.WriteString("\n")
	if m.current() == tabAsk {
		b.WriteString(m.input.View())
		b.WriteString("\n")
	}
	b.WriteString(m.help.View(keys))
	return b.String()
}
