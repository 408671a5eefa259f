package tui

import (
	"github.com/louisruiz/mt5-trading-analyzer/internal/domain"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED")).
			Background(lipgloss.Color("#1F2937")).
			Padding(0, 1)

	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#F9FAFB")).
			Background(lipgloss.Color("#3B82F6")).
			Padding(0, 1)

	tabStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#9CA3AF")).
			Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#3B82F6")).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#9CA3AF"))

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280")).
			Italic(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444")).
			Bold(true)
)

var bandColors = map[domain.RiskBand]lipgloss.Color{
	domain.BandLow:      lipgloss.Color("#10B981"),
	domain.BandMedium:   lipgloss.Color("#F59E0B"),
	domain.BandHigh:     lipgloss.Color("#F97316"),
	domain.BandCritical: lipgloss.Color("#EF4444"),
}

var severityColors = map[domain.Severity]lipgloss.Color{
	domain.SeverityInfo:     lipgloss.Color("#3B82F6"),
	domain.SeverityWarning:  lipgloss.Color("#F59E0B"),
	domain.SeverityCritical: lipgloss.Color("#EF4444"),
}

func bandStyle(b domain.RiskBand) lipgloss.Style {
	return lipgloss.NewStyle().Bold(true).Foreground(bandColors[b])
}

func severityStyle(s domain.Severity) lipgloss.Style {
	return lipgloss.NewStyle().Bold(true).Foreground(severityColors[s])
}
