package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/secmon-lab/csvgate/pkg/domain/types"
)

var (
	colorSuccess = lipgloss.Color("#2e7d32")
	colorError   = lipgloss.Color("#c62828")
	colorText    = lipgloss.Color("#ffffff")
)

var bannerStyle = lipgloss.NewStyle().
	Foreground(colorText).
	Bold(true).
	Padding(1, 2)

var alertStyle = lipgloss.NewStyle().
	BorderStyle(lipgloss.RoundedBorder()).
	Padding(0, 2)

func severityColor(severity types.Severity) lipgloss.Color {
	if severity.IsError() {
		return colorError
	}
	return colorSuccess
}

func renderBanner(severity types.Severity, text string) string {
	return bannerStyle.Background(severityColor(severity)).Render(text)
}

func renderAlert(severity types.Severity, text string) string {
	return alertStyle.BorderForeground(severityColor(severity)).Render(text)
}
