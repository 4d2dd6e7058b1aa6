// Package cli provides styled terminal output using lipgloss.
package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// Palette. Adaptive colors keep output readable on light terminals.
var (
	accentColor  = lipgloss.AdaptiveColor{Light: "#005F87", Dark: "#5FAFD7"}
	successColor = lipgloss.AdaptiveColor{Light: "#00875F", Dark: "#4ECDC4"}
	warningColor = lipgloss.AdaptiveColor{Light: "#AF8700", Dark: "#FFE66D"}
	errorColor   = lipgloss.AdaptiveColor{Light: "#D70000", Dark: "#FF6B6B"}
	infoColor    = lipgloss.AdaptiveColor{Light: "#0087AF", Dark: "#95E1D3"}
	subtleColor  = lipgloss.AdaptiveColor{Light: "#8A8A8A", Dark: "#666666"}
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(accentColor).MarginBottom(1)
	successStyle = lipgloss.NewStyle().Foreground(successColor)
	errorStyle   = lipgloss.NewStyle().Foreground(errorColor)
	boxStyle     = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(subtleColor).
			Padding(1, 2)

	// WarningStyle marks uncertain values such as unrecognized cities.
	WarningStyle = lipgloss.NewStyle().Foreground(warningColor)
	// InfoStyle formats secondary facts like matched keywords.
	InfoStyle = lipgloss.NewStyle().Foreground(infoColor)
	// SubtleStyle formats less prominent text.
	SubtleStyle = lipgloss.NewStyle().Foreground(subtleColor)
	// BoldStyle makes text bold.
	BoldStyle = lipgloss.NewStyle().Bold(true)
	// TableHeaderStyle is used for table headers.
	TableHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(accentColor)
)

// Icons.
const (
	SuccessIcon = "✓"
	ErrorIcon   = "✗"
	WarningIcon = "⚠️"
	InfoIcon    = "ℹ️"
	TallyIcon   = "🧾"
	CityIcon    = "📍"
)

// FormatSuccess formats a success message with icon.
func FormatSuccess(message string) string {
	return successStyle.Render(SuccessIcon + " " + message)
}

// FormatError formats an error message with icon.
func FormatError(message string) string {
	return errorStyle.Render(ErrorIcon + " " + message)
}

// FormatWarning formats a warning message with icon.
func FormatWarning(message string) string {
	return WarningStyle.Render(WarningIcon + " " + message)
}

// FormatInfo formats an info message with icon.
func FormatInfo(message string) string {
	return InfoStyle.Render(InfoIcon + " " + message)
}

// FormatTitle formats a title with the tally icon.
func FormatTitle(title string) string {
	return titleStyle.Render(TallyIcon + " " + title)
}

// FormatConfidence renders a confidence score: recognized scores in the
// success color, weaker matches as warnings and zero as subtle text.
func FormatConfidence(confidence, threshold float64) string {
	text := fmt.Sprintf("%.2f", confidence)
	switch {
	case confidence >= threshold:
		return successStyle.Render(text)
	case confidence > 0:
		return WarningStyle.Render(text)
	default:
		return SubtleStyle.Render(text)
	}
}

// RenderBox renders a titled summary box.
func RenderBox(title, content string) string {
	heading := titleStyle.UnsetMargins().Render(title)
	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, heading, content))
}
