// Package cli provides styled terminal output for the mentat commands.
package cli

import (
	"github.com/charmbracelet/lipgloss"
)

// Palette.
var (
	AccentColor = lipgloss.Color("#7AA2F7")
	GoodColor   = lipgloss.Color("#9ECE6A")
	WarnColor   = lipgloss.Color("#E0AF68")
	BadColor    = lipgloss.Color("#F7768E")
	NoteColor   = lipgloss.Color("#7DCFFF")
	MutedColor  = lipgloss.Color("#565F89")
)

var (
	// TitleStyle renders command and box titles.
	TitleStyle = lipgloss.NewStyle().Bold(true).Foreground(AccentColor).MarginBottom(1)

	SuccessStyle = lipgloss.NewStyle().Foreground(GoodColor)
	WarningStyle = lipgloss.NewStyle().Foreground(WarnColor)
	ErrorStyle   = lipgloss.NewStyle().Foreground(BadColor).Bold(true)
	InfoStyle    = lipgloss.NewStyle().Foreground(NoteColor)
	SubtleStyle  = lipgloss.NewStyle().Foreground(MutedColor)

	// HeaderStyle renders column headers of tabwriter tables.
	HeaderStyle = lipgloss.NewStyle().Bold(true).Underline(true).Foreground(AccentColor)

	// BoxStyle frames the end-of-run summary.
	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(MutedColor).
			Padding(0, 2)
)

// Icons.
const (
	SuccessIcon  = "✓"
	ErrorIcon    = "✗"
	WarningIcon  = "⚠️"
	InfoIcon     = "ℹ️"
	DocumentIcon = "📄"
	ChartIcon    = "📊"
)

func withIcon(style lipgloss.Style, icon, message string) string {
	return style.Render(icon + " " + message)
}

// FormatSuccess prefixes message with a check mark.
func FormatSuccess(message string) string { return withIcon(SuccessStyle, SuccessIcon, message) }

// FormatError prefixes message with a cross.
func FormatError(message string) string { return withIcon(ErrorStyle, ErrorIcon, message) }

// FormatWarning prefixes message with a warning sign.
func FormatWarning(message string) string { return withIcon(WarningStyle, WarningIcon, message) }

// FormatInfo prefixes message with an info sign.
func FormatInfo(message string) string { return withIcon(InfoStyle, InfoIcon, message) }

// FormatTitle renders a section title.
func FormatTitle(title string) string { return withIcon(TitleStyle, DocumentIcon, title) }

// RenderBox frames content under a title.
func RenderBox(title, content string) string {
	heading := TitleStyle.UnsetMargins().Render(title)
	return BoxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, heading, "", content))
}
