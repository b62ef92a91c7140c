package tui

import "github.com/charmbracelet/lipgloss"

var (
	// HeaderStyle is the top bar.
	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary).
			Padding(0, 1)

	// FooterStyle is the key help line.
	FooterStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted)

	// BoxStyle wraps the output and history panels.
	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(0, 1)

	// InputBoxStyle is the prompt box while it accepts input.
	InputBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorPrimary).
			Padding(0, 1)

	// InputDisabledStyle is the prompt box while controls are disabled.
	InputDisabledStyle = InputBoxStyle.
				BorderForeground(ColorBorder)

	RunningStyle = lipgloss.NewStyle().
			Foreground(ColorSecondary).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorError).
			Bold(true)

	StatusStyle = lipgloss.NewStyle().
			Foreground(ColorInfo)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(ColorSuccess)

	WarningStyle = lipgloss.NewStyle().
			Foreground(ColorWarning)

	// TitleStyle is for panel titles.
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary)

	// SubtleStyle is for secondary text.
	SubtleStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted)

	// SelectedStyle highlights the cursor row of a list.
	SelectedStyle = lipgloss.NewStyle().
			Foreground(ColorText).
			Background(ColorHighlight).
			Bold(true)

	// BadgeStyle frames short labels in the header.
	BadgeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#000000")).
			Background(ColorAccent).
			Padding(0, 1).
			Bold(true)

	// UserCodeStyle makes the device code stand out.
	UserCodeStyle = lipgloss.NewStyle().
			Foreground(ColorAccent).
			Bold(true).
			Underline(true)
)
