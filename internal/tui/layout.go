package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// Truncate shortens s to width terminal cells, ending with an ellipsis.
func Truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= width {
		return s
	}
	return runewidth.Truncate(s, width, "…")
}

// Divider creates a horizontal divider.
func Divider(width int) string {
	if width < 1 {
		width = 1
	}
	return SubtleStyle.Render(strings.Repeat("─", width))
}

// Spread places left and right on one line of the given width.
func Spread(left, right string, width int) string {
	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + right
}

// Box wraps content in a bordered panel with an optional title.
func Box(title, content string, width int) string {
	style := BoxStyle.Width(max(width-2, 10))
	if title != "" {
		return style.Render(TitleStyle.Render(title) + "\n" + content)
	}
	return style.Render(content)
}
