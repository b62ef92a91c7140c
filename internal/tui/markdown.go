package tui

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/ansi"
	"github.com/charmbracelet/glamour/styles"
)

// markdown renders assistant output for the terminal. Word wrap follows the
// window width within readable bounds.
type markdown struct {
	width    int
	renderer *glamour.TermRenderer
}

func newMarkdown(width int) *markdown {
	md := &markdown{}
	md.resize(width)
	return md
}

func (md *markdown) resize(width int) {
	width = min(max(width, 40), 120)
	if md.renderer != nil && width == md.width {
		return
	}

	style := styles.DraculaStyleConfig
	style.Code = ansi.StyleBlock{
		StylePrimitive: ansi.StylePrimitive{
			Color:           stringPtr("229"),
			BackgroundColor: stringPtr(""),
		},
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStyles(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return
	}
	md.width, md.renderer = width, r
}

// Render returns the styled text, or raw when rendering fails.
func (md *markdown) Render(raw string) string {
	if md.renderer == nil {
		return raw
	}
	out, err := md.renderer.Render(raw)
	if err != nil {
		return raw
	}
	return strings.Trim(out, "\n")
}

func stringPtr(s string) *string {
	return &s
}
