package tui

import (
	"strings"

	"github.com/sahilm/fuzzy"
)

// modelPicker is the model selector overlay. Typing narrows the list by
// fuzzy match; the cursor always points into the filtered list.
type modelPicker struct {
	models   []string
	query    string
	filtered []string
	cursor   int
}

func newModelPicker(models []string, current string) modelPicker {
	p := modelPicker{models: models}
	p.filter()
	for i, m := range p.filtered {
		if m == current {
			p.cursor = i
		}
	}
	return p
}

func (p *modelPicker) filter() {
	q := strings.ToLower(strings.TrimSpace(p.query))
	if q == "" {
		p.filtered = append([]string(nil), p.models...)
	} else {
		matches := fuzzy.Find(q, p.models)
		p.filtered = make([]string, 0, len(matches))
		for _, m := range matches {
			p.filtered = append(p.filtered, m.Str)
		}
	}
	if p.cursor >= len(p.filtered) {
		p.cursor = max(len(p.filtered)-1, 0)
	}
}

func (p *modelPicker) typeRunes(r []rune) {
	p.query += string(r)
	p.cursor = 0
	p.filter()
}

func (p *modelPicker) backspace() {
	if p.query == "" {
		return
	}
	r := []rune(p.query)
	p.query = string(r[:len(r)-1])
	p.filter()
}

func (p *modelPicker) up() {
	if p.cursor > 0 {
		p.cursor--
	}
}

func (p *modelPicker) down() {
	if p.cursor < len(p.filtered)-1 {
		p.cursor++
	}
}

// Selected returns the model under the cursor.
func (p modelPicker) Selected() (string, bool) {
	if len(p.filtered) == 0 {
		return "", false
	}
	return p.filtered[p.cursor], true
}

func (p modelPicker) View(width int) string {
	var sb strings.Builder
	sb.WriteString(SubtleStyle.Render("filter: ") + p.query + "\n")
	if len(p.filtered) == 0 {
		sb.WriteString(SubtleStyle.Render("no matching model"))
	}
	for i, m := range p.filtered {
		line := "  " + Truncate(m, width-4)
		if i == p.cursor {
			line = SelectedStyle.Render("> " + Truncate(m, width-4))
		}
		sb.WriteString(line)
		if i < len(p.filtered)-1 {
			sb.WriteString("\n")
		}
	}
	return Box("Model", sb.String(), width)
}
