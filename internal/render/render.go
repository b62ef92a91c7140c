// Package render turns assistant output into HTML that is safe to display.
package render

import (
	"bytes"
	"fmt"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// SanitizedHTML is HTML that has passed through the sanitizer policy.
// Only this package produces values of this type from raw text.
type SanitizedHTML string

// String returns the HTML markup.
func (h SanitizedHTML) String() string { return string(h) }

// Renderer converts markdown into sanitized HTML. It is safe for
// concurrent use and holds no per-call state.
type Renderer struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

// New builds a renderer with GitHub-flavored markdown and a UGC policy.
func New() *Renderer {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.Table,
			extension.Strikethrough,
			extension.Linkify,
			extension.TaskList,
		),
	)

	policy := bluemonday.UGCPolicy()
	policy.RequireNoFollowOnLinks(true)
	policy.AddTargetBlankToFullyQualifiedLinks(true)
	// Fenced code blocks carry a language class used for styling.
	policy.AllowAttrs("class").Matching(bluemonday.SpaceSeparatedTokens).OnElements("code", "pre")
	policy.AllowAttrs("type", "checked", "disabled").OnElements("input")

	return &Renderer{md: md, policy: policy}
}

// Render converts raw text to sanitized HTML. Identical input always
// yields identical output. If conversion fails, the raw text is escaped
// and wrapped in a paragraph instead.
func (r *Renderer) Render(raw string) (out SanitizedHTML) {
	defer func() {
		if rec := recover(); rec != nil {
			out = r.literal(raw)
		}
	}()

	var buf bytes.Buffer
	if err := r.md.Convert([]byte(raw), &buf); err != nil {
		return r.literal(raw)
	}
	return SanitizedHTML(r.policy.SanitizeBytes(buf.Bytes()))
}

func (r *Renderer) literal(raw string) SanitizedHTML {
	escaped := html.EscapeString(raw)
	escaped = strings.ReplaceAll(escaped, "\n", "<br>\n")
	return SanitizedHTML(fmt.Sprintf("<p>%s</p>", escaped))
}
