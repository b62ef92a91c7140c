// Package history keeps the in-session, append-only record of answered prompts.
package history

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ghc-desk/ghc/internal/render"
)

// Entry is one answered prompt. Entries are never modified after Append.
type Entry struct {
	ID        string               `json:"id"`
	Label     string               `json:"label"`
	Output    render.SanitizedHTML `json:"output"`
	Raw       string               `json:"raw,omitempty"`
	Model     string               `json:"model,omitempty"`
	CreatedAt time.Time            `json:"created_at"`
}

// Option sets optional entry fields.
type Option func(*Entry)

// WithRaw keeps the unrendered output, used by the terminal UI and the clipboard.
func WithRaw(raw string) Option {
	return func(e *Entry) { e.Raw = raw }
}

// WithModel records the model that produced the output.
func WithModel(model string) Option {
	return func(e *Entry) { e.Model = model }
}

// Log is the ordered history, oldest first. It has no size cap and no
// removal API. Visibility is presentation state only and never touches
// the entries.
type Log struct {
	mu      sync.RWMutex
	entries []Entry
	visible bool
	now     func() time.Time
}

// NewLog creates an empty, hidden history.
func NewLog() *Log {
	return &Log{now: time.Now}
}

// Append adds an entry at the end and returns it.
func (l *Log) Append(label string, rendered render.SanitizedHTML, opts ...Option) Entry {
	e := Entry{
		ID:     uuid.New().String(),
		Label:  label,
		Output: rendered,
	}
	for _, opt := range opts {
		opt(&e)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	e.CreatedAt = l.now()
	l.entries = append(l.entries, e)
	return e
}

// Entries returns a copy of all entries in insertion order.
func (l *Log) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of entries.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// ToggleVisibility flips whether the history panel is shown and returns
// the new value.
func (l *Log) ToggleVisibility() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.visible = !l.visible
	return l.visible
}
