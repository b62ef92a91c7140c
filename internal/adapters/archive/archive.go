// Package archive persists answered prompts across sessions. The in-memory
// history stays the source of truth for the running app; the archive is
// append-only and only read back by `ghc history`.
package archive

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/ghc-desk/ghc/internal/history"
)

// Archive kinds accepted in configuration.
const (
	KindOff    = "off"
	KindJSON   = "json"
	KindSQLite = "sqlite"
)

// Record is one archived entry.
type Record struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Label     string    `json:"label"`
	Model     string    `json:"model,omitempty"`
	Output    string    `json:"output"`
	CreatedAt time.Time `json:"created_at"`
}

// FromEntry converts a history entry. The raw output is archived, so a
// record can be rendered again later with the current renderer.
func FromEntry(sessionID string, e history.Entry) Record {
	out := e.Raw
	if out == "" {
		out = string(e.Output)
	}
	return Record{
		ID:        e.ID,
		SessionID: sessionID,
		Label:     e.Label,
		Model:     e.Model,
		Output:    out,
		CreatedAt: e.CreatedAt,
	}
}

// Store is an append-only archive.
type Store interface {
	Append(ctx context.Context, r Record) error
	// List returns up to limit records, newest first. limit <= 0 means all.
	List(ctx context.Context, limit int) ([]Record, error)
	Close() error
}

// DefaultPath returns the archive location for kind under dir.
func DefaultPath(dir, kind string) string {
	if kind == KindSQLite {
		return filepath.Join(dir, "history.db")
	}
	return filepath.Join(dir, "history.json")
}

// Open returns the store for kind. "off" gives a store that drops records.
func Open(kind, path string) (Store, error) {
	switch strings.ToLower(kind) {
	case "", KindOff:
		return nopStore{}, nil
	case KindJSON:
		return NewJSONStore(path)
	case KindSQLite:
		if !strings.HasSuffix(path, ".db") {
			path = strings.TrimSuffix(path, filepath.Ext(path)) + ".db"
		}
		return NewSQLiteStore(path)
	default:
		return nil, fmt.Errorf("unknown history archive %q", kind)
	}
}

type nopStore struct{}

func (nopStore) Append(context.Context, Record) error { return nil }
func (nopStore) List(context.Context, int) ([]Record, error) { return nil, nil }
func (nopStore) Close() error { return nil }
