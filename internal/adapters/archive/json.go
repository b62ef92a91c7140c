package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/ghc-desk/ghc/internal/fsutil"
)

const jsonVersion = 1

// JSONStore keeps the archive in one JSON file, rewritten atomically on
// every append.
type JSONStore struct {
	mu   sync.Mutex
	path string
}

type envelope struct {
	Version int      `json:"version"`
	Records []Record `json:"records"`
}

// NewJSONStore opens or creates the archive at path.
func NewJSONStore(path string) (*JSONStore, error) {
	s := &JSONStore{path: path}
	if _, err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *JSONStore) load() (*envelope, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &envelope{Version: jsonVersion}, nil
		}
		return nil, fmt.Errorf("reading archive: %w", err)
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("parsing archive: %w", err)
	}
	return &env, nil
}

// Append adds r at the end of the file.
func (s *JSONStore) Append(ctx context.Context, r Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	env, err := s.load()
	if err != nil {
		return err
	}
	env.Version = jsonVersion
	env.Records = append(env.Records, r)

	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling archive: %w", err)
	}
	if err := fsutil.WriteFileAtomic(s.path, data, 0o600); err != nil {
		return fmt.Errorf("writing archive: %w", err)
	}
	return nil
}

// List returns records newest first.
func (s *JSONStore) List(ctx context.Context, limit int) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	env, err := s.load()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	out := make([]Record, len(env.Records))
	copy(out, env.Records)
	// Stable keeps append order for records with equal timestamps.
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Close is a no-op.
func (s *JSONStore) Close() error { return nil }
