package archive

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghc-desk/ghc/internal/history"
	"github.com/ghc-desk/ghc/internal/render"
)

func record(id string, at time.Time) Record {
	return Record{
		ID:        id,
		SessionID: "s1",
		Label:     "prompt " + id,
		Model:     "gpt-5",
		Output:    "# answer " + id,
		CreatedAt: at,
	}
}

// storeContract runs the shared behaviour against any Store.
func storeContract(t *testing.T, open func(t *testing.T) Store) {
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("empty", func(t *testing.T) {
		s := open(t)
		got, err := s.List(ctx, 0)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("newest first", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Append(ctx, record("a", base)))
		require.NoError(t, s.Append(ctx, record("b", base.Add(500*time.Millisecond))))
		require.NoError(t, s.Append(ctx, record("c", base.Add(2*time.Second))))

		got, err := s.List(ctx, 0)
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, []string{"c", "b", "a"}, []string{got[0].ID, got[1].ID, got[2].ID})
		assert.Equal(t, "prompt a", got[2].Label)
		assert.Equal(t, "gpt-5", got[2].Model)
		assert.True(t, got[2].CreatedAt.Equal(base))
	})

	t.Run("limit", func(t *testing.T) {
		s := open(t)
		for i, id := range []string{"a", "b", "c"} {
			require.NoError(t, s.Append(ctx, record(id, base.Add(time.Duration(i)*time.Second))))
		}
		got, err := s.List(ctx, 2)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "c", got[0].ID)
	})
}

func TestJSONStore(t *testing.T) {
	storeContract(t, func(t *testing.T) Store {
		s, err := NewJSONStore(filepath.Join(t.TempDir(), "history.json"))
		require.NoError(t, err)
		return s
	})
}

func TestSQLiteStore(t *testing.T) {
	storeContract(t, func(t *testing.T) Store {
		s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "history.db"))
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestJSONStore_Persists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "history.json")

	s, err := NewJSONStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Append(ctx, record("a", time.Now())))

	reopened, err := NewJSONStore(path)
	require.NoError(t, err)
	got, err := reopened.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].ID)
}

func TestSQLiteStore_ReopenAndDuplicateID(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.db")

	s, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Append(ctx, record("a", time.Now())))
	require.NoError(t, s.Append(ctx, record("a", time.Now())))
	require.NoError(t, s.Close())

	reopened, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer reopened.Close()
	got, err := reopened.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	off, err := Open(KindOff, "")
	require.NoError(t, err)
	require.NoError(t, off.Append(context.Background(), record("x", time.Now())))
	got, err := off.List(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, got)

	js, err := Open(KindJSON, DefaultPath(dir, KindJSON))
	require.NoError(t, err)
	assert.IsType(t, &JSONStore{}, js)

	db, err := Open(KindSQLite, filepath.Join(dir, "archive.sqlite"))
	require.NoError(t, err)
	defer db.Close()
	assert.Equal(t, filepath.Join(dir, "archive.db"), db.(*SQLiteStore).path)

	_, err = Open("s3", "")
	assert.Error(t, err)
}

func TestFromEntry(t *testing.T) {
	log := history.NewLog()
	e := log.Append("explain ./main.go", render.SanitizedHTML("<p>hi</p>"), history.WithRaw("hi"), history.WithModel("gpt-5"))

	r := FromEntry("sess", e)
	assert.Equal(t, e.ID, r.ID)
	assert.Equal(t, "sess", r.SessionID)
	assert.Equal(t, "explain ./main.go", r.Label)
	assert.Equal(t, "hi", r.Output)
	assert.Equal(t, "gpt-5", r.Model)

	bare := log.Append("x", render.SanitizedHTML("<p>x</p>"))
	assert.Equal(t, "<p>x</p>", FromEntry("sess", bare).Output)
}

func TestSplitStatements(t *testing.T) {
	got := splitStatements("-- comment\nCREATE TABLE a (x INT);\n\n-- other\nCREATE INDEX i ON a(x);\n")
	assert.Equal(t, []string{"CREATE TABLE a (x INT)", "CREATE INDEX i ON a(x)"}, got)
}
