// Package github implements the GitHub side of authentication: the OAuth
// device flow and the token kept in the user's .env file.
package github

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/joho/godotenv"

	"github.com/ghc-desk/ghc/internal/core"
	"github.com/ghc-desk/ghc/internal/fsutil"
)

// DefaultTokenVar is the variable the token is stored under.
const DefaultTokenVar = "GITHUB_TOKEN"

const tailLength = 3

// DefaultEnvPath returns ~/.env, using HOME and then USERPROFILE.
func DefaultEnvPath() (string, error) {
	home := os.Getenv("HOME")
	if home == "" {
		home = os.Getenv("USERPROFILE")
	}
	if home == "" {
		return "", errors.New("missing HOME or USERPROFILE environment variable")
	}
	return filepath.Join(home, ".env"), nil
}

// TokenStore reads and writes the GitHub token. The process environment
// wins over the .env file.
type TokenStore struct {
	path string
	key  string

	mu sync.Mutex
}

// NewTokenStore creates a store for the given .env file. An empty path
// means DefaultEnvPath, resolved on every access.
func NewTokenStore(path, key string) *TokenStore {
	if key == "" {
		key = DefaultTokenVar
	}
	return &TokenStore{path: path, key: key}
}

// Key returns the token variable name.
func (s *TokenStore) Key() string { return s.key }

// Path returns the .env path in use.
func (s *TokenStore) Path() (string, error) {
	if s.path != "" {
		return s.path, nil
	}
	return DefaultEnvPath()
}

// Token returns the current token, or "" when there is none.
func (s *TokenStore) Token() string {
	if v := strings.TrimSpace(os.Getenv(s.key)); v != "" {
		return v
	}
	path, err := s.Path()
	if err != nil {
		return ""
	}
	data, err := os.ReadFile(path) // #nosec G304 -- user's own env file
	if err != nil {
		return ""
	}
	return strings.TrimSpace(s.lookup(data))
}

// lookup finds the token in .env content. godotenv handles quoting and
// export prefixes; a file it rejects is scanned line by line.
func (s *TokenStore) lookup(data []byte) string {
	if vals, err := godotenv.Parse(bytes.NewReader(data)); err == nil {
		return vals[s.key]
	}
	prefix := s.key + "="
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if v, ok := strings.CutPrefix(line, prefix); ok && strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// Status reports token presence and its last characters.
func (s *TokenStore) Status() core.TokenStatus {
	tok := s.Token()
	if tok == "" {
		return core.TokenStatus{}
	}
	return core.TokenStatus{HasToken: true, Tail: Tail(tok)}
}

// Tail returns the last three characters of tok.
func Tail(tok string) string {
	r := []rune(tok)
	if len(r) <= tailLength {
		return tok
	}
	return string(r[len(r)-tailLength:])
}

// Save replaces any stored token with tok and exports it to the process.
func (s *TokenStore) Save(tok string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path, err := s.Path()
	if err != nil {
		return storeError(err)
	}
	content, err := s.readLines(path)
	if err != nil {
		return storeError(err)
	}
	content = append(content, s.key+"="+tok)
	if err := fsutil.WriteFileAtomic(path, joinLines(content), fsutil.PermOr(path, 0o600)); err != nil {
		return storeError(err)
	}
	return os.Setenv(s.key, tok)
}

// Clear unsets the variable and drops its lines from the .env file. The
// file is left untouched when it holds no token.
func (s *TokenStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Unsetenv(s.key); err != nil {
		return storeError(err)
	}
	path, err := s.Path()
	if err != nil {
		return storeError(err)
	}
	original, err := os.ReadFile(path) // #nosec G304 -- user's own env file
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return storeError(err)
	}
	kept, err := s.readLines(path)
	if err != nil {
		return storeError(err)
	}
	updated := joinLines(kept)
	if bytes.Equal(updated, original) {
		return nil
	}
	if err := fsutil.WriteFileAtomic(path, updated, fsutil.PermOr(path, 0o600)); err != nil {
		return storeError(err)
	}
	return nil
}

// readLines returns the file's lines minus any assignment of the token key.
func (s *TokenStore) readLines(path string) ([]string, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- user's own env file
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	prefix := s.key + "="
	var out []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := sc.Text()
		trimmed := strings.TrimLeft(line, " \t")
		if strings.HasPrefix(trimmed, prefix) || strings.HasPrefix(trimmed, "export "+prefix) {
			continue
		}
		out = append(out, line)
	}
	return out, sc.Err()
}

func joinLines(lines []string) []byte {
	var b bytes.Buffer
	for _, l := range lines {
		b.WriteString(l)
		b.WriteByte('\n')
	}
	return b.Bytes()
}

func storeError(err error) error {
	return core.ErrExecution(core.CodeTokenStoreFailed,
		fmt.Sprintf("Failed to write ~/.env: %v", err)).WithCause(err)
}
