package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ghc-desk/ghc/internal/core"
	"github.com/ghc-desk/ghc/internal/fsutil"
)

// contextPrefix names the temp copies of context files.
const contextPrefix = ".copilot-context-"

// ContextDir returns the directory holding temp context copies.
func ContextDir(tempRoot string) string {
	if tempRoot == "" {
		tempRoot = os.TempDir()
	}
	return filepath.Join(tempRoot, "ghc")
}

// copyContext copies src into dir as .copilot-context-<millis>-<name> and
// returns the copy's path.
func copyContext(dir, src string, now time.Time) (string, error) {
	info, err := os.Stat(src)
	if err != nil {
		return "", core.ErrExecution(core.CodeContextCopyFailed,
			fmt.Sprintf("Failed to copy context file: %v", err)).WithCause(err)
	}
	if info.IsDir() {
		return "", core.ErrValidation(core.CodeContextIsDirectory,
			fmt.Sprintf("Context path is a directory: %s", src))
	}

	data, err := fsutil.ReadFileScoped(src)
	if err != nil {
		return "", core.ErrExecution(core.CodeContextCopyFailed,
			fmt.Sprintf("Failed to copy context file: %v", err)).WithCause(err)
	}

	name := filepath.Base(filepath.Clean(src))
	dst := filepath.Join(dir, fmt.Sprintf("%s%d-%s", contextPrefix, now.UnixMilli(), name))
	if err := fsutil.WriteFileAtomic(dst, data, 0o600); err != nil {
		return "", core.ErrExecution(core.CodeContextCopyFailed,
			fmt.Sprintf("Failed to copy context file: %v", err)).WithCause(err)
	}
	return dst, nil
}

// Cleanup removes context copies in dir last modified more than olderThan
// before now, for example strays left by a crash. Younger copies may belong
// to a run in another process and are kept. It returns the number of files
// removed.
func Cleanup(dir string, olderThan time.Duration, now time.Time) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	removed := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), contextPrefix) {
			continue
		}
		info, err := e.Info()
		if err != nil || now.Sub(info.ModTime()) <= olderThan {
			continue
		}
		if err := os.Remove(filepath.Join(dir, e.Name())); err == nil {
			removed++
		}
	}
	return removed, nil
}
