package fsutil

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ReadFileScoped reads a file by opening a root at the file's directory.
// This scopes access to the intended directory and avoids path traversal.
func ReadFileScoped(path string) ([]byte, error) {
	cleaned := filepath.Clean(path)
	dir := filepath.Dir(cleaned)
	base := filepath.Base(cleaned)
	if base == "" || base == "." || base == string(filepath.Separator) {
		return nil, fmt.Errorf("invalid file path: %q", path)
	}

	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, err
	}
	defer root.Close()

	file, err := root.Open(base)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return io.ReadAll(file)
}

// WriteFileAtomic replaces path with data so readers see either the old or
// the new content. Parent directories are created as needed.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}
	return atomicWriteFile(path, data, perm)
}

// PermOr returns the permission bits of an existing file, or fallback when
// the file does not exist yet.
func PermOr(path string, fallback os.FileMode) os.FileMode {
	if info, err := os.Stat(path); err == nil {
		return info.Mode().Perm()
	}
	return fallback
}
