// Package filex contains filesystem helpers shared by the blob store and
// the registry snapshot.
package filex

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// EnsureDir creates dir (and parents) if needed and returns its absolute path.
// Relative paths are resolved against the working directory.
func EnsureDir(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("abs %s: %w", dir, err)
	}

	if err := os.MkdirAll(abs, 0o770); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", abs, err)
	}

	return abs, nil
}

// WriteFileAtomic replaces path with data. The bytes go to a temp file in the
// same directory which is synced and renamed over path, so readers observe
// either the old or the new content, never a truncated file.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) (err error) {
	dir := filepath.Dir(path)
	tmp := filepath.Join(dir, "."+filepath.Base(path)+"."+uuid.NewString()+".tmp")

	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp)
		}
	}()

	if _, err = f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("write temp: %w", err)
	}
	if err = f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("sync temp: %w", err)
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}
	if err = os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}
