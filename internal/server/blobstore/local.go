package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/gophbackup/internal/common"
	"github.com/dmitrijs2005/gophbackup/internal/filex"
)

const filePerm = 0o640

// LocalStore keeps blobs as plain files in one directory.
type LocalStore struct {
	dir string
}

// NewLocalStore creates dir if needed.
func NewLocalStore(dir string) (*LocalStore, error) {
	abs, err := filex.EnsureDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrBlobIO, err)
	}
	return &LocalStore{dir: abs}, nil
}

// Dir returns the absolute directory backing the store.
func (s *LocalStore) Dir() string {
	return s.dir
}

// Path returns the file path of the blob called name.
func (s *LocalStore) Path(name string) string {
	return filepath.Join(s.dir, name)
}

func (s *LocalStore) Read(ctx context.Context, name string) ([]byte, error) {
	b, err := os.ReadFile(s.Path(name))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", common.ErrBlobIO, name, err)
	}
	return b, nil
}

func (s *LocalStore) Write(ctx context.Context, name string, data []byte) error {
	if err := filex.WriteFileAtomic(s.Path(name), data, filePerm); err != nil {
		return fmt.Errorf("%w: write %s: %w", common.ErrBlobIO, name, err)
	}
	return nil
}

func (s *LocalStore) Delete(ctx context.Context, name string) error {
	err := os.Remove(s.Path(name))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: delete %s: %w", common.ErrBlobIO, name, err)
	}
	return nil
}

func (s *LocalStore) Exists(ctx context.Context, name string) (bool, error) {
	_, err := os.Stat(s.Path(name))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("%w: stat %s: %w", common.ErrBlobIO, name, err)
	}
}

// LastAccess returns the file's access time (modification time on
// platforms without a portable atime).
func (s *LocalStore) LastAccess(ctx context.Context, name string) (time.Time, error) {
	t, err := accessTime(s.Path(name))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: stat %s: %w", common.ErrBlobIO, name, err)
	}
	return t, nil
}

// Touch records an access at the given time. Reads alone are not enough on
// noatime/relatime mounts.
func (s *LocalStore) Touch(ctx context.Context, name string, at time.Time) error {
	if err := touch(s.Path(name), at); err != nil {
		return fmt.Errorf("%w: touch %s: %w", common.ErrBlobIO, name, err)
	}
	return nil
}
