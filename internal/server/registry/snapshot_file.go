package registry

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/gophbackup/internal/filex"
)

const lineSep = "\r\n"

// FileSnapshot stores the registry as "<logical> <storage>" lines separated
// by CRLF. The whole file is atomically replaced on every save.
type FileSnapshot struct {
	path string
}

// NewFileSnapshot makes sure the parent directory of path exists.
func NewFileSnapshot(path string) (*FileSnapshot, error) {
	if _, err := filex.EnsureDir(filepath.Dir(path)); err != nil {
		return nil, err
	}
	return &FileSnapshot{path: path}, nil
}

func (s *FileSnapshot) Path() string {
	return s.path
}

func (s *FileSnapshot) Load(ctx context.Context) ([]FileRecord, error) {
	body, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	return DecodeSnapshot(body)
}

func (s *FileSnapshot) Save(ctx context.Context, records []FileRecord) error {
	if err := filex.WriteFileAtomic(s.path, EncodeSnapshot(records), 0o640); err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	return nil
}

// EncodeSnapshot renders records in the snapshot line format.
func EncodeSnapshot(records []FileRecord) []byte {
	var b strings.Builder
	for _, rec := range records {
		b.WriteString(rec.LogicalName)
		b.WriteByte(' ')
		b.WriteString(rec.StorageName)
		b.WriteString(lineSep)
	}
	return []byte(b.String())
}

// DecodeSnapshot splits on line breaks and each line on its first space.
// Blank lines and lines without a space are ignored.
func DecodeSnapshot(body []byte) ([]FileRecord, error) {
	lines := strings.FieldsFunc(string(body), func(r rune) bool { return r == '\r' || r == '\n' })

	records := make([]FileRecord, 0, len(lines))
	for _, line := range lines {
		logical, storage, ok := strings.Cut(line, " ")
		if !ok {
			continue
		}
		rec, err := NewRecord(logical, storage)
		if err != nil {
			return nil, fmt.Errorf("snapshot line %q: %w", line, err)
		}
		records = append(records, rec)
	}
	return records, nil
}
