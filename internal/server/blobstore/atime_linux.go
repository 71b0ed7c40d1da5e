//go:build linux

package blobstore

import (
	"os"
	"time"

	"golang.org/x/sys/unix"
)

func accessTime(path string) (time.Time, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return time.Time{}, &os.PathError{Op: "stat", Path: path, Err: err}
	}
	return time.Unix(st.Atim.Unix()), nil
}

// touch moves atime only; a zero mtime leaves it unchanged.
func touch(path string, at time.Time) error {
	return os.Chtimes(path, at, time.Time{})
}
