//go:build !linux

package blobstore

import (
	"os"
	"time"
)

func accessTime(path string) (time.Time, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return time.Time{}, err
	}
	return fi.ModTime(), nil
}

func touch(path string, at time.Time) error {
	return os.Chtimes(path, at, at)
}
