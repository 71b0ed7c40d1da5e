// Package blobstore holds the raw byte storage behind the hot and cold tiers.
// A store knows nothing about tiers or the registry: it reads, writes and
// deletes whole files by physical name.
package blobstore

import (
	"context"
	"time"
)

// Store is read-all / write-all access to named blobs.
//
// Read of a missing blob returns an error matching fs.ErrNotExist. Delete of
// a missing blob is not an error. Every other failure wraps common.ErrBlobIO.
type Store interface {
	Read(ctx context.Context, name string) ([]byte, error)
	Write(ctx context.Context, name string, data []byte) error
	Delete(ctx context.Context, name string) error
	Exists(ctx context.Context, name string) (bool, error)
}

// AccessTracker exposes per-blob access times. Only the hot tier needs it:
// idleness is measured there.
type AccessTracker interface {
	LastAccess(ctx context.Context, name string) (time.Time, error)
	Touch(ctx context.Context, name string, at time.Time) error
}

// HotStore is a Store that tracks access times.
type HotStore interface {
	Store
	AccessTracker
}
