// Package common defines sentinel errors shared by the storage layers,
// the lifecycle services and the HTTP transport. Callers should use
// errors.Is to match these values.
package common

import "errors"

var (
	// Registry-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorValidation    = errors.New("validation error")
	ErrRegistryPersist = errors.New("registry persist error")

	// Physical storage errors.
	ErrBlobIO      = errors.New("blob io error")
	ErrCompression = errors.New("compression error")
)
