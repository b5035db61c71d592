// Package store persists serialized lookup results under authority-scoped
// keys with a per-entry TTL. The service layer owns the serialization; the
// stores only see opaque bytes.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entry does not exist or expired.
var ErrNotFound = errors.New("not found")

// Cache is the storage contract shared by the memory and Redis backends.
//
// Get returns ErrNotFound for a missing or expired entry. Save overwrites any
// existing entry and starts a fresh TTL window.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
