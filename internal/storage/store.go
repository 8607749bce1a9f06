// Package storage provides keyed record storage for doctool's persistent parse cache.
package storage

import (
	"context"
	"errors"
	"time"
)

// RecordStore persists opaque records under string keys.
// Implementations are safe for concurrent use.
type RecordStore interface {
	// Put stores rec, replacing any record with the same key.
	Put(ctx context.Context, rec *Record) error

	// Get retrieves the record for key and refreshes its access time.
	// Returns ErrNotFound if no record exists.
	Get(ctx context.Context, key string) (*Record, error)

	// Delete removes the record for key.
	// Returns ErrNotFound if no record exists.
	Delete(ctx context.Context, key string) error

	// List returns every stored key.
	List(ctx context.Context) ([]string, error)

	// Stat returns the record's metadata without loading its data.
	Stat(ctx context.Context, key string) (Metadata, error)

	// Close releases any resources held by the store.
	Close() error
}

// Record is one stored value.
type Record struct {
	Key  string
	Data []byte

	Metadata Metadata
}

// Metadata describes a stored record.
type Metadata struct {
	// CreatedAt is when the record was last written.
	CreatedAt time.Time `json:"created_at"`

	// LastAccessed is when the record was last read or written.
	LastAccessed time.Time `json:"last_accessed"`

	// Size is the length of the record data in bytes.
	Size int64 `json:"size"`

	// Custom allows caller-specific annotations.
	Custom map[string]string `json:"custom,omitempty"`
}

// ErrNotFound is returned when a record doesn't exist.
type ErrNotFound struct {
	Key string
}

func (e ErrNotFound) Error() string {
	return "record not found: " + e.Key
}

// IsNotFound returns true if err is or wraps ErrNotFound.
func IsNotFound(err error) bool {
	var nf ErrNotFound
	return errors.As(err, &nf)
}

func copyCustom(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
