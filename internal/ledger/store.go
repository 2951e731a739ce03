// Package ledger implements the string-keyed blob storage the Cognivault
// contract surface exposes: GetData, SetData and an availability probe,
// plus an optional compare-and-swap for callers that want guarded writes.
package ledger

import "errors"

var (
	// ErrKeyNotFound is returned when a requested key does not exist.
	ErrKeyNotFound = errors.New("key not found")
	// ErrCASMismatch is returned when a compare-and-swap loses the race.
	ErrCASMismatch = errors.New("cas mismatch")
)

// ChainLedger is the storage contract both the in-process engine and the
// remote daemon expose to clients.
type ChainLedger interface {
	// IsAvailable reports whether the storage surface is reachable.
	IsAvailable() bool
	// GetData returns the raw bytes stored under key.
	GetData(key string) ([]byte, error)
	// SetData overwrites the bytes stored under key unconditionally.
	SetData(key string, value []byte) error
	// CompareAndSwapData replaces the value under key only if the current
	// value equals old. A nil old requires the key to be absent.
	CompareAndSwapData(key string, old, new []byte) error
	// Keys enumerates every stored key, sorted.
	Keys() ([]string, error)
}
