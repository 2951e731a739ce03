package sdk

import (
	"errors"

	"github.com/cognivault-dev/cognivault-ledger/internal/ledger"
)

// Sentinels shared with the embedded engine so errors.Is works across
// both transports.
var (
	// ErrKeyNotFound is returned when a requested key does not exist.
	ErrKeyNotFound = ledger.ErrKeyNotFound
	// ErrCASMismatch is returned when a guarded write loses the race.
	ErrCASMismatch = ledger.ErrCASMismatch
	// ErrInvalidTransition is returned when a status change would move
	// a record backwards.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// --- Functional interfaces (interface segregation) ---

// DataReader defines the read half of the storage surface.
type DataReader interface {
	GetData(key string) ([]byte, error)
}

// DataWriter defines the unconditional write half.
type DataWriter interface {
	SetData(key string, value []byte) error
}

// DataSwapper defines the guarded write used by the hardened index path.
type DataSwapper interface {
	CompareAndSwapData(key string, old, new []byte) error
}

// Availability probes whether the storage surface is reachable.
type Availability interface {
	IsAvailable() bool
}

// KeyLister enumerates the stored keys.
type KeyLister interface {
	Keys() ([]string, error)
}

// --- Composite interface ---

// ChainStore is the full storage contract. Both the remote Client and the
// embedded ledger engine satisfy it.
type ChainStore interface {
	DataReader
	DataWriter
	DataSwapper
	Availability
	KeyLister
}
