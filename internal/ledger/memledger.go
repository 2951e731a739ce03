package ledger

import (
	"bytes"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// MemLedger is the thread-safe in-memory engine behind the storage surface.
// Writes are mirrored to the persister in the background; Wait drains the
// outstanding saves before shutdown.
type MemLedger struct {
	mu        sync.RWMutex
	data      map[string][]byte
	persister *SQLitePersistence
	wg        sync.WaitGroup
	log       *zap.Logger
}

// NewMemLedger initializes the engine with existing data (from LoadAll)
// and an optional persister.
func NewMemLedger(initial map[string][]byte, p *SQLitePersistence, log *zap.Logger) *MemLedger {
	if initial == nil {
		initial = make(map[string][]byte)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &MemLedger{
		data:      initial,
		persister: p,
		log:       log,
	}
}

// Wait blocks until all background persistence tasks complete.
func (m *MemLedger) Wait() {
	m.wg.Wait()
}

// IsAvailable always reports true for the in-process engine.
func (m *MemLedger) IsAvailable() bool {
	return true
}

func (m *MemLedger) GetData(key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	val, ok := m.data[key]
	if !ok {
		return nil, ErrKeyNotFound
	}
	// Copy so callers cannot mutate the stored slice.
	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

func (m *MemLedger) SetData(key string, value []byte) error {
	stored := make([]byte, len(value))
	copy(stored, value)

	m.mu.Lock()
	m.data[key] = stored
	m.mu.Unlock()

	m.persist(key, stored)
	return nil
}

// CompareAndSwapData performs the swap atomically under the write lock.
// A nil old means the key must not exist yet.
func (m *MemLedger) CompareAndSwapData(key string, old, new []byte) error {
	stored := make([]byte, len(new))
	copy(stored, new)

	m.mu.Lock()
	current, exists := m.data[key]
	if old == nil {
		if exists {
			m.mu.Unlock()
			return ErrCASMismatch
		}
	} else if !exists || !bytes.Equal(current, old) {
		m.mu.Unlock()
		return ErrCASMismatch
	}
	m.data[key] = stored
	m.mu.Unlock()

	m.persist(key, stored)
	return nil
}

func (m *MemLedger) Keys() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// persist mirrors a single key to disk in the background. The value slice
// must already be private to the engine.
func (m *MemLedger) persist(key string, value []byte) {
	if m.persister == nil {
		return
	}
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		if err := m.persister.SaveKey(key, value); err != nil {
			m.log.Warn("background persist failed",
				zap.String("key", key),
				zap.Error(err))
		}
	}()
}
