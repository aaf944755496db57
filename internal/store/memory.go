package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// MemoryStore is an in-memory record store used by tests and ephemeral
// environments. Documents are kept as marshaled JSON so Load/Save round-trips
// behave exactly like the durable implementation.
type MemoryStore struct {
	mu    sync.RWMutex
	docs  map[string][]byte
	locks map[string]*sync.Mutex

	// FailSave, when set, makes every Save return this error. Tests use it to
	// exercise the storage-error path.
	FailSave error
}

var _ RecordStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory record store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs:  make(map[string][]byte),
		locks: make(map[string]*sync.Mutex),
	}
}

// Load reads a collection document into out; missing collections leave out at
// its empty default.
func (s *MemoryStore) Load(_ context.Context, collection string, out any) error {
	s.mu.RLock()
	data, ok := s.docs[collection]
	s.mu.RUnlock()

	if !ok {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode collection %q: %w", collection, err)
	}
	return nil
}

// Save replaces the collection document.
func (s *MemoryStore) Save(_ context.Context, collection string, doc any) error {
	if s.FailSave != nil {
		return s.FailSave
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode collection %q: %w", collection, err)
	}

	s.mu.Lock()
	s.docs[collection] = data
	s.mu.Unlock()
	return nil
}

// WithLock serializes read-modify-write cycles per collection.
func (s *MemoryStore) WithLock(collection string, fn func() error) error {
	s.mu.Lock()
	lock, ok := s.locks[collection]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[collection] = lock
	}
	s.mu.Unlock()

	lock.Lock()
	defer lock.Unlock()
	return fn()
}
