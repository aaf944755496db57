package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"

	"github.com/avissapr/nodues/internal/database"
)

// PGStore persists each collection as a single JSONB row in the collections
// table. One row per collection keeps the flat-document semantics the rest of
// the core is written against while gaining real durability.
type PGStore struct {
	db database.DBInterface

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

var _ RecordStore = (*PGStore)(nil)

// NewPGStore creates a record store backed by the given database.
func NewPGStore(db database.DBInterface) *PGStore {
	return &PGStore{
		db:    db,
		locks: make(map[string]*sync.Mutex),
	}
}

// Load reads a collection document into out. A collection that has never been
// saved leaves out untouched, so callers start from an empty default.
func (s *PGStore) Load(ctx context.Context, collection string, out any) error {
	var data []byte
	err := s.db.QueryRow(ctx,
		`SELECT data FROM collections WHERE id = $1`, collection,
	).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return fmt.Errorf("load collection %q: %w", collection, err)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode collection %q: %w", collection, err)
	}
	return nil
}

// Save replaces the collection document. This is the commit point: a mutation
// that fails here did not persist, and the caller must report it as such.
func (s *PGStore) Save(ctx context.Context, collection string, doc any) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode collection %q: %w", collection, err)
	}

	_, err = s.db.Exec(ctx, `
        INSERT INTO collections (id, data, updated_at)
        VALUES ($1, $2, NOW())
        ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()
    `, collection, data)
	if err != nil {
		return fmt.Errorf("save collection %q: %w", collection, err)
	}
	return nil
}

// WithLock runs fn while holding this process's mutex for the collection,
// serializing concurrent read-modify-write cycles on the same document.
func (s *PGStore) WithLock(collection string, fn func() error) error {
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
