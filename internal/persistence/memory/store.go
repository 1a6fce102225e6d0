// Package memory provides a process local document store used for tests and
// single node deployments that do not need durability.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/example/event-roster/internal/persistence"
)

// Store keeps documents in nested maps guarded by a single RWMutex.
type Store struct {
	mu          sync.RWMutex
	collections map[string]map[string]persistence.Document
}

var _ persistence.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{collections: make(map[string]map[string]persistence.Document)}
}

// Get returns a copy of the stored document.
func (s *Store) Get(ctx context.Context, collection, key string) (persistence.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.collections[collection][key]
	if !ok {
		return nil, persistence.ErrNotFound
	}
	return doc.Clone(), nil
}

// Put replaces the document under key.
func (s *Store) Put(ctx context.Context, collection, key string, doc persistence.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := persistence.ValidateRef(collection, key); err != nil {
		return err
	}
	normalized, err := persistence.Normalize(doc)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.collectionLocked(collection)[key] = normalized
	return nil
}

// Merge overwrites the supplied top-level fields.
func (s *Store) Merge(ctx context.Context, collection, key string, fields persistence.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := persistence.ValidateRef(collection, key); err != nil {
		return err
	}
	normalized, err := persistence.Normalize(fields)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	docs := s.collectionLocked(collection)
	doc, ok := docs[key]
	if !ok {
		doc = persistence.Document{}
	}
	for field, value := range normalized {
		doc[field] = value
	}
	docs[key] = doc
	return nil
}

// Append adds value to the array held in field.
func (s *Store) Append(ctx context.Context, collection, key, field string, value any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	normalized, err := persistence.NormalizeValue(value)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.collections[collection][key]
	if !ok {
		return persistence.ErrNotFound
	}

	var items []any
	switch existing := doc[field].(type) {
	case nil:
	case []any:
		items = existing
	default:
		return fmt.Errorf("%w: field %q holds %T, not an array", persistence.ErrInvalidDocument, field, existing)
	}
	doc[field] = append(items, normalized)
	return nil
}

// Delete removes the document under key.
func (s *Store) Delete(ctx context.Context, collection, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	docs := s.collections[collection]
	if _, ok := docs[key]; !ok {
		return persistence.ErrNotFound
	}
	delete(docs, key)
	return nil
}

// List returns copies of every document in collection ordered by key.
func (s *Store) List(ctx context.Context, collection string) ([]persistence.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := s.collections[collection]
	snapshots := make([]persistence.Snapshot, 0, len(docs))
	for key, doc := range docs {
		snapshots = append(snapshots, persistence.Snapshot{Key: key, Data: doc.Clone()})
	}
	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].Key < snapshots[j].Key
	})
	return snapshots, nil
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}

func (s *Store) collectionLocked(collection string) map[string]persistence.Document {
	docs, ok := s.collections[collection]
	if !ok {
		docs = make(map[string]persistence.Document)
		s.collections[collection] = docs
	}
	return docs
}
