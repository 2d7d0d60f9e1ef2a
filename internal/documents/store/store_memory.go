package store

import (
	"context"
	"fmt"
	"reflect"
	"slices"
	"sync"

	"rolesync/internal/documents"
	"rolesync/pkg/platform/sentinel"
)

// InMemoryStore keeps documents in memory for tests and local runs. Updates
// that change a document's fields are reported to watchers after the write
// is visible.
type InMemoryStore struct {
	mu       sync.RWMutex
	docs     map[string]map[string]documents.Fields
	watchers []func(documents.Change)
}

// NewInMemory constructs an empty in-memory document store.
func NewInMemory() *InMemoryStore {
	return &InMemoryStore{docs: make(map[string]map[string]documents.Fields)}
}

// Watch registers fn to receive every document update. Creations are not
// updates and are not reported.
func (s *InMemoryStore) Watch(fn func(documents.Change)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watchers = append(s.watchers, fn)
}

// Get returns a copy of the document.
func (s *InMemoryStore) Get(_ context.Context, ref documents.Ref) (documents.Fields, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[ref.Collection][ref.ID]
	if !ok {
		return nil, fmt.Errorf("document %s: %w", ref, sentinel.ErrNotFound)
	}
	return doc.Clone(), nil
}

// Set writes fields to the document, creating it when absent. With merge
// semantics existing fields not named by the write are preserved.
func (s *InMemoryStore) Set(_ context.Context, ref documents.Ref, fields documents.Fields, opts documents.SetOptions) error {
	if err := ref.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	coll, ok := s.docs[ref.Collection]
	if !ok {
		coll = make(map[string]documents.Fields)
		s.docs[ref.Collection] = coll
	}
	before, existed := coll[ref.ID]

	var after documents.Fields
	if opts.Merge && existed {
		after = before.Merge(fields)
	} else {
		after = fields.Clone()
	}
	coll[ref.ID] = after
	watchers := slices.Clone(s.watchers)
	s.mu.Unlock()

	if !existed || reflect.DeepEqual(before, after) {
		return nil
	}
	change := documents.Change{Ref: ref, Before: before.Clone(), After: after.Clone()}
	for _, fn := range watchers {
		fn(change)
	}
	return nil
}

// List calls fn for every document in collection, ordered by id.
func (s *InMemoryStore) List(ctx context.Context, collection string, fn func(id string, fields documents.Fields) error) error {
	s.mu.RLock()
	coll := s.docs[collection]
	ids := make([]string, 0, len(coll))
	snapshot := make(map[string]documents.Fields, len(coll))
	for id, doc := range coll {
		ids = append(ids, id)
		snapshot[id] = doc.Clone()
	}
	s.mu.RUnlock()

	slices.Sort(ids)
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(id, snapshot[id]); err != nil {
			return err
		}
	}
	return nil
}
