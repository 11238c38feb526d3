package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory implementation of DocumentStore.
// Suitable for development and testing. Data is lost on restart.
type MemoryStore struct {
	documents map[string]map[string]*Document // collection -> id -> doc
	links     []*EntityLink
	mu        sync.RWMutex
	closed    bool
}

// NewMemoryStore creates a new in-memory document store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		documents: make(map[string]map[string]*Document),
	}
}

// Close closes the store
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Ping checks if the store is healthy
func (s *MemoryStore) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}
	return nil
}

// StoreDocument persists a document in the collection.
func (s *MemoryStore) StoreDocument(ctx context.Context, collection, id, content string, tags []string) (string, error) {
	if collection == "" {
		return "", ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return "", ErrStoreClosed
	}

	if id == "" {
		id = uuid.New().String()
	}

	if s.documents[collection] == nil {
		s.documents[collection] = make(map[string]*Document)
	}
	s.documents[collection][id] = &Document{
		ID:         id,
		Collection: collection,
		Content:    content,
		Tags:       append([]string(nil), tags...),
		CreatedAt:  time.Now(),
	}
	return id, nil
}

// QueryDocuments returns matching documents ordered by creation time.
func (s *MemoryStore) QueryDocuments(ctx context.Context, collection string, filter Filter) ([]*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	var out []*Document
	for _, doc := range s.documents[collection] {
		if matchesFilter(doc, filter) {
			out = append(out, doc)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// LinkEntities records a typed relation.
func (s *MemoryStore) LinkEntities(ctx context.Context, source, target, relation string, properties map[string]any) error {
	if source == "" || target == "" || relation == "" {
		return ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	s.links = append(s.links, &EntityLink{
		Source:     source,
		Target:     target,
		Relation:   relation,
		Properties: properties,
		CreatedAt:  time.Now(),
	})
	return nil
}

// Links returns all recorded entity links. Test and introspection helper.
func (s *MemoryStore) Links() []*EntityLink {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*EntityLink(nil), s.links...)
}

// CacheStats reports document counts; the memory backend has no real cache.
func (s *MemoryStore) CacheStats(ctx context.Context) (*CacheStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	var keys int64
	for _, coll := range s.documents {
		keys += int64(len(coll))
	}
	return &CacheStats{
		Backend: string(StoreTypeMemory),
		Keys:    keys,
		Extra: map[string]any{
			"collections": len(s.documents),
			"links":       len(s.links),
		},
	}, nil
}
