package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// FileStore is a file-based implementation of DocumentStore.
// Suitable for single-node deployments. One JSON file per document under
// <base>/documents/<collection>/, links appended to <base>/links.json.
type FileStore struct {
	baseDir   string
	documents map[string]map[string]*Document // in-memory cache
	links     []*EntityLink
	mu        sync.RWMutex
	closed    bool
}

// NewFileStore creates a new file-based document store rooted at baseDir.
func NewFileStore(baseDir string) (*FileStore, error) {
	docDir := filepath.Join(baseDir, "documents")
	if err := os.MkdirAll(docDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create document store directory: %w", err)
	}

	store := &FileStore{
		baseDir:   baseDir,
		documents: make(map[string]map[string]*Document),
	}

	if err := store.loadAll(); err != nil {
		return nil, err
	}
	return store, nil
}

// loadAll reads all persisted documents and links back into the cache.
func (s *FileStore) loadAll() error {
	docDir := filepath.Join(s.baseDir, "documents")
	collections, err := os.ReadDir(docDir)
	if err != nil {
		return fmt.Errorf("failed to read document store directory: %w", err)
	}

	for _, coll := range collections {
		if !coll.IsDir() {
			continue
		}
		entries, err := os.ReadDir(filepath.Join(docDir, coll.Name()))
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if !strings.HasSuffix(entry.Name(), ".json") {
				continue
			}
			data, err := os.ReadFile(filepath.Join(docDir, coll.Name(), entry.Name()))
			if err != nil {
				continue
			}
			var doc Document
			if err := json.Unmarshal(data, &doc); err != nil {
				// Skip corrupted files, keep loading the rest
				continue
			}
			if s.documents[doc.Collection] == nil {
				s.documents[doc.Collection] = make(map[string]*Document)
			}
			s.documents[doc.Collection][doc.ID] = &doc
		}
	}

	linkPath := filepath.Join(s.baseDir, "links.json")
	if data, err := os.ReadFile(linkPath); err == nil {
		var links []*EntityLink
		if err := json.Unmarshal(data, &links); err == nil {
			s.links = links
		}
	}
	return nil
}

// Close closes the store
func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Ping checks if the store is healthy
func (s *FileStore) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}
	_, err := os.Stat(s.baseDir)
	return err
}

func (s *FileStore) documentPath(collection, id string) string {
	return filepath.Join(s.baseDir, "documents", collection, id+".json")
}

// writeAtomic writes data to path via a temp file then rename.
func writeAtomic(path string, data []byte) error {
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return err
	}
	return os.Rename(tempPath, path)
}

// StoreDocument persists a document to disk and the cache.
func (s *FileStore) StoreDocument(ctx context.Context, collection, id, content string, tags []string) (string, error) {
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

	doc := &Document{
		ID:         id,
		Collection: collection,
		Content:    content,
		Tags:       append([]string(nil), tags...),
		CreatedAt:  time.Now(),
	}

	if err := os.MkdirAll(filepath.Join(s.baseDir, "documents", collection), 0755); err != nil {
		return "", fmt.Errorf("failed to create collection directory: %w", err)
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal document: %w", err)
	}
	if err := writeAtomic(s.documentPath(collection, id), data); err != nil {
		return "", fmt.Errorf("failed to write document: %w", err)
	}

	if s.documents[collection] == nil {
		s.documents[collection] = make(map[string]*Document)
	}
	s.documents[collection][id] = doc
	return id, nil
}

// QueryDocuments returns matching documents from the cache.
func (s *FileStore) QueryDocuments(ctx context.Context, collection string, filter Filter) ([]*Document, error) {
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

// LinkEntities appends a relation and rewrites the links file.
func (s *FileStore) LinkEntities(ctx context.Context, source, target, relation string, properties map[string]any) error {
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

	data, err := json.MarshalIndent(s.links, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal links: %w", err)
	}
	return writeAtomic(filepath.Join(s.baseDir, "links.json"), data)
}

// CacheStats reports document counts from the cache.
func (s *FileStore) CacheStats(ctx context.Context) (*CacheStats, error) {
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
		Backend: string(StoreTypeFile),
		Keys:    keys,
		Extra: map[string]any{
			"collections": len(s.documents),
			"links":       len(s.links),
		},
	}, nil
}
