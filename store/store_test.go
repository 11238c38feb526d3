package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentHasTag(t *testing.T) {
	doc := &Document{Tags: []string{"a", "b"}}
	assert.True(t, doc.HasTag("a"))
	assert.True(t, doc.HasTag("b"))
	assert.False(t, doc.HasTag("c"))

	empty := &Document{}
	assert.False(t, empty.HasTag("a"))
}

func TestNewStore(t *testing.T) {
	s, err := NewStore(Config{Type: StoreTypeMemory})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	// Empty type defaults to memory.
	s, err = NewStore(Config{})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	s, err = NewStore(Config{Type: StoreTypeFile, BaseDir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)

	_, err = NewStore(Config{Type: "cassandra"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported document store type")
}

func TestMustNewStore_PanicsOnError(t *testing.T) {
	assert.Panics(t, func() {
		MustNewStore(Config{Type: "cassandra"})
	})
}

// testDocumentStore exercises the DocumentStore contract against any
// backend.
func testDocumentStore(t *testing.T, s DocumentStore) {
	t.Helper()
	ctx := context.Background()

	t.Run("ping", func(t *testing.T) {
		require.NoError(t, s.Ping(ctx))
	})

	t.Run("store and query", func(t *testing.T) {
		id, err := s.StoreDocument(ctx, "notes", "n1", "first note", []string{"red", "blue"})
		require.NoError(t, err)
		assert.Equal(t, "n1", id)

		// Empty id gets a generated one.
		generated, err := s.StoreDocument(ctx, "notes", "", "second note", []string{"red"})
		require.NoError(t, err)
		assert.NotEmpty(t, generated)
		assert.NotEqual(t, "n1", generated)

		docs, err := s.QueryDocuments(ctx, "notes", Filter{})
		require.NoError(t, err)
		require.Len(t, docs, 2)
		assert.Equal(t, "first note", docs[0].Content, "creation order preserved")
		assert.Equal(t, "second note", docs[1].Content)
	})

	t.Run("filter by tags", func(t *testing.T) {
		docs, err := s.QueryDocuments(ctx, "notes", Filter{Tags: []string{"red", "blue"}})
		require.NoError(t, err)
		require.Len(t, docs, 1)
		assert.Equal(t, "n1", docs[0].ID)

		docs, err = s.QueryDocuments(ctx, "notes", Filter{Tags: []string{"green"}})
		require.NoError(t, err)
		assert.Empty(t, docs)
	})

	t.Run("filter by id", func(t *testing.T) {
		docs, err := s.QueryDocuments(ctx, "notes", Filter{ID: "n1"})
		require.NoError(t, err)
		require.Len(t, docs, 1)
		assert.Equal(t, "first note", docs[0].Content)
	})

	t.Run("limit", func(t *testing.T) {
		docs, err := s.QueryDocuments(ctx, "notes", Filter{Limit: 1})
		require.NoError(t, err)
		assert.Len(t, docs, 1)
	})

	t.Run("upsert same id", func(t *testing.T) {
		_, err := s.StoreDocument(ctx, "notes", "n1", "first note, revised", []string{"red"})
		require.NoError(t, err)

		docs, err := s.QueryDocuments(ctx, "notes", Filter{ID: "n1"})
		require.NoError(t, err)
		require.Len(t, docs, 1)
		assert.Equal(t, "first note, revised", docs[0].Content)
	})

	t.Run("collections are isolated", func(t *testing.T) {
		docs, err := s.QueryDocuments(ctx, "other", Filter{})
		require.NoError(t, err)
		assert.Empty(t, docs)
	})

	t.Run("empty collection rejected", func(t *testing.T) {
		_, err := s.StoreDocument(ctx, "", "x", "content", nil)
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("links", func(t *testing.T) {
		require.NoError(t, s.LinkEntities(ctx, "a1", "session-1", "participates_in", map[string]any{"role": "producer"}))
		assert.ErrorIs(t, s.LinkEntities(ctx, "", "session-1", "participates_in", nil), ErrInvalidInput)
		assert.ErrorIs(t, s.LinkEntities(ctx, "a1", "", "participates_in", nil), ErrInvalidInput)
		assert.ErrorIs(t, s.LinkEntities(ctx, "a1", "session-1", "", nil), ErrInvalidInput)
	})

	t.Run("cache stats", func(t *testing.T) {
		stats, err := s.CacheStats(ctx)
		require.NoError(t, err)
		require.NotNil(t, stats)
		assert.NotEmpty(t, stats.Backend)
		assert.GreaterOrEqual(t, stats.Keys, int64(2))
	})
}

func TestMatchesFilter(t *testing.T) {
	doc := &Document{
		ID:        "d1",
		Tags:      []string{"a", "b"},
		CreatedAt: time.Now(),
	}

	assert.True(t, matchesFilter(doc, Filter{}))
	assert.True(t, matchesFilter(doc, Filter{Tags: []string{"a"}}))
	assert.True(t, matchesFilter(doc, Filter{Tags: []string{"a", "b"}}))
	assert.False(t, matchesFilter(doc, Filter{Tags: []string{"a", "c"}}))
	assert.True(t, matchesFilter(doc, Filter{ID: "d1"}))
	assert.False(t, matchesFilter(doc, Filter{ID: "other"}))
}

// seedDocuments fills a store with n documents for ordering tests.
func seedDocuments(t *testing.T, s DocumentStore, collection string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := s.StoreDocument(context.Background(), collection, fmt.Sprintf("doc-%03d", i),
			fmt.Sprintf("content %d", i), []string{"seeded"})
		require.NoError(t, err)
	}
}
