package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(Config{
		Type:   StoreTypeSQLite,
		SQLite: SQLiteConfig{Path: filepath.Join(t.TempDir(), "test.db")},
	})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStore_Contract(t *testing.T) {
	testDocumentStore(t, newTestSQLiteStore(t))
}

func TestSQLiteStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "persist.db")
	ctx := context.Background()

	s, err := NewSQLiteStore(Config{Type: StoreTypeSQLite, SQLite: SQLiteConfig{Path: path}})
	require.NoError(t, err)
	_, err = s.StoreDocument(ctx, "notes", "n1", "persisted", []string{"keep"})
	require.NoError(t, err)
	require.NoError(t, s.LinkEntities(ctx, "a1", "a2", "handoff_to", map[string]any{"n": 1}))
	require.NoError(t, s.Close())

	reopened, err := NewSQLiteStore(Config{Type: StoreTypeSQLite, SQLite: SQLiteConfig{Path: path}})
	require.NoError(t, err)
	defer reopened.Close()

	docs, err := reopened.QueryDocuments(ctx, "notes", Filter{ID: "n1"})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "persisted", docs[0].Content)
	assert.Equal(t, []string{"keep"}, docs[0].Tags)

	stats, err := reopened.CacheStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Keys)
	assert.EqualValues(t, 1, stats.Extra["links"])
}

func TestSQLiteStore_InMemory(t *testing.T) {
	s, err := NewSQLiteStore(Config{Type: StoreTypeSQLite, SQLite: SQLiteConfig{Path: ":memory:"}})
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, s.Ping(ctx))

	seedDocuments(t, s, "ordered", 5)
	docs, err := s.QueryDocuments(ctx, "ordered", Filter{})
	require.NoError(t, err)
	require.Len(t, docs, 5)
	assert.Equal(t, "doc-000", docs[0].ID)
}
