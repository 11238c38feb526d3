package store

import (
	"context"
	"errors"
	"time"
)

// Common errors
var (
	ErrNotFound     = errors.New("not found")
	ErrStoreClosed  = errors.New("store is closed")
	ErrInvalidInput = errors.New("invalid input")
)

// StoreType represents the type of storage backend
type StoreType string

const (
	StoreTypeMemory StoreType = "memory"
	StoreTypeFile   StoreType = "file"
	StoreTypeRedis  StoreType = "redis"
	StoreTypeSQLite StoreType = "sqlite"
	StoreTypeMongo  StoreType = "mongo"
)

// Document is a stored unit of content: a transition log entry, a checkpoint,
// a message, or an agent registration. Content is the serialized payload;
// Tags drive retrieval.
type Document struct {
	ID         string    `json:"id"`
	Collection string    `json:"collection"`
	Content    string    `json:"content"`
	Tags       []string  `json:"tags"`
	CreatedAt  time.Time `json:"created_at"`
}

// HasTag reports whether the document carries the given tag.
func (d *Document) HasTag(tag string) bool {
	for _, t := range d.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Filter narrows a QueryDocuments call. All set fields must match.
// A zero Filter matches every document in the collection.
type Filter struct {
	// Tags that every returned document must carry.
	Tags []string

	// ID matches exactly one document when set.
	ID string

	// Limit caps the number of returned documents; 0 means no cap.
	Limit int
}

// EntityLink is a typed relation between two named entities, used for the
// coordination graph (agent roles, handoff edges, workflow lineage).
type EntityLink struct {
	Source     string         `json:"source"`
	Target     string         `json:"target"`
	Relation   string         `json:"relation"`
	Properties map[string]any `json:"properties,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// CacheStats describes the backend's cache/keyspace state, used by the
// persistence manager to enrich checkpoint metrics. Backends without a real
// cache report document counts.
type CacheStats struct {
	Backend   string         `json:"backend"`
	Keys      int64          `json:"keys"`
	HitRate   float64        `json:"hit_rate,omitempty"`
	UsedBytes int64          `json:"used_bytes,omitempty"`
	Extra     map[string]any `json:"extra,omitempty"`
}

// DocumentStore is the only surface the coordination engine requires from
// the storage subsystem. Calls are blocking I/O; retry policy, if any,
// belongs to the implementation.
type DocumentStore interface {
	// StoreDocument persists content under the collection with the given id
	// and tags. An empty id gets a generated one. Returns the stored id.
	StoreDocument(ctx context.Context, collection, id, content string, tags []string) (string, error)

	// QueryDocuments returns the collection's documents matching the filter,
	// ordered by creation time ascending as far as the backend allows.
	QueryDocuments(ctx context.Context, collection string, filter Filter) ([]*Document, error)

	// LinkEntities records a typed relation between two entities.
	LinkEntities(ctx context.Context, source, target, relation string, properties map[string]any) error

	// CacheStats reports backend keyspace statistics.
	CacheStats(ctx context.Context) (*CacheStats, error)

	// Ping checks if the store is healthy
	Ping(ctx context.Context) error

	// Close closes the store
	Close() error
}

// Config is the base configuration for all store implementations
type Config struct {
	// Type is the storage backend type
	Type StoreType `json:"type" yaml:"type"`

	// BaseDir is the base directory for file-based storage
	BaseDir string `json:"base_dir" yaml:"base_dir"`

	// Redis configuration (only used when Type is "redis")
	Redis RedisConfig `json:"redis" yaml:"redis"`

	// SQLite configuration (only used when Type is "sqlite")
	SQLite SQLiteConfig `json:"sqlite" yaml:"sqlite"`

	// Mongo configuration (only used when Type is "mongo")
	Mongo MongoConfig `json:"mongo" yaml:"mongo"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Host      string `json:"host" yaml:"host"`
	Port      int    `json:"port" yaml:"port"`
	Password  string `json:"password" yaml:"password"`
	DB        int    `json:"db" yaml:"db"`
	PoolSize  int    `json:"pool_size" yaml:"pool_size"`
	KeyPrefix string `json:"key_prefix" yaml:"key_prefix"`
}

// SQLiteConfig holds SQLite settings.
type SQLiteConfig struct {
	// Path is the database file path; ":memory:" opens an in-memory database.
	Path string `json:"path" yaml:"path"`
}

// MongoConfig holds MongoDB connection settings.
type MongoConfig struct {
	URI      string `json:"uri" yaml:"uri"`
	Database string `json:"database" yaml:"database"`
}

// DefaultConfig returns a memory-backed configuration.
func DefaultConfig() Config {
	return Config{
		Type: StoreTypeMemory,
		Redis: RedisConfig{
			Host:     "localhost",
			Port:     6379,
			PoolSize: 10,
		},
		SQLite: SQLiteConfig{
			Path: "coordflow.db",
		},
		Mongo: MongoConfig{
			URI:      "mongodb://localhost:27017",
			Database: "coordflow",
		},
	}
}

// matchesFilter applies Filter semantics shared by the memory and file
// backends; redis, sqlite and mongo push what they can into the backend.
func matchesFilter(doc *Document, filter Filter) bool {
	if filter.ID != "" && doc.ID != filter.ID {
		return false
	}
	for _, tag := range filter.Tags {
		if !doc.HasTag(tag) {
			return false
		}
	}
	return true
}
