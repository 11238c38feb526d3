package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// documentRecord is the GORM model backing SQLiteStore documents.
type documentRecord struct {
	ID         string `gorm:"primaryKey"`
	Collection string `gorm:"index"`
	Content    string
	Tags       string // JSON-encoded []string
	CreatedAt  time.Time
}

func (documentRecord) TableName() string { return "documents" }

// linkRecord is the GORM model backing SQLiteStore entity links.
type linkRecord struct {
	ID         uint   `gorm:"primaryKey;autoIncrement"`
	Source     string `gorm:"index"`
	Target     string `gorm:"index"`
	Relation   string
	Properties string // JSON-encoded map
	CreatedAt  time.Time
}

func (linkRecord) TableName() string { return "entity_links" }

// SQLiteStore is a SQLite-backed implementation of DocumentStore.
// Suitable for single-node deployments that want queryable history without
// an external service. Uses the pure-Go sqlite driver.
type SQLiteStore struct {
	db *gorm.DB
}

// NewSQLiteStore opens (and migrates) the database at config.SQLite.Path.
func NewSQLiteStore(config Config) (*SQLiteStore, error) {
	path := config.SQLite.Path
	if path == "" {
		path = "coordflow.db"
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	if err := db.AutoMigrate(&documentRecord{}, &linkRecord{}); err != nil {
		return nil, fmt.Errorf("failed to auto migrate: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the store
func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks if the store is healthy
func (s *SQLiteStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// StoreDocument persists a document row.
func (s *SQLiteStore) StoreDocument(ctx context.Context, collection, id, content string, tags []string) (string, error) {
	if collection == "" {
		return "", ErrInvalidInput
	}

	if id == "" {
		id = uuid.New().String()
	}

	tagData, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("failed to marshal tags: %w", err)
	}

	record := documentRecord{
		ID:         id,
		Collection: collection,
		Content:    content,
		Tags:       string(tagData),
		CreatedAt:  time.Now(),
	}
	if err := s.db.WithContext(ctx).Save(&record).Error; err != nil {
		return "", err
	}
	return id, nil
}

// QueryDocuments selects the collection ordered by creation time and
// filters tags after decoding.
func (s *SQLiteStore) QueryDocuments(ctx context.Context, collection string, filter Filter) ([]*Document, error) {
	query := s.db.WithContext(ctx).
		Where("collection = ?", collection).
		Order("created_at asc")
	if filter.ID != "" {
		query = query.Where("id = ?", filter.ID)
	}

	var records []documentRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, err
	}

	var out []*Document
	for _, record := range records {
		var tags []string
		if record.Tags != "" {
			if err := json.Unmarshal([]byte(record.Tags), &tags); err != nil {
				continue
			}
		}
		doc := &Document{
			ID:         record.ID,
			Collection: record.Collection,
			Content:    record.Content,
			Tags:       tags,
			CreatedAt:  record.CreatedAt,
		}
		if !matchesFilter(doc, filter) {
			continue
		}
		out = append(out, doc)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}

// LinkEntities inserts a relation row.
func (s *SQLiteStore) LinkEntities(ctx context.Context, source, target, relation string, properties map[string]any) error {
	if source == "" || target == "" || relation == "" {
		return ErrInvalidInput
	}

	propData, err := json.Marshal(properties)
	if err != nil {
		return fmt.Errorf("failed to marshal link properties: %w", err)
	}
	return s.db.WithContext(ctx).Create(&linkRecord{
		Source:     source,
		Target:     target,
		Relation:   relation,
		Properties: string(propData),
		CreatedAt:  time.Now(),
	}).Error
}

// CacheStats reports table row counts.
func (s *SQLiteStore) CacheStats(ctx context.Context) (*CacheStats, error) {
	var docs, links int64
	if err := s.db.WithContext(ctx).Model(&documentRecord{}).Count(&docs).Error; err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(&linkRecord{}).Count(&links).Error; err != nil {
		return nil, err
	}
	return &CacheStats{
		Backend: string(StoreTypeSQLite),
		Keys:    docs,
		Extra: map[string]any{
			"links": links,
		},
	}, nil
}
