package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

// mongoDocument mirrors Document with BSON tags.
type mongoDocument struct {
	ID         string    `bson:"_id"`
	Collection string    `bson:"collection"`
	Content    string    `bson:"content"`
	Tags       []string  `bson:"tags"`
	CreatedAt  time.Time `bson:"created_at"`
}

// mongoLink mirrors EntityLink with BSON tags.
type mongoLink struct {
	Source     string         `bson:"source"`
	Target     string         `bson:"target"`
	Relation   string         `bson:"relation"`
	Properties map[string]any `bson:"properties,omitempty"`
	CreatedAt  time.Time      `bson:"created_at"`
}

// MongoStore is a MongoDB-based implementation of DocumentStore.
// Suitable for distributed deployments with rich document queries.
// All documents live in one "documents" collection discriminated by the
// logical collection field; links live in "entity_links".
type MongoStore struct {
	client    *mongo.Client
	documents *mongo.Collection
	links     *mongo.Collection
}

// NewMongoStore connects to MongoDB and prepares the collections.
func NewMongoStore(config Config) (*MongoStore, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(config.Mongo.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	dbName := config.Mongo.Database
	if dbName == "" {
		dbName = "coordflow"
	}
	db := client.Database(dbName)

	return &MongoStore{
		client:    client,
		documents: db.Collection("documents"),
		links:     db.Collection("entity_links"),
	}, nil
}

// Close closes the store
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// Ping checks if the store is healthy
func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// StoreDocument upserts a document.
func (s *MongoStore) StoreDocument(ctx context.Context, collection, id, content string, tags []string) (string, error) {
	if collection == "" {
		return "", ErrInvalidInput
	}

	if id == "" {
		id = uuid.New().String()
	}

	doc := mongoDocument{
		ID:         id,
		Collection: collection,
		Content:    content,
		Tags:       append([]string(nil), tags...),
		CreatedAt:  time.Now(),
	}
	_, err := s.documents.ReplaceOne(ctx,
		bson.M{"_id": id},
		doc,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return "", err
	}
	return id, nil
}

// QueryDocuments finds matching documents ordered by creation time.
func (s *MongoStore) QueryDocuments(ctx context.Context, collection string, filter Filter) ([]*Document, error) {
	query := bson.M{"collection": collection}
	if filter.ID != "" {
		query["_id"] = filter.ID
	}
	if len(filter.Tags) > 0 {
		query["tags"] = bson.M{"$all": filter.Tags}
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	if filter.Limit > 0 {
		opts = opts.SetLimit(int64(filter.Limit))
	}

	cursor, err := s.documents.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []*Document
	for cursor.Next(ctx) {
		var record mongoDocument
		if err := cursor.Decode(&record); err != nil {
			// Skip undecodable documents, keep scanning
			continue
		}
		out = append(out, &Document{
			ID:         record.ID,
			Collection: record.Collection,
			Content:    record.Content,
			Tags:       record.Tags,
			CreatedAt:  record.CreatedAt,
		})
	}
	return out, cursor.Err()
}

// LinkEntities inserts a relation document.
func (s *MongoStore) LinkEntities(ctx context.Context, source, target, relation string, properties map[string]any) error {
	if source == "" || target == "" || relation == "" {
		return ErrInvalidInput
	}

	_, err := s.links.InsertOne(ctx, mongoLink{
		Source:     source,
		Target:     target,
		Relation:   relation,
		Properties: properties,
		CreatedAt:  time.Now(),
	})
	return err
}

// CacheStats reports collection document counts.
func (s *MongoStore) CacheStats(ctx context.Context) (*CacheStats, error) {
	docs, err := s.documents.EstimatedDocumentCount(ctx)
	if err != nil {
		return nil, err
	}
	links, err := s.links.EstimatedDocumentCount(ctx)
	if err != nil {
		return nil, err
	}
	return &CacheStats{
		Backend: string(StoreTypeMongo),
		Keys:    docs,
		Extra: map[string]any{
			"links": links,
		},
	}, nil
}
