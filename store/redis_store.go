package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisStore is a Redis-based implementation of DocumentStore.
// Suitable for distributed deployments. Documents are stored as JSON values
// with a sorted-set index per collection (scored by creation time) so
// queries come back in insertion order.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisStore creates a new Redis-based document store
func NewRedisStore(config Config) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", config.Redis.Host, config.Redis.Port),
		Password: config.Redis.Password,
		DB:       config.Redis.DB,
		PoolSize: config.Redis.PoolSize,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	keyPrefix := config.Redis.KeyPrefix
	if keyPrefix == "" {
		keyPrefix = "coordflow:"
	}

	return &RedisStore{
		client:    client,
		keyPrefix: keyPrefix,
	}, nil
}

// Close closes the store
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping checks if the store is healthy
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// documentKey returns the Redis key for a document
func (s *RedisStore) documentKey(collection, id string) string {
	return s.keyPrefix + "doc:" + collection + ":" + id
}

// collectionKey returns the Redis key for a collection's index
func (s *RedisStore) collectionKey(collection string) string {
	return s.keyPrefix + "coll:" + collection
}

// linksKey returns the Redis key for the entity link list
func (s *RedisStore) linksKey() string {
	return s.keyPrefix + "links"
}

// StoreDocument persists a document and indexes it in its collection.
func (s *RedisStore) StoreDocument(ctx context.Context, collection, id, content string, tags []string) (string, error) {
	if collection == "" {
		return "", ErrInvalidInput
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
	data, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("failed to marshal document: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.documentKey(collection, id), data, 0)
	pipe.ZAdd(ctx, s.collectionKey(collection), redis.Z{
		Score:  float64(doc.CreatedAt.UnixNano()),
		Member: id,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return "", err
	}
	return id, nil
}

// QueryDocuments walks the collection index in score order and filters
// tags client-side.
func (s *RedisStore) QueryDocuments(ctx context.Context, collection string, filter Filter) ([]*Document, error) {
	ids, err := s.client.ZRange(ctx, s.collectionKey(collection), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	var out []*Document
	for _, id := range ids {
		if filter.ID != "" && id != filter.ID {
			continue
		}
		data, err := s.client.Get(ctx, s.documentKey(collection, id)).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, err
		}
		var doc Document
		if err := json.Unmarshal([]byte(data), &doc); err != nil {
			// Skip corrupted values, keep scanning
			continue
		}
		if !matchesFilter(&doc, filter) {
			continue
		}
		out = append(out, &doc)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}

// LinkEntities appends the relation to the link list.
func (s *RedisStore) LinkEntities(ctx context.Context, source, target, relation string, properties map[string]any) error {
	if source == "" || target == "" || relation == "" {
		return ErrInvalidInput
	}

	link := &EntityLink{
		Source:     source,
		Target:     target,
		Relation:   relation,
		Properties: properties,
		CreatedAt:  time.Now(),
	}
	data, err := json.Marshal(link)
	if err != nil {
		return fmt.Errorf("failed to marshal link: %w", err)
	}
	return s.client.RPush(ctx, s.linksKey(), data).Err()
}

// CacheStats reports keyspace statistics from DBSIZE and INFO.
func (s *RedisStore) CacheStats(ctx context.Context) (*CacheStats, error) {
	keys, err := s.client.DBSize(ctx).Result()
	if err != nil {
		return nil, err
	}

	stats := &CacheStats{
		Backend: string(StoreTypeRedis),
		Keys:    keys,
		Extra:   map[string]any{},
	}

	// INFO parsing is best-effort; DBSIZE alone is enough for checkpointing.
	if info, err := s.client.Info(ctx, "memory", "stats").Result(); err == nil {
		fields := parseRedisInfo(info)
		if v, ok := fields["used_memory"]; ok {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil {
				stats.UsedBytes = n
			}
		}
		hits, _ := strconv.ParseFloat(fields["keyspace_hits"], 64)
		misses, _ := strconv.ParseFloat(fields["keyspace_misses"], 64)
		if hits+misses > 0 {
			stats.HitRate = hits / (hits + misses)
		}
	}
	return stats, nil
}

// parseRedisInfo extracts key:value lines from an INFO response.
func parseRedisInfo(info string) map[string]string {
	fields := make(map[string]string)
	for _, line := range strings.Split(info, "\r\n") {
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, ":", 2)
		if len(parts) == 2 {
			fields[parts[0]] = parts[1]
		}
	}
	return fields
}
