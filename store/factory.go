package store

import "fmt"

// NewStore creates a new DocumentStore based on the configuration
func NewStore(config Config) (DocumentStore, error) {
	switch config.Type {
	case StoreTypeMemory, "":
		return NewMemoryStore(), nil
	case StoreTypeFile:
		return NewFileStore(config.BaseDir)
	case StoreTypeRedis:
		return NewRedisStore(config)
	case StoreTypeSQLite:
		return NewSQLiteStore(config)
	case StoreTypeMongo:
		return NewMongoStore(config)
	default:
		return nil, fmt.Errorf("unsupported document store type: %s", config.Type)
	}
}

// MustNewStore creates a new DocumentStore or panics on error.
//
// WARNING: only use during application initialization (e.g. in main()).
// For runtime store creation, use NewStore instead.
func MustNewStore(config Config) DocumentStore {
	s, err := NewStore(config)
	if err != nil {
		panic(fmt.Sprintf("failed to create document store: %v", err))
	}
	return s
}
