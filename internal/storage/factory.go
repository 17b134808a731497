package storage

import (
	"fmt"
	"io"
)

const (
	KindMemory = "memory"
	KindSQLite = "sqlite"
)

func NewStore(kind, sqlitePath string) (Store, error) {
	switch kind {
	case "", KindMemory:
		return NewMemoryStore(), nil
	case KindSQLite:
		return newSQLiteStore(sqlitePath)
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", kind)
	}
}

// CloseIfSupported releases backends that hold resources, such as the sqlite
// connection pool. Backends without a Close method are left alone.
func CloseIfSupported(store Store) error {
	if closer, ok := store.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			return fmt.Errorf("close %T: %w", store, err)
		}
	}
	return nil
}
