package badgerstore

import (
	"fmt"
	"os"

	"github.com/timshannon/badgerhold/v4"
)

// DB owns the embedded badger store shared by the document registry and
// the result store.
type DB struct {
	store *badgerhold.Store
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("create badger dir: %w", err)
	}
	options := badgerhold.DefaultOptions
	options.Dir = path
	options.ValueDir = path
	options.Logger = nil

	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}
	return &DB{store: store}, nil
}

func (db *DB) Close() error {
	if db == nil || db.store == nil {
		return nil
	}
	return db.store.Close()
}
