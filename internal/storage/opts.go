package storage

import (
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"
)

// Open opens the badger database backing interaction state. With inMemory
// set nothing touches disk and path is ignored.
func Open(path string, inMemory bool) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).
		WithNumVersionsToKeep(1).
		WithLogger(nil)

	if inMemory {
		opts = opts.WithDir("").WithValueDir("").WithInMemory(true)
	} else if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return db, nil
}
