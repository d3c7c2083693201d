package storage

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("object not found")

type Storage interface {
	// Put stores data with the given key and returns the storage URL
	Put(ctx context.Context, key string, data []byte) (string, error)
	// Get retrieves data stored under the given key; a missing object yields ErrNotFound
	Get(ctx context.Context, key string) ([]byte, error)
	// Exists reports whether an object is stored under the given key
	Exists(ctx context.Context, key string) (bool, error)
}
