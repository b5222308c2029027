// Package storage provides key-value database abstractions shared by the
// ledger, transaction log and staking log stores.
package storage

import "errors"

// ErrNotFound is returned by Get when a key does not exist.
var ErrNotFound = errors.New("key not found")

// Reader is the read half of a DB.
type Reader interface {
	Get(key []byte) ([]byte, error)
	Has(key []byte) (bool, error)
	// ForEach iterates over all keys with the given prefix in ascending
	// key order. The callback receives a copy of the key and value.
	// Return a non-nil error from fn to stop iteration early.
	ForEach(prefix []byte, fn func(key, value []byte) error) error
}

// Writer is the write half of a DB. Batches implement it too, so stores
// can stage mutations without knowing whether they commit immediately.
type Writer interface {
	Put(key, value []byte) error
	Delete(key []byte) error
}

// DB is the interface for key-value storage.
type DB interface {
	Reader
	Writer
	Close() error
}

// Batch collects writes and applies them atomically on Commit.
// A batch that is never committed has no effect.
type Batch interface {
	Writer
	Commit() error
	// Discard releases resources held by an uncommitted batch.
	Discard()
}

// Batcher is implemented by databases that support atomic batches.
type Batcher interface {
	NewBatch() Batch
}
