// Package storage provides the key/value byte stores the task document is
// persisted in.
package storage

import (
	"errors"
	"fmt"
)

const (
	BackendSQLite = "sqlite"
	BackendFile   = "file"
	BackendMemory = "memory"
)

// KV is a flat key/value byte store. A missing key is reported as ok=false,
// not as an error.
type KV interface {
	Get(key string) (value []byte, ok bool, err error)
	Set(key string, value []byte) error
	Close() error
}

var ErrEmptyKey = errors.New("storage key is empty")

// OpenBackend opens the named backend at path. The memory backend ignores path.
func OpenBackend(backend, path string) (KV, error) {
	switch backend {
	case "", BackendSQLite:
		return Open(path)
	case BackendFile:
		return OpenDir(path)
	case BackendMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}
