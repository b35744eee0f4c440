package storage

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
)

// Dir stores one file per key inside a directory. Writes go through a temp
// file and a rename so a reader never sees a half-written value.
type Dir struct {
	path string
}

func OpenDir(path string) (*Dir, error) {
	if path == "" {
		return nil, errors.New("storage dir is empty")
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &Dir{path: path}, nil
}

func (d *Dir) Get(key string) ([]byte, bool, error) {
	if key == "" {
		return nil, false, ErrEmptyKey
	}
	data, err := os.ReadFile(d.file(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (d *Dir) Set(key string, value []byte) error {
	if key == "" {
		return ErrEmptyKey
	}
	tmp, err := os.CreateTemp(d.path, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, d.file(key)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", key, err)
	}
	return nil
}

func (d *Dir) Close() error {
	return nil
}

func (d *Dir) file(key string) string {
	return filepath.Join(d.path, url.PathEscape(key)+".json")
}
