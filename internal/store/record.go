package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
)

type recordAction int

const (
	recordKeep recordAction = iota
	recordWrite
	recordDelete
)

// jsonRecord is one JSON document on disk. Writes go to a temp file in the
// same directory and are renamed over the target, so readers never observe
// a partial record. A missing or empty file reads as the zero value.
type jsonRecord[T any] struct {
	path string
	mu   sync.Mutex
}

func newJSONRecord[T any](path string) *jsonRecord[T] {
	return &jsonRecord[T]{path: path}
}

func (r *jsonRecord[T]) load() (T, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.read()
}

func (r *jsonRecord[T]) store(value T) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.write(value)
}

// update runs fn against the current record under the lock and then does
// what fn asked for: nothing, a rewrite, or removal of the file.
func (r *jsonRecord[T]) update(fn func(current *T) (recordAction, error)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, err := r.read()
	if err != nil {
		return err
	}
	action, err := fn(&current)
	if err != nil {
		return err
	}
	switch action {
	case recordWrite:
		return r.write(current)
	case recordDelete:
		if err := os.Remove(r.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return nil
}

func (r *jsonRecord[T]) read() (T, error) {
	var value T
	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return value, nil
		}
		return value, err
	}
	if len(data) == 0 {
		return value, nil
	}
	if err := json.Unmarshal(data, &value); err != nil {
		return value, err
	}
	return value, nil
}

func (r *jsonRecord[T]) write(value T) error {
	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	file, err := os.CreateTemp(dir, "."+filepath.Base(r.path)+".tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		_ = os.Remove(file.Name())
	}()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(value); err != nil {
		_ = file.Close()
		return err
	}
	if err := file.Sync(); err != nil {
		_ = file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return err
	}
	return os.Rename(file.Name(), r.path)
}
