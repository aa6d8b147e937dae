package store

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
)

// JSONFile stores a collection as one indented JSON array. A missing file
// loads as an empty collection.
type JSONFile[T any] struct {
	path string
}

// NewJSONFile returns a store backed by the file at path.
func NewJSONFile[T any](path string) *JSONFile[T] {
	return &JSONFile[T]{path: path}
}

// Path returns the backing file path.
func (f *JSONFile[T]) Path() string { return f.path }

func (f *JSONFile[T]) Load(_ context.Context) ([]T, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "store: read %s", f.path)
	}
	if len(data) == 0 {
		return nil, nil
	}

	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, eris.Wrapf(err, "store: decode %s", f.path)
	}
	return items, nil
}

// Save replaces the file contents. The new content is written to a sibling
// temp file and renamed over the old one.
func (f *JSONFile[T]) Save(_ context.Context, items []T) error {
	if items == nil {
		items = []T{}
	}
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return eris.Wrap(err, "store: encode json")
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "store: create %s", dir)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".tmp-*")
	if err != nil {
		return eris.Wrap(err, "store: create temp file")
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck
		return eris.Wrapf(err, "store: write %s", tmp.Name())
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrapf(err, "store: close %s", tmp.Name())
	}
	return eris.Wrapf(os.Rename(tmp.Name(), f.path), "store: replace %s", f.path)
}

func (f *JSONFile[T]) Close() error { return nil }
