package deduplication

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/google/renameio/v2"
)

// FileBackend keeps the state as an indented JSON file on local disk.
type FileBackend struct {
	path string
}

// NewFileBackend returns a backend rooted at path.
func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path}
}

func (f *FileBackend) Name() string { return "file:" + f.path }

func (f *FileBackend) Read(_ context.Context) (*StateRecord, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var rec StateRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode %s: %w", f.path, err)
	}
	return &rec, nil
}

// Write stages the JSON in a temporary file beside the target, fsyncs it and
// renames it over the old file.
func (f *FileBackend) Write(_ context.Context, rec *StateRecord) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return renameio.WriteFile(f.path, data, 0o644)
}
