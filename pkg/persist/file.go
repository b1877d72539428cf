package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/kokoro-labs/animus/pkg/core"
)

// FileStore keeps each document as a JSON file under a base directory.
type FileStore struct {
	dir string
}

// NewFileStore creates a file store rooted at dir, creating it if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, core.NewAgentError("NewFileStore",
			fmt.Errorf("create %s: %v: %w", dir, err, core.ErrPersistence))
	}
	return &FileStore{dir: dir}, nil
}

func (f *FileStore) path(name string) string {
	return filepath.Join(f.dir, name+".json")
}

// Load implements Store.
func (f *FileStore) Load(ctx context.Context, name string, v any) error {
	data, err := os.ReadFile(f.path(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return core.NewAgentError("Load",
				fmt.Errorf("document %q: %w", name, core.ErrNotFound))
		}
		return core.NewAgentError("Load",
			fmt.Errorf("document %q: %v: %w", name, err, core.ErrPersistence))
	}
	if err := json.Unmarshal(data, v); err != nil {
		return core.NewAgentError("Load",
			fmt.Errorf("document %q: %v: %w", name, err, core.ErrPersistence))
	}
	return nil
}

// Save implements Store. The document is written to a temp file and renamed
// into place; a failed attempt is retried once before giving up.
func (f *FileStore) Save(ctx context.Context, name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return core.NewAgentError("Save",
			fmt.Errorf("document %q: %v: %w", name, err, core.ErrPersistence))
	}

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if lastErr = f.writeAtomic(name, data); lastErr == nil {
			return nil
		}
	}
	return core.NewAgentError("Save",
		fmt.Errorf("document %q: %v: %w", name, lastErr, core.ErrPersistence))
}

func (f *FileStore) writeAtomic(name string, data []byte) error {
	tmp, err := os.CreateTemp(f.dir, name+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, f.path(name))
}

// Close implements Store.
func (f *FileStore) Close() error {
	return nil
}
