package draftstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/Skufu/PulseNet/internal/intake"
)

// File keeps every draft in a single JSON object on disk, keyed like the
// other stores. Writes go through a temp file and a rename.
type File struct {
	mu   sync.Mutex
	path string
}

func NewFile(path string) (*File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create draft dir: %w", err)
	}
	return &File{path: path}, nil
}

func (f *File) Load(ctx context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	all, err := f.readAll()
	if err != nil {
		return nil, err
	}
	b, ok := all[key]
	if !ok {
		return nil, intake.ErrNotFound
	}
	return b, nil
}

func (f *File) Save(ctx context.Context, key string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	all, err := f.readAll()
	if err != nil {
		return err
	}
	all[key] = json.RawMessage(data)

	out, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return fmt.Errorf("encode drafts: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".drafts-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(out); err != nil {
		tmp.Close()
		return fmt.Errorf("write drafts: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close drafts: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("replace drafts: %w", err)
	}
	return nil
}

// Ping checks that the draft directory is still writable.
func (f *File) Ping(ctx context.Context) error {
	info, err := os.Stat(filepath.Dir(f.path))
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", filepath.Dir(f.path))
	}
	return nil
}

func (f *File) readAll() (map[string]json.RawMessage, error) {
	all := map[string]json.RawMessage{}
	b, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return all, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read drafts: %w", err)
	}
	if len(b) == 0 {
		return all, nil
	}
	if err := json.Unmarshal(b, &all); err != nil {
		return nil, fmt.Errorf("decode drafts %s: %w", f.path, err)
	}
	return all, nil
}
