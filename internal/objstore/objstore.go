// Package objstore stores job artifacts (uploaded manuscripts, converted text
// and chapter lists) as objects addressed by slash-separated keys.
package objstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// ErrNotFound is returned when no object exists at a key.
var ErrNotFound = errors.New("object not found")

// ChaptersName is the object name of a job's reassembled chapter list.
const ChaptersName = "chapters.json"

// Object describes a stored object.
type Object struct {
	Key      string `json:"key"`
	Location string `json:"location"`
	Size     int64  `json:"size"`
}

// Store keeps objects as files under a root directory of an afero filesystem.
type Store struct {
	fs   afero.Fs
	root string
}

// New creates a store rooted at root on fs.
func New(fs afero.Fs, root string) *Store {
	return &Store{fs: fs, root: root}
}

// NewOS creates a store on the local filesystem, creating root if needed.
func NewOS(root string) (*Store, error) {
	fs := afero.NewOsFs()
	if err := fs.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create object root: %w", err)
	}
	return New(fs, root), nil
}

// NewMemory creates an in-memory store.
func NewMemory() *Store {
	return New(afero.NewMemMapFs(), "/objects")
}

// Key joins parts into an object key.
func Key(parts ...string) string {
	return path.Join(parts...)
}

// JobKey returns the key of name within a job's namespace.
func JobKey(userID, jobID, name string) string {
	return Key(userID, jobID, name)
}

// ChaptersKey returns the key of a job's chapter list.
func ChaptersKey(userID, jobID string) string {
	return JobKey(userID, jobID, ChaptersName)
}

// resolve maps a key to a filesystem path, rejecting keys that escape root.
func (s *Store) resolve(key string) (string, error) {
	clean := path.Clean("/" + key)
	if clean == "/" || strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return filepath.Join(s.root, filepath.FromSlash(clean)), nil
}

// Put writes data at key, replacing any existing object.
func (s *Store) Put(ctx context.Context, key string, data []byte) (Object, error) {
	if err := ctx.Err(); err != nil {
		return Object{}, err
	}
	p, err := s.resolve(key)
	if err != nil {
		return Object{}, err
	}
	if err := s.fs.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return Object{}, fmt.Errorf("failed to create object directory: %w", err)
	}

	// Write then rename so readers never see a partial object.
	tmp := p + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, data, 0o644); err != nil {
		return Object{}, fmt.Errorf("failed to write object %s: %w", key, err)
	}
	if err := s.fs.Rename(tmp, p); err != nil {
		_ = s.fs.Remove(tmp)
		return Object{}, fmt.Errorf("failed to commit object %s: %w", key, err)
	}
	return Object{Key: key, Location: p, Size: int64(len(data))}, nil
}

// PutJSON writes v encoded as indented JSON at key.
func (s *Store) PutJSON(ctx context.Context, key string, v any) (Object, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return Object{}, fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return s.Put(ctx, key, data)
}

// GetBytes reads the object at key.
func (s *Store) GetBytes(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	data, err := afero.ReadFile(s.fs, p)
	if errors.Is(err, fs.ErrNotExist) || errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read object %s: %w", key, err)
	}
	return data, nil
}

// Get reads the object at key as text.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	data, err := s.GetBytes(ctx, key)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// GetJSON decodes the object at key into v.
func (s *Store) GetJSON(ctx context.Context, key string, v any) error {
	data, err := s.GetBytes(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return nil
}

// Stat describes the object at key.
func (s *Store) Stat(ctx context.Context, key string) (Object, error) {
	if err := ctx.Err(); err != nil {
		return Object{}, err
	}
	p, err := s.resolve(key)
	if err != nil {
		return Object{}, err
	}
	info, err := s.fs.Stat(p)
	if errors.Is(err, fs.ErrNotExist) || errors.Is(err, os.ErrNotExist) {
		return Object{}, fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	if err != nil {
		return Object{}, fmt.Errorf("failed to stat object %s: %w", key, err)
	}
	return Object{Key: key, Location: p, Size: info.Size()}, nil
}

// Exists reports whether an object exists at key.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.Stat(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}
