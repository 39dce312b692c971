package home

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DefaultDirName is the default name for the bookboost home directory.
	DefaultDirName = ".bookboost"

	// ObjectsDirName is the subdirectory for uploaded manuscripts, converted
	// text and chapter objects.
	ObjectsDirName = "objects"

	// ConfigFileName is the default config file name.
	ConfigFileName = "config.yaml"

	// JobsDBName is the SQLite job store file.
	JobsDBName = "jobs.db"

	// DefraDirName is the subdirectory mounted as DefraDB's data volume.
	DefraDirName = "defra"
)

// Dir represents the bookboost home directory structure.
type Dir struct {
	path string
}

// New creates a new Dir with the given path.
// If path is empty, uses the default (~/.bookboost).
func New(path string) (*Dir, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		path = filepath.Join(home, DefaultDirName)
	}

	return &Dir{path: path}, nil
}

// Path returns the root path of the home directory.
func (d *Dir) Path() string {
	return d.path
}

// ObjectsPath returns the path to the object store root.
func (d *Dir) ObjectsPath() string {
	return filepath.Join(d.path, ObjectsDirName)
}

// ConfigPath returns the path to the default config file.
func (d *Dir) ConfigPath() string {
	return filepath.Join(d.path, ConfigFileName)
}

// JobsDBPath returns the path to the SQLite job store.
func (d *Dir) JobsDBPath() string {
	return filepath.Join(d.path, JobsDBName)
}

// DefraPath returns the path to the DefraDB data directory.
func (d *Dir) DefraPath() string {
	return filepath.Join(d.path, DefraDirName)
}

// EnsureExists creates the home directory and subdirectories if they don't exist.
func (d *Dir) EnsureExists() error {
	// Create objects directory (this also creates the parent)
	if err := os.MkdirAll(d.ObjectsPath(), 0o755); err != nil {
		return fmt.Errorf("failed to create objects directory: %w", err)
	}
	// Bind-mounted into the DefraDB container, which requires it to exist.
	if err := os.MkdirAll(d.DefraPath(), 0o755); err != nil {
		return fmt.Errorf("failed to create defra directory: %w", err)
	}
	return nil
}

// Exists returns true if the home directory exists.
func (d *Dir) Exists() bool {
	_, err := os.Stat(d.path)
	return err == nil
}

// ConfigExists returns true if the config file exists in the home directory.
func (d *Dir) ConfigExists() bool {
	_, err := os.Stat(d.ConfigPath())
	return err == nil
}
