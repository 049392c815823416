package credstore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/BurntSushi/toml"
)

// Credentials are the application identity handed to the engine.
type Credentials struct {
	APIID   int32  `toml:"api_id"`
	APIHash string `toml:"api_hash"`
}

// Valid reports whether both fields are set.
func (c Credentials) Valid() bool {
	return c.APIID != 0 && c.APIHash != ""
}

// Store keeps credentials in a small TOML file readable only by the owner.
type Store struct {
	mu   sync.Mutex
	path string
}

// New returns a store backed by path. The file is created on first Save.
func New(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Load returns the stored credentials. A missing file yields zero values.
func (s *Store) Load() (Credentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var c Credentials
	if _, err := toml.DecodeFile(s.path, &c); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Credentials{}, nil
		}
		return Credentials{}, fmt.Errorf("decode credentials: %w", err)
	}
	return c, nil
}

// Save overwrites the stored credentials.
func (s *Store) Save(c Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(c)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}

// Clear erases the stored credentials.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
