package preferences

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"
)

const (
	fileDirPerm  = 0o700
	filePerm     = 0o600
	fileBaseName = "preferences.json"
)

// FileStore keeps preferences in a JSON file. Keys are case-insensitive.
type FileStore struct {
	mu   sync.Mutex
	path string
	v    *viper.Viper
}

// DefaultFilePath returns the preferences file under the user config dir.
func DefaultFilePath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolving user config dir: %w", err)
	}
	return filepath.Join(dir, "ember", fileBaseName), nil
}

// NewFileStore opens the preferences file at path. A missing file is not an
// error; it is created on the first Set.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("preferences file path cannot be empty")
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")

	if _, err := os.Stat(path); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading preferences: %w", err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("checking preferences file: %w", err)
	}

	return &FileStore{path: path, v: v}, nil
}

// Get returns the value stored under key.
func (s *FileStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.v.IsSet(key) {
		return "", ErrNotFound
	}
	return s.v.GetString(key), nil
}

// Set stores value under key and rewrites the file.
func (s *FileStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), fileDirPerm); err != nil {
		return fmt.Errorf("creating preferences dir: %w", err)
	}

	s.v.Set(key, value)
	if err := s.v.WriteConfigAs(s.path); err != nil {
		return fmt.Errorf("writing preferences: %w", err)
	}

	// The file holds a credential.
	if err := os.Chmod(s.path, filePerm); err != nil {
		return fmt.Errorf("restricting preferences file: %w", err)
	}

	return nil
}
