package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"refeitorio-client/internal/model"
)

// State is what FileStore persists between CLI invocations.
type State struct {
	Token string      `yaml:"token"`
	User  *model.User `yaml:"user,omitempty"`
}

// FileStore persists the session token to a YAML file.
type FileStore struct {
	path string
}

// NewFileStore expands a leading "~" in path to the user's home directory.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("session file path is empty")
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve home directory: %w", err)
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return &FileStore{path: path}, nil
}

func (f *FileStore) Path() string { return f.path }

// Load returns ok=false when no session has been saved.
func (f *FileStore) Load() (State, bool, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return State{}, false, nil
	}
	if err != nil {
		return State{}, false, fmt.Errorf("failed to read session file: %w", err)
	}
	var st State
	if err := yaml.Unmarshal(data, &st); err != nil {
		return State{}, false, fmt.Errorf("failed to parse session file: %w", err)
	}
	return st, st.Token != "", nil
}

func (f *FileStore) Save(st State) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}
	data, err := yaml.Marshal(st)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := os.WriteFile(f.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return nil
}

// Clear removes the file. A missing file is not an error.
func (f *FileStore) Clear() error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	return nil
}

// Snapshot returns the persistable state of s.
func (s *Session) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := State{Token: s.token}
	if s.user != nil {
		u := *s.user
		st.User = &u
	}
	return st
}
