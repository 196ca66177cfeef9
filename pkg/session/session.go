// Package session persists the transient active-connection pointer. It lives
// in its own file so it can be set and cleared without touching saved
// profiles, and it overrides the registry default until explicitly cleared.
package session

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
)

// State is the on-disk shape of the session file.
type State struct {
	ActiveConnection string `json:"activeConnection,omitempty"`
}

// Store manages the session pointer file.
type Store struct {
	path  string
	state State
}

// NewStore creates a session store backed by the file at path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load reads the session file. A missing or malformed file is treated as an
// empty session.
func (s *Store) Load() error {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		s.state = State{}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read session file: %w", err)
	}

	if err := json.Unmarshal(data, &s.state); err != nil {
		log.Printf("Warning: session file %s is malformed, treating as empty: %v", s.path, err)
		s.state = State{}
	}

	return nil
}

// Active returns the active connection name, if one is set. The name is not
// validated against the registry here; resolution handles dangling pointers.
func (s *Store) Active() (string, bool) {
	return s.state.ActiveConnection, s.state.ActiveConnection != ""
}

// Set records name as the active connection.
func (s *Store) Set(name string) error {
	s.state.ActiveConnection = name
	return s.save()
}

// Clear removes the active connection pointer.
func (s *Store) Clear() error {
	s.state = State{}
	return s.save()
}

func (s *Store) save() error {
	data, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}

	return nil
}
