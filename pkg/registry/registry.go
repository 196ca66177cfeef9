// Package registry manages the persisted map of named connection profiles,
// the default-connection pointer and the embedded operation history. The
// registry file is the sole persisted root: it is loaded fully into memory,
// mutated, and written back on every change.
package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/supporttools/GoPGVault/pkg/history"
)

// Engine types for connection profiles. Every consumption site must switch
// exhaustively over the type tag.
const (
	TypePostgres = "postgres"
	TypeSQLite   = "sqlite"
)

var (
	// ErrNotFound indicates a connection name that does not exist.
	ErrNotFound = errors.New("connection not found")
	// ErrDuplicateName indicates an add or rename collision.
	ErrDuplicateName = errors.New("connection name already exists")
	// ErrPersistenceFailed indicates the registry file could not be written.
	ErrPersistenceFailed = errors.New("failed to persist registry")
)

// Profile holds the connection parameters for one database server or file.
// Network fields apply to the postgres type, FilePath to file-based engines.
type Profile struct {
	Type            string     `json:"type"`
	Host            string     `json:"host,omitempty"`
	Port            int        `json:"port,omitempty"`
	User            string     `json:"user,omitempty"`
	Password        string     `json:"password,omitempty"`
	Database        string     `json:"database,omitempty"`
	SSLEnabled      bool       `json:"sslEnabled"`
	FilePath        string     `json:"filePath,omitempty"`
	LastConnectedAt *time.Time `json:"lastConnectedAt,omitempty"`
}

// Settings holds user-tunable options persisted alongside the connections.
type Settings struct {
	DumpDirectory string `json:"dumpDirectory,omitempty"`
}

// Document is the on-disk shape of the registry file.
type Document struct {
	Connections       map[string]Profile `json:"connections"`
	DefaultConnection string             `json:"defaultConnection,omitempty"`
	Settings          Settings           `json:"settings"`
	History           []history.Entry    `json:"history"`
}

// NamedProfile pairs a profile with its registry key for listings.
type NamedProfile struct {
	Name    string
	Profile Profile
}

// Store manages the registry document with read-modify-write persistence.
type Store struct {
	mutex  sync.RWMutex
	path   string
	doc    Document
	ledger *history.Ledger
}

// NewStore creates a store for the registry file at path. Call Load before
// using it.
func NewStore(path string) *Store {
	s := &Store{path: path}
	s.doc = emptyDocument()
	s.ledger = history.NewLedger(&s.doc.History, s.Save, nil)
	return s
}

func emptyDocument() Document {
	return Document{
		Connections: make(map[string]Profile),
		History:     make([]history.Entry, 0),
	}
}

// Load reads the registry file. A missing file yields an empty registry; a
// malformed file is logged as a warning and replaced in memory by defaults
// (the broken file is only overwritten on the next save).
func (s *Store) Load() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read registry file: %w", err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		log.Printf("Warning: registry file %s is malformed, starting from defaults: %v", s.path, err)
		s.doc = emptyDocument()
		return nil
	}

	if doc.Connections == nil {
		doc.Connections = make(map[string]Profile)
	}
	if doc.History == nil {
		doc.History = make([]history.Entry, 0)
	}
	s.doc = doc

	return nil
}

// Save persists the registry document.
func (s *Store) Save() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.save()
}

// save writes the document without taking the lock.
func (s *Store) save() error {
	data, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}

	// The registry carries credentials, keep it owner-only.
	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}

	return nil
}

// History returns the operation ledger embedded in the registry document.
func (s *Store) History() *history.Ledger {
	return s.ledger
}

// Settings returns the persisted settings.
func (s *Store) Settings() Settings {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return s.doc.Settings
}

// UpdateSettings replaces the persisted settings.
func (s *Store) UpdateSettings(settings Settings) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.doc.Settings = settings
	return s.save()
}

// Add registers a new profile. The first profile added becomes the default.
func (s *Store) Add(name string, profile Profile) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, exists := s.doc.Connections[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateName, name)
	}

	s.doc.Connections[name] = profile
	if len(s.doc.Connections) == 1 {
		s.doc.DefaultConnection = name
	}

	return s.save()
}

// Get returns the profile stored under name.
func (s *Store) Get(name string) (Profile, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	profile, exists := s.doc.Connections[name]
	if !exists {
		return Profile{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return profile, nil
}

// Remove deletes the profile. If it was the default, the default pointer is
// reassigned to an arbitrary remaining profile, or cleared when none remain.
func (s *Store) Remove(name string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, exists := s.doc.Connections[name]; !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	delete(s.doc.Connections, name)

	if s.doc.DefaultConnection == name {
		s.doc.DefaultConnection = ""
		for remaining := range s.doc.Connections {
			s.doc.DefaultConnection = remaining
			break
		}
	}

	return s.save()
}

// Rename moves a profile to a new name, updating the default pointer if it
// referenced the old name. State is untouched on failure.
func (s *Store) Rename(oldName, newName string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	profile, exists := s.doc.Connections[oldName]
	if !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, oldName)
	}
	if _, exists := s.doc.Connections[newName]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateName, newName)
	}

	delete(s.doc.Connections, oldName)
	s.doc.Connections[newName] = profile

	if s.doc.DefaultConnection == oldName {
		s.doc.DefaultConnection = newName
	}

	return s.save()
}

// SetDefault marks an existing profile as the default connection.
func (s *Store) SetDefault(name string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, exists := s.doc.Connections[name]; !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	s.doc.DefaultConnection = name
	return s.save()
}

// DefaultConnection returns the current default connection name, if any.
func (s *Store) DefaultConnection() (string, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return s.doc.DefaultConnection, s.doc.DefaultConnection != ""
}

// TouchLastUsed records that the named profile was just connected to.
func (s *Store) TouchLastUsed(name string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	profile, exists := s.doc.Connections[name]
	if !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	now := time.Now()
	profile.LastConnectedAt = &now
	s.doc.Connections[name] = profile

	return s.save()
}

// Resolve returns the profile selected by the precedence rule: an explicit
// name wins over the session pointer, which wins over the default. A session
// pointer that no longer resolves to a registered profile is treated as unset
// with a logged warning. When nothing resolves, ErrNotFound is returned with
// a descriptive message.
func (s *Store) Resolve(explicitName, sessionName string) (string, Profile, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if explicitName != "" {
		profile, exists := s.doc.Connections[explicitName]
		if !exists {
			return "", Profile{}, fmt.Errorf("%w: %s", ErrNotFound, explicitName)
		}
		return explicitName, profile, nil
	}

	if sessionName != "" {
		if profile, exists := s.doc.Connections[sessionName]; exists {
			return sessionName, profile, nil
		}
		log.Printf("Warning: session points at unknown connection %q, falling back to default", sessionName)
	}

	if s.doc.DefaultConnection != "" {
		if profile, exists := s.doc.Connections[s.doc.DefaultConnection]; exists {
			return s.doc.DefaultConnection, profile, nil
		}
	}

	return "", Profile{}, fmt.Errorf("%w: no connection selected and no default configured", ErrNotFound)
}

// ListSortedByRecency returns all profiles sorted descending by last
// connection time. Profiles never connected to sort last; ties keep a stable
// alphabetical order.
func (s *Store) ListSortedByRecency() []NamedProfile {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	result := make([]NamedProfile, 0, len(s.doc.Connections))
	for name, profile := range s.doc.Connections {
		result = append(result, NamedProfile{Name: name, Profile: profile})
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	sort.SliceStable(result, func(i, j int) bool {
		left, right := result[i].Profile.LastConnectedAt, result[j].Profile.LastConnectedAt
		if left == nil {
			return false
		}
		if right == nil {
			return true
		}
		return left.After(*right)
	})

	return result
}
