// Package store persists finished recordings. Uploads go to the remote
// library service; when it is unreachable, entries are cached in a local
// JSON file and synced later.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when an entry ID is not in the store.
var ErrNotFound = errors.New("store: entry not found")

// Entry is a finished recording awaiting (or having completed) upload.
// Data holds the encoded artifact; JSON encodes it as base64.
type Entry struct {
	ID          string    `json:"id"`
	SessionID   string    `json:"session_id"`
	CreatedAt   time.Time `json:"created_at"`
	DurationSec float64   `json:"duration_sec"`
	LaughCount  int       `json:"laugh_count"`
	MIME        string    `json:"mime"`
	Data        []byte    `json:"data"`

	// Attempts counts failed upload attempts for this entry.
	Attempts int `json:"attempts"`

	// LastError describes the most recent upload failure.
	LastError string `json:"last_error,omitempty"`
}

// storeData is the JSON structure of the cache file.
type storeData struct {
	Version   int      `json:"version"`
	UpdatedAt string   `json:"updated_at"`
	Entries   []*Entry `json:"entries"`
}

const currentVersion = 1

// JSONStore is the local pending cache, backed by a single JSON file.
type JSONStore struct {
	path    string
	entries map[string]*Entry
	mu      sync.RWMutex
}

// NewJSONStore creates a store at the given path. If the file doesn't
// exist, it is created on first save.
func NewJSONStore(path string) (*JSONStore, error) {
	store := &JSONStore{
		path:    path,
		entries: make(map[string]*Entry),
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		if err := store.load(); err != nil {
			return nil, fmt.Errorf("failed to load store: %w", err)
		}
	}

	return store, nil
}

// NewDefaultStore creates a store at ~/.laughtrack/pending.json.
func NewDefaultStore() (*JSONStore, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}
	return NewJSONStore(filepath.Join(homeDir, ".laughtrack", "pending.json"))
}

func (s *JSONStore) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	var stored storeData
	if err := json.Unmarshal(data, &stored); err != nil {
		return fmt.Errorf("failed to parse JSON: %w", err)
	}

	s.entries = make(map[string]*Entry)
	for _, e := range stored.Entries {
		s.entries[e.ID] = e
	}

	return nil
}

// save writes the store to disk. Caller holds the lock.
func (s *JSONStore) save() error {
	entries := make([]*Entry, 0, len(s.entries))
	for _, e := range s.entries {
		entries = append(entries, e)
	}

	stored := storeData{
		Version:   currentVersion,
		UpdatedAt: time.Now().Format(time.RFC3339),
		Entries:   entries,
	}

	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	// Write to temp file first, then rename (atomic write)
	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

// Put creates or updates an entry. A missing ID is assigned.
func (s *JSONStore) Put(e *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	s.entries[e.ID] = e
	return s.save()
}

// Get retrieves an entry by ID.
func (s *JSONStore) Get(id string) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[id]
	if !ok {
		return nil, fmt.Errorf("entry %s: %w", id, ErrNotFound)
	}
	return e, nil
}

// List returns all pending entries, oldest first, so sync replays
// recordings in the order they were made.
func (s *JSONStore) List() ([]*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]*Entry, 0, len(s.entries))
	for _, e := range s.entries {
		entries = append(entries, e)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})

	return entries, nil
}

// Delete removes an entry by ID.
func (s *JSONStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[id]; !ok {
		return fmt.Errorf("entry %s: %w", id, ErrNotFound)
	}

	delete(s.entries, id)
	return s.save()
}

// Count returns the number of pending entries.
func (s *JSONStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Path returns the file path of the store.
func (s *JSONStore) Path() string {
	return s.path
}
