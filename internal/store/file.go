package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"mvdham/bolwatch/logger"
	errs "mvdham/bolwatch/pkg/errors"
)

// FileStore keeps the state in memory and mirrors it to a flat JSON file,
// rewriting the whole file after every mutation.
type FileStore struct {
	mu    sync.Mutex
	path  string
	state State
	log   *logger.Logger
}

var _ Store = (*FileStore)(nil)

// NewFileStore loads the persisted state from path. A missing or unreadable
// file yields an empty state; the failure is logged, never returned.
func NewFileStore(path string) *FileStore {
	s := &FileStore{
		path:  path,
		state: make(State),
		log:   logger.ForStore(),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Error().Err(err).Str("path", path).Msg("Failed to read state file, starting empty")
		}
		return s
	}
	if err := json.Unmarshal(data, &s.state); err != nil {
		s.log.Error().Err(err).Str("path", path).Msg("Failed to decode state file, starting empty")
		s.state = make(State)
	}
	return s
}

// Snapshot returns a deep copy of the full state
func (s *FileStore) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Clone(s.state)
}

// Products returns a copy of one chat's records
func (s *FileStore) Products(chatID string) ChatProducts {
	s.mu.Lock()
	defer s.mu.Unlock()

	products := make(ChatProducts, len(s.state[chatID]))
	for url, p := range s.state[chatID] {
		products[url] = p
	}
	return products
}

// Get returns one record
func (s *FileStore) Get(chatID, url string) (Product, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.state[chatID][url]
	return p, ok
}

// Upsert creates or replaces a record and rewrites the file
func (s *FileStore) Upsert(chatID, url string, p Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state[chatID] == nil {
		s.state[chatID] = make(ChatProducts)
	}
	s.state[chatID][url] = p
	return s.persistLocked()
}

// Delete removes a record and rewrites the file
func (s *FileStore) Delete(chatID, url string) (Product, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.state[chatID][url]
	if !ok {
		return Product{}, false, nil
	}
	delete(s.state[chatID], url)
	if len(s.state[chatID]) == 0 {
		delete(s.state, chatID)
	}
	return p, true, s.persistLocked()
}

// persistLocked writes the full state via a temp file and rename. On failure
// the in-memory state keeps the mutation; the drift heals on the next
// successful save.
func (s *FileStore) persistLocked() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return errs.NewPersistence("store", "failed to create data directory", err)
	}

	data, err := json.MarshalIndent(s.state, "", "    ")
	if err != nil {
		return errs.NewPersistence("store", "failed to encode state", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errs.NewPersistence("store", "failed to write state file", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return errs.NewPersistence("store", "failed to replace state file", err)
	}
	return nil
}
