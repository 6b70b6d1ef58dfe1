package draftstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/apexhq/salespilot/pkg/models"
)

// ErrNotFound is returned when a draft is not in the store.
var ErrNotFound = errors.New("draft not found")

const defaultMaxAge = 24 * time.Hour

// Store keeps pending drafts in a JSON file so approvals survive restarts.
// Every mutation rewrites the whole file; the draft set stays small because
// drafts live only between generation and the rep's decision.
type Store struct {
	path   string
	logger *slog.Logger

	mu     sync.Mutex
	drafts map[string]models.Draft
}

// New opens the store at path, loading any drafts persisted by a previous
// run. A corrupt file is logged and treated as empty rather than blocking
// startup.
func New(path string, logger *slog.Logger) *Store {
	s := &Store{
		path:   path,
		logger: logger.With("component", "draftstore"),
		drafts: map[string]models.Draft{},
	}
	s.load()
	return s
}

// Save persists a draft, assigning an ID when it has none, and returns the ID.
func (s *Store) Save(draft models.Draft) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if draft.ID == "" {
		draft.ID = uuid.NewString()
	}
	if draft.CreatedAt.IsZero() {
		draft.CreatedAt = time.Now()
	}

	s.drafts[draft.ID] = draft
	if err := s.persist(); err != nil {
		return "", err
	}
	return draft.ID, nil
}

// Get returns a draft by ID. On a memory miss the file is reloaded once, so
// a restarted process can still resolve callbacks from before the restart.
func (s *Store) Get(id string) (models.Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if draft, ok := s.drafts[id]; ok {
		return draft, nil
	}

	s.load()
	if draft, ok := s.drafts[id]; ok {
		return draft, nil
	}
	return models.Draft{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// UpdateContent replaces the email content of an existing draft.
func (s *Store) UpdateContent(id string, content models.EmailContent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	draft, ok := s.drafts[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	draft.Content = content
	s.drafts[id] = draft
	return s.persist()
}

// Delete removes a draft. Deleting an unknown ID is not an error.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.drafts[id]; !ok {
		return nil
	}
	delete(s.drafts, id)
	return s.persist()
}

// Cleanup drops drafts older than maxAge (24h when zero) and returns how
// many were removed.
func (s *Store) Cleanup(maxAge time.Duration) (int, error) {
	if maxAge <= 0 {
		maxAge = defaultMaxAge
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for id, draft := range s.drafts {
		if draft.CreatedAt.Before(cutoff) {
			delete(s.drafts, id)
			removed++
		}
	}

	if removed == 0 {
		return 0, nil
	}
	if err := s.persist(); err != nil {
		return removed, err
	}

	s.logger.Info("expired drafts removed", "count", removed)
	return removed, nil
}

// Count returns the number of pending drafts.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.drafts)
}

// load replaces the in-memory set from disk. Callers hold the lock.
func (s *Store) load() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("failed to read draft file", "path", s.path, "error", err)
		}
		return
	}

	drafts := map[string]models.Draft{}
	if err := json.Unmarshal(data, &drafts); err != nil {
		s.logger.Warn("draft file is corrupt, starting empty", "path", s.path, "error", err)
		s.drafts = map[string]models.Draft{}
		return
	}
	s.drafts = drafts
}

// persist writes the full draft set to disk. Callers hold the lock.
func (s *Store) persist() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create draft directory: %w", err)
	}

	data, err := json.MarshalIndent(s.drafts, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode drafts: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write draft file: %w", err)
	}
	return nil
}
