package storage

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/richinex/apiagent/model"
)

type memorySession struct {
	history []model.Message
	updated time.Time
}

// InMemoryStorage keeps sessions in a map. Data is lost on exit.
type InMemoryStorage struct {
	mu       sync.RWMutex
	sessions map[string]memorySession
}

// NewInMemoryStorage creates an empty in-memory storage.
func NewInMemoryStorage() *InMemoryStorage {
	return &InMemoryStorage{sessions: make(map[string]memorySession)}
}

// Save replaces the history of a session.
func (s *InMemoryStorage) Save(ctx context.Context, sessionID string, history []model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := make([]model.Message, len(history))
	copy(copied, history)
	s.sessions[sessionID] = memorySession{history: copied, updated: time.Now()}
	return nil
}

// Load returns a copy of the history of a session.
func (s *InMemoryStorage) Load(ctx context.Context, sessionID string) ([]model.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return []model.Message{}, nil
	}
	copied := make([]model.Message, len(session.history))
	copy(copied, session.history)
	return copied, nil
}

// Delete removes a session.
func (s *InMemoryStorage) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, sessionID)
	return nil
}

// ListSessions lists session IDs, most recently updated first.
func (s *InMemoryStorage) ListSessions(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	sortByUpdated(ids, func(id string) time.Time { return s.sessions[id].updated })
	return ids, nil
}

// Exists reports whether a session has been saved.
func (s *InMemoryStorage) Exists(ctx context.Context, sessionID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.sessions[sessionID]
	return ok, nil
}

func sortByUpdated(ids []string, updated func(string) time.Time) {
	slices.SortFunc(ids, func(a, b string) int {
		if c := updated(b).Compare(updated(a)); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	})
}

var _ ConversationStorage = (*InMemoryStorage)(nil)
