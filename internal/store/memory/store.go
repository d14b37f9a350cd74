package memory

import (
	"context"
	"sync"
	"time"

	"hrportal/portal-client/internal/models"
	"hrportal/portal-client/internal/store"
)

// Store keeps sessions in process memory. Used when no DB_DSN is configured.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]models.PortalSession
}

func NewStore() *Store {
	return &Store{sessions: make(map[string]models.PortalSession)}
}

func (s *Store) LoadSession(ctx context.Context, sessionID string) (models.PortalSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return models.PortalSession{}, store.ErrSessionNotFound
	}
	return session, nil
}

func (s *Store) SaveSession(ctx context.Context, session models.PortalSession) error {
	if session.UpdatedAt.IsZero() {
		session.UpdatedAt = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.SessionID] = session
	return nil
}
