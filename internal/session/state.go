package session

import (
	"context"
	"errors"
	"log"
	"time"

	"hrportal/portal-client/internal/models"
	"hrportal/portal-client/internal/store"

	"github.com/google/uuid"
)

const DefaultTTL = 8 * time.Hour

// State is the explicit login state of the portal. Every transition goes through
// the session store, which is the only place session data is persisted.
type State struct {
	store store.SessionStore
	ttl   time.Duration
	now   func() time.Time
}

func NewState(st store.SessionStore, ttl time.Duration) *State {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &State{store: st, ttl: ttl, now: func() time.Time { return time.Now().UTC() }}
}

// Login starts a session for the bearer of token. A token without an exp claim
// gets the configured TTL.
func (s *State) Login(ctx context.Context, token string) (models.PortalSession, error) {
	claims, err := ReadClaims(token)
	if err != nil {
		return models.PortalSession{}, err
	}
	now := s.now()
	expiresAt := claims.ExpiresAt
	if expiresAt.IsZero() {
		expiresAt = now.Add(s.ttl)
	}
	if !now.Before(expiresAt) {
		return models.PortalSession{}, ErrTokenExpired
	}

	session := models.PortalSession{
		SessionID:  uuid.NewString(),
		EmployeeID: claims.EmployeeID,
		Token:      token,
		LoggedIn:   true,
		ExpiresAt:  expiresAt,
		UpdatedAt:  now,
	}
	if err := s.store.SaveSession(ctx, session); err != nil {
		return models.PortalSession{}, err
	}
	log.Printf("session login session_id=%s employee=%s", session.SessionID, session.EmployeeID)
	return session, nil
}

// Restore returns the logged-in session for sessionID. Expired sessions are
// logged out on the way.
func (s *State) Restore(ctx context.Context, sessionID string) (models.PortalSession, error) {
	session, err := s.store.LoadSession(ctx, sessionID)
	if err != nil {
		return models.PortalSession{}, err
	}
	if !session.LoggedIn {
		return models.PortalSession{}, ErrLoggedOut
	}
	if !s.now().Before(session.ExpiresAt) {
		if err := s.save(ctx, session, false); err != nil {
			return models.PortalSession{}, err
		}
		return models.PortalSession{}, ErrSessionExpired
	}
	return session, nil
}

// Logout is idempotent for a session that is already logged out.
func (s *State) Logout(ctx context.Context, sessionID string) error {
	session, err := s.store.LoadSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			return nil
		}
		return err
	}
	if !session.LoggedIn {
		return nil
	}
	if err := s.save(ctx, session, false); err != nil {
		return err
	}
	log.Printf("session logout session_id=%s employee=%s", session.SessionID, session.EmployeeID)
	return nil
}

func (s *State) save(ctx context.Context, session models.PortalSession, loggedIn bool) error {
	session.LoggedIn = loggedIn
	if !loggedIn {
		session.Token = ""
	}
	session.UpdatedAt = s.now()
	return s.store.SaveSession(ctx, session)
}
