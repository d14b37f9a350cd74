package postgres

import (
	"context"
	"errors"
	"time"

	"hrportal/portal-client/internal/models"
	"hrportal/portal-client/internal/store"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) LoadSession(ctx context.Context, sessionID string) (models.PortalSession, error) {
	var session models.PortalSession
	var expiresAt *time.Time
	row := s.pool.QueryRow(ctx, `
		SELECT session_id::text, employee_id, token, logged_in, expires_at, updated_at
		FROM portal_sessions
		WHERE session_id = $1
	`, sessionID)
	if err := row.Scan(&session.SessionID, &session.EmployeeID, &session.Token, &session.LoggedIn, &expiresAt, &session.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.PortalSession{}, store.ErrSessionNotFound
		}
		return models.PortalSession{}, err
	}
	if expiresAt != nil {
		session.ExpiresAt = *expiresAt
	}
	return session, nil
}

func (s *Store) SaveSession(ctx context.Context, session models.PortalSession) error {
	var expiresAt *time.Time
	if !session.ExpiresAt.IsZero() {
		expiresAt = &session.ExpiresAt
	}
	updatedAt := session.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO portal_sessions (session_id, employee_id, token, logged_in, expires_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (session_id) DO UPDATE
		SET employee_id = EXCLUDED.employee_id,
			token = EXCLUDED.token,
			logged_in = EXCLUDED.logged_in,
			expires_at = EXCLUDED.expires_at,
			updated_at = EXCLUDED.updated_at
	`, session.SessionID, session.EmployeeID, session.Token, session.LoggedIn, expiresAt, updatedAt)
	return err
}
