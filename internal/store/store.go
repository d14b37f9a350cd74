package store

import (
	"context"

	"hrportal/portal-client/internal/models"
)

// SessionStore is the only persistence boundary of the portal client.
type SessionStore interface {
	LoadSession(ctx context.Context, sessionID string) (models.PortalSession, error)
	SaveSession(ctx context.Context, session models.PortalSession) error
}
