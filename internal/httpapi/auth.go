package httpapi

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"hrportal/portal-client/internal/models"
	"hrportal/portal-client/internal/portal"
	"hrportal/portal-client/internal/portalapi"
	"hrportal/portal-client/internal/session"
	"hrportal/portal-client/internal/store"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type SessionState interface {
	Login(ctx context.Context, token string) (models.PortalSession, error)
	Restore(ctx context.Context, sessionID string) (models.PortalSession, error)
	Logout(ctx context.Context, sessionID string) error
}

type ScreenRegistry interface {
	Mount(ctx context.Context, current models.PortalSession) (*portal.Screen, error)
	Unmount(ctx context.Context, sessionID string) error
}

type authContextKey struct{}

type authInfo struct {
	Session models.PortalSession
	Screen  *portal.Screen
}

// AuthMiddleware restores the portal session and mounts its screen. A screen is
// mounted lazily, so sessions survive a restart of this service.
func AuthMiddleware(sessions SessionState, screens ScreenRegistry, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isPublicEndpoint(r) {
			next.ServeHTTP(w, r)
			return
		}
		sessionID := sessionIDFromRequest(r)
		if sessionID == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized", "missing session")
			return
		}
		current, err := sessions.Restore(r.Context(), sessionID)
		if err != nil {
			switch {
			case errors.Is(err, store.ErrSessionNotFound), errors.Is(err, session.ErrLoggedOut), errors.Is(err, session.ErrSessionExpired):
				_ = screens.Unmount(r.Context(), sessionID)
				writeError(w, http.StatusUnauthorized, "unauthorized", "invalid session")
			default:
				log.Printf("session restore error session_id=%s: %v", sessionID, err)
				writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
			}
			return
		}
		screen, err := screens.Mount(r.Context(), current)
		if err != nil {
			if portalapi.IsUnauthorized(err) {
				_ = sessions.Logout(r.Context(), sessionID)
				writeError(w, http.StatusUnauthorized, "unauthorized", "token rejected by HR API")
				return
			}
			log.Printf("screen mount error session_id=%s: %v", sessionID, err)
			writeError(w, http.StatusBadGateway, "upstream_error", "HR API unavailable")
			return
		}
		trace.SpanFromContext(r.Context()).SetAttributes(attribute.String("employee.id", current.EmployeeID))
		ctx := context.WithValue(r.Context(), authContextKey{}, authInfo{Session: current, Screen: screen})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func authFromContext(ctx context.Context) (authInfo, bool) {
	info, ok := ctx.Value(authContextKey{}).(authInfo)
	return info, ok
}

func sessionIDFromRequest(r *http.Request) string {
	if token := bearerToken(r.Header.Get("Authorization")); token != "" {
		return token
	}
	return strings.TrimSpace(r.Header.Get("X-Session-ID"))
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.Fields(header)
	if len(parts) != 2 {
		return ""
	}
	if strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return parts[1]
}

func isPublicEndpoint(r *http.Request) bool {
	switch r.URL.Path {
	case "/healthz", "/metrics":
		return true
	case "/api/portal/session":
		return r.Method == http.MethodPost
	default:
		return r.Method == http.MethodOptions
	}
}
