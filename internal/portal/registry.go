package portal

import (
	"context"
	"errors"
	"expvar"
	"log"
	"sync"

	"hrportal/portal-client/internal/geo"
	"hrportal/portal-client/internal/models"
	"hrportal/portal-client/internal/poller"
)

var (
	screensMounted = expvar.NewInt("screens_mounted")
	screensExpired = expvar.NewInt("screens_expired_total")
)

// ClientFactory returns an API client that authenticates as token.
type ClientFactory func(token string) API

type Registry struct {
	factory  ClientFactory
	geocoder geo.Geocoder
	opts     Options
	sweeper  *poller.Schedule

	mu      sync.Mutex
	screens map[string]*Screen
}

// NewRegistry starts a sweeper that unmounts screens whose session expired,
// whose token the HR API rejected, or that went idle.
func NewRegistry(factory ClientFactory, geocoder geo.Geocoder, opts Options) *Registry {
	opts = opts.withDefaults()
	r := &Registry{
		factory:  factory,
		geocoder: geocoder,
		opts:     opts,
		sweeper:  poller.New(),
		screens:  make(map[string]*Screen),
	}
	r.sweeper.Every(opts.SweepInterval, "sweep", func(ctx context.Context) { r.Sweep(ctx) })
	r.sweeper.Start()
	return r
}

// Mount returns the screen for the session, creating and starting it on first
// use. A stale screen is replaced.
func (r *Registry) Mount(ctx context.Context, current models.PortalSession) (*Screen, error) {
	r.mu.Lock()
	old, ok := r.screens[current.SessionID]
	if ok && old.Stale(r.opts.now()) == "" {
		r.mu.Unlock()
		old.Touch(current.ExpiresAt)
		return old, nil
	}
	screen := NewScreen(current.SessionID, current.EmployeeID, r.factory(current.Token), r.geocoder, r.opts)
	screen.Touch(current.ExpiresAt)
	r.screens[current.SessionID] = screen
	if !ok {
		screensMounted.Add(1)
	}
	r.mu.Unlock()

	if old != nil {
		_ = old.Close(ctx)
		screensExpired.Add(1)
	}

	if err := screen.Start(ctx); err != nil {
		r.remove(current.SessionID, screen)
		_ = screen.Close(context.Background())
		return nil, err
	}
	log.Printf("screen mounted session_id=%s employee=%s", current.SessionID, current.EmployeeID)
	return screen, nil
}

func (r *Registry) Get(sessionID string) (*Screen, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	screen, ok := r.screens[sessionID]
	return screen, ok
}

func (r *Registry) Unmount(ctx context.Context, sessionID string) error {
	r.mu.Lock()
	screen, ok := r.screens[sessionID]
	if ok {
		delete(r.screens, sessionID)
		screensMounted.Add(-1)
	}
	r.mu.Unlock()
	if !ok {
		return nil
	}
	log.Printf("screen unmounted session_id=%s employee=%s", sessionID, screen.EmployeeID())
	return screen.Close(ctx)
}

// Sweep unmounts every stale screen and returns how many were removed.
func (r *Registry) Sweep(ctx context.Context) int {
	now := r.opts.now()
	type staleScreen struct {
		screen *Screen
		reason string
	}
	var stale []staleScreen
	r.mu.Lock()
	for id, screen := range r.screens {
		if reason := screen.Stale(now); reason != "" {
			delete(r.screens, id)
			screensMounted.Add(-1)
			stale = append(stale, staleScreen{screen: screen, reason: reason})
		}
	}
	r.mu.Unlock()

	for _, s := range stale {
		log.Printf("screen swept session_id=%s employee=%s reason=%s", s.screen.SessionID(), s.screen.EmployeeID(), s.reason)
		if err := s.screen.Close(ctx); err != nil {
			log.Printf("screen close error session_id=%s: %v", s.screen.SessionID(), err)
		}
		screensExpired.Add(1)
	}
	return len(stale)
}

func (r *Registry) remove(sessionID string, screen *Screen) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.screens[sessionID] == screen {
		delete(r.screens, sessionID)
		screensMounted.Add(-1)
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.screens)
}

// Close stops the sweeper and unmounts every screen.
func (r *Registry) Close(ctx context.Context) error {
	errs := []error{r.sweeper.Stop(ctx)}
	r.mu.Lock()
	screens := r.screens
	r.screens = make(map[string]*Screen)
	screensMounted.Add(-int64(len(screens)))
	r.mu.Unlock()

	for _, screen := range screens {
		if err := screen.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
