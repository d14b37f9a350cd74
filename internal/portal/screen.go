package portal

import (
	"context"
	"errors"
	"log"
	"sort"
	"sync"
	"time"

	"hrportal/portal-client/internal/clock"
	"hrportal/portal-client/internal/feed"
	"hrportal/portal-client/internal/geo"
	"hrportal/portal-client/internal/models"
	"hrportal/portal-client/internal/poller"
	"hrportal/portal-client/internal/portalapi"
	"hrportal/portal-client/internal/visualizer"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type API interface {
	clock.API
	feed.API
	GetPersonalStats(ctx context.Context, employeeID string) (models.PersonalStats, error)
	GetHistory(ctx context.Context, employeeID string) ([]models.AttendanceDayLog, error)
	GetHolidays(ctx context.Context) ([]models.Holiday, error)
}

// Options configures screens and the registry. Location is the employee's
// timezone; day boundaries and open sessions are computed in it. A screen
// without requests for IdleTimeout is unmounted by the next sweep.
type Options struct {
	StatusInterval    time.Duration
	DashboardInterval time.Duration
	TickInterval      time.Duration
	ClearDelay        time.Duration
	Visualizer        visualizer.Options
	Location          *time.Location
	IdleTimeout       time.Duration
	SweepInterval     time.Duration
	Now               func() time.Time
}

func DefaultOptions() Options {
	return Options{
		StatusInterval:    30 * time.Second,
		DashboardInterval: 30 * time.Second,
		TickInterval:      time.Minute,
		ClearDelay:        clock.DefaultClearDelay,
		Visualizer:        visualizer.DefaultOptions(),
		IdleTimeout:       30 * time.Minute,
		SweepInterval:     time.Minute,
		Now:               time.Now,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.StatusInterval <= 0 {
		o.StatusInterval = def.StatusInterval
	}
	if o.DashboardInterval <= 0 {
		o.DashboardInterval = def.DashboardInterval
	}
	if o.TickInterval <= 0 {
		o.TickInterval = def.TickInterval
	}
	if o.Visualizer.ExpectedMinutes <= 0 {
		o.Visualizer = def.Visualizer
	}
	if o.IdleTimeout <= 0 {
		o.IdleTimeout = def.IdleTimeout
	}
	if o.SweepInterval <= 0 {
		o.SweepInterval = def.SweepInterval
	}
	if o.Now == nil {
		o.Now = def.Now
	}
	return o
}

func (o Options) now() time.Time {
	if o.Location == nil {
		return o.Now()
	}
	return o.Now().In(o.Location)
}

// Screen is the mounted portal of one session. It owns the clock controller and
// every recurring task; Close tears all of them down.
type Screen struct {
	sessionID  string
	employeeID string
	api        API
	controller *clock.Controller
	wall       *feed.Wall
	schedule   *poller.Schedule
	opts       Options
	tracer     trace.Tracer

	mu        sync.RWMutex
	history   []models.AttendanceDayLog
	stats     models.PersonalStats
	holidays  []models.Holiday
	today     visualizer.DayView
	loaded    bool
	refreshed time.Time
	expiresAt time.Time
	lastSeen  time.Time
	revoked   bool
}

func NewScreen(sessionID, employeeID string, api API, geocoder geo.Geocoder, opts Options) *Screen {
	opts = opts.withDefaults()
	s := &Screen{
		sessionID:  sessionID,
		employeeID: employeeID,
		api:        api,
		controller: clock.NewController(employeeID, api, geocoder, clock.Options{ClearDelay: opts.ClearDelay}),
		wall:       feed.NewWall(api),
		schedule:   poller.New(),
		opts:       opts,
		tracer:     otel.Tracer("hrportal/portal-client/portal"),
		lastSeen:   opts.now(),
	}
	s.schedule.Every(opts.StatusInterval, "status", s.pollStatus)
	s.schedule.Every(opts.DashboardInterval, "dashboard", s.pollDashboard)
	s.schedule.Every(opts.TickInterval, "tick", func(context.Context) { s.tick() })
	return s
}

// Start loads the initial state and starts polling. An unauthorized response
// is returned so the caller can drop the session.
func (s *Screen) Start(ctx context.Context) error {
	if err := s.controller.RefreshStatus(ctx); err != nil {
		if portalapi.IsUnauthorized(err) {
			return err
		}
		log.Printf("initial status error employee=%s: %v", s.employeeID, err)
	}
	if err := s.refresh(ctx); err != nil {
		if portalapi.IsUnauthorized(err) {
			return err
		}
		log.Printf("initial dashboard error employee=%s: %v", s.employeeID, err)
	}
	s.schedule.Start()
	return nil
}

func (s *Screen) Close(ctx context.Context) error {
	s.controller.Close()
	return s.schedule.Stop(ctx)
}

func (s *Screen) SessionID() string {
	return s.sessionID
}

func (s *Screen) EmployeeID() string {
	return s.employeeID
}

func (s *Screen) Status() clock.Snapshot {
	return s.controller.Snapshot()
}

// Touch records activity on the screen and the expiry of its session.
func (s *Screen) Touch(expiresAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = s.opts.now()
	if !expiresAt.IsZero() {
		s.expiresAt = expiresAt
	}
}

// Stale reports why the screen should be unmounted at now, or "" if it is
// still live.
func (s *Screen) Stale(now time.Time) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch {
	case s.revoked:
		return "revoked"
	case !s.expiresAt.IsZero() && !now.Before(s.expiresAt):
		return "expired"
	case now.Sub(s.lastSeen) >= s.opts.IdleTimeout:
		return "idle"
	}
	return ""
}

func (s *Screen) markRevoked(err error) bool {
	if !portalapi.IsUnauthorized(err) {
		return false
	}
	s.mu.Lock()
	s.revoked = true
	s.mu.Unlock()
	log.Printf("token rejected by HR API employee=%s", s.employeeID)
	return true
}

// Clock runs one clock action. A successful action reloads the clock status
// and today's log. requestID is forwarded to the HR API.
func (s *Screen) Clock(ctx context.Context, requestID string, locator geo.Locator) (clock.Snapshot, error) {
	snap, err := s.controller.ToggleRequest(ctx, requestID, locator)
	if err != nil {
		return snap, err
	}
	if err := s.controller.RefreshStatus(ctx); err != nil {
		s.markRevoked(err)
		log.Printf("status reload after clock error employee=%s: %v", s.employeeID, err)
	} else {
		snap = s.controller.Snapshot()
	}
	if err := s.refreshHistory(ctx); err != nil {
		s.markRevoked(err)
		log.Printf("history reload after clock error employee=%s: %v", s.employeeID, err)
	}
	return snap, nil
}

func (s *Screen) Feed(ctx context.Context) ([]models.FeedPost, error) {
	return s.wall.Refresh(ctx)
}

func (s *Screen) ToggleLike(ctx context.Context, postID string) (models.LikeResult, error) {
	return s.wall.ToggleLike(ctx, postID)
}

func (s *Screen) pollStatus(ctx context.Context) {
	if err := s.controller.RefreshStatus(ctx); err != nil && !errors.Is(err, context.Canceled) {
		if s.markRevoked(err) {
			return
		}
		log.Printf("status poll error employee=%s: %v", s.employeeID, err)
	}
}

func (s *Screen) pollDashboard(ctx context.Context) {
	if err := s.refresh(ctx); err != nil && !errors.Is(err, context.Canceled) {
		if s.markRevoked(err) {
			return
		}
		log.Printf("dashboard poll error employee=%s: %v", s.employeeID, err)
	}
}

func (s *Screen) refresh(ctx context.Context) (err error) {
	ctx, span := s.tracer.Start(ctx, "portal.refresh", trace.WithAttributes(attribute.String("employee.id", s.employeeID)))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "dashboard refresh failed")
		}
		span.End()
	}()

	stats, err := s.api.GetPersonalStats(ctx, s.employeeID)
	if err != nil {
		return err
	}
	history, err := s.api.GetHistory(ctx, s.employeeID)
	if err != nil {
		return err
	}
	s.mu.RLock()
	haveHolidays := s.holidays != nil
	s.mu.RUnlock()
	var holidays []models.Holiday
	if !haveHolidays {
		if holidays, err = s.api.GetHolidays(ctx); err != nil {
			log.Printf("holiday load error employee=%s: %v", s.employeeID, err)
		}
	}

	s.mu.Lock()
	s.stats = stats
	s.history = history
	if holidays != nil {
		s.holidays = holidays
	}
	s.loaded = true
	s.refreshed = s.opts.now()
	s.today = s.todayViewLocked(s.refreshed)
	s.mu.Unlock()
	return nil
}

func (s *Screen) refreshHistory(ctx context.Context) error {
	history, err := s.api.GetHistory(ctx, s.employeeID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.history = history
	s.today = s.todayViewLocked(s.opts.now())
	s.mu.Unlock()
	return nil
}

// tick recomputes today's view so an open session keeps growing between polls.
func (s *Screen) tick() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return
	}
	s.today = s.todayViewLocked(s.opts.now())
}

func (s *Screen) todayViewLocked(now time.Time) visualizer.DayView {
	date := now.Format(models.DateLayout)
	for _, day := range s.history {
		if day.Date == date {
			return visualizer.BuildDayView(day, now, s.opts.Visualizer)
		}
	}
	weekend := now.Weekday() == time.Saturday || now.Weekday() == time.Sunday
	return visualizer.BuildDayView(models.AttendanceDayLog{
		Date:      date,
		IsWeekend: weekend,
		CheckIn:   models.Absent,
		CheckOut:  models.Absent,
	}, now, s.opts.Visualizer)
}

func (s *Screen) ensureLoaded(ctx context.Context) error {
	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()
	if loaded {
		return nil
	}
	return s.refresh(ctx)
}

// AttendanceLog returns one row per day, newest first.
func (s *Screen) AttendanceLog(ctx context.Context) ([]visualizer.DayView, error) {
	if err := s.refreshHistory(ctx); err != nil {
		return nil, err
	}
	now := s.opts.now()
	s.mu.RLock()
	history := append([]models.AttendanceDayLog(nil), s.history...)
	s.mu.RUnlock()

	sort.SliceStable(history, func(i, j int) bool { return history[i].Date > history[j].Date })
	rows := make([]visualizer.DayView, 0, len(history))
	for _, day := range history {
		rows = append(rows, visualizer.BuildDayView(day, now, s.opts.Visualizer))
	}
	return rows, nil
}
