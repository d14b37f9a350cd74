package portal

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"hrportal/portal-client/internal/geo"
	"hrportal/portal-client/internal/models"
	"hrportal/portal-client/internal/portalapi"
	"hrportal/portal-client/internal/visualizer"
)

type fakeAPI struct {
	statusFn   func(ctx context.Context, employeeID string) (models.ClockStatus, error)
	clockFn    func(ctx context.Context, req models.ClockRequest) error
	statsFn    func(ctx context.Context, employeeID string) (models.PersonalStats, error)
	historyFn  func(ctx context.Context, employeeID string) ([]models.AttendanceDayLog, error)
	holidaysFn func(ctx context.Context) ([]models.Holiday, error)
	historyHit *int32
}

func (f fakeAPI) GetStatus(ctx context.Context, employeeID string) (models.ClockStatus, error) {
	if f.statusFn == nil {
		out := models.StatusOut
		return models.ClockStatus{Status: &out, CanClock: true}, nil
	}
	return f.statusFn(ctx, employeeID)
}

func (f fakeAPI) Clock(ctx context.Context, req models.ClockRequest) error {
	if f.clockFn == nil {
		return nil
	}
	return f.clockFn(ctx, req)
}

func (f fakeAPI) GetPersonalStats(ctx context.Context, employeeID string) (models.PersonalStats, error) {
	if f.statsFn == nil {
		return models.PersonalStats{}, nil
	}
	return f.statsFn(ctx, employeeID)
}

func (f fakeAPI) GetHistory(ctx context.Context, employeeID string) ([]models.AttendanceDayLog, error) {
	if f.historyHit != nil {
		atomic.AddInt32(f.historyHit, 1)
	}
	if f.historyFn == nil {
		return nil, nil
	}
	return f.historyFn(ctx, employeeID)
}

func (f fakeAPI) GetHolidays(ctx context.Context) ([]models.Holiday, error) {
	if f.holidaysFn == nil {
		return nil, nil
	}
	return f.holidaysFn(ctx)
}

func (f fakeAPI) ListFeed(ctx context.Context) ([]models.FeedPost, error) {
	return []models.FeedPost{{ID: "p1", LikeCount: 1}}, nil
}

func (f fakeAPI) SetLike(ctx context.Context, postID string, liked bool) (models.LikeResult, error) {
	return models.LikeResult{Liked: liked, LikeCount: 2}, nil
}

func strPtr(value string) *string {
	return &value
}

var testNow = time.Date(2026, 3, 10, 11, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func testSession(id, employeeID string, expiresAt time.Time) models.PortalSession {
	return models.PortalSession{SessionID: id, EmployeeID: employeeID, Token: "tok-" + id, LoggedIn: true, ExpiresAt: expiresAt}
}

func newTestRegistry(t *testing.T, factory ClientFactory, opts Options) *Registry {
	t.Helper()
	registry := NewRegistry(factory, nil, opts)
	t.Cleanup(func() { _ = registry.Close(context.Background()) })
	return registry
}

func testOptions() Options {
	return Options{
		StatusInterval:    time.Hour,
		DashboardInterval: time.Hour,
		TickInterval:      time.Hour,
		SweepInterval:     time.Hour,
		Now:               func() time.Time { return testNow },
	}
}

func sampleHistory() []models.AttendanceDayLog {
	return []models.AttendanceDayLog{
		{
			Date:     "2026-03-09",
			Sessions: []models.Session{{In: strPtr("09:00 AM"), Out: strPtr("06:00 PM")}},
			CheckIn:  "09:00 AM",
			CheckOut: "06:00 PM",
		},
		{
			Date:     "2026-03-10",
			Sessions: []models.Session{{In: strPtr("09:30 AM"), Out: nil}},
			CheckIn:  "09:30 AM",
			CheckOut: "-",
		},
		{Date: "2026-03-08", IsWeekend: true, CheckIn: "-", CheckOut: "-"},
	}
}

func startScreen(t *testing.T, api fakeAPI) *Screen {
	t.Helper()
	screen := NewScreen("sess-1", "EMP-1", api, nil, testOptions())
	if err := screen.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(func() { _ = screen.Close(context.Background()) })
	return screen
}

func TestDashboardBuildsTodayAndCards(t *testing.T) {
	api := fakeAPI{
		historyFn: func(ctx context.Context, employeeID string) ([]models.AttendanceDayLog, error) {
			return sampleHistory(), nil
		},
		statsFn: func(ctx context.Context, employeeID string) (models.PersonalStats, error) {
			return models.PersonalStats{
				Week:         models.PeriodStats{Me: models.AverageStat{Avg: 7.5}},
				Month:        models.PeriodStats{Me: models.AverageStat{Avg: 8.25}},
				LastWeekDiff: -0.5,
			}, nil
		},
		holidaysFn: func(ctx context.Context) ([]models.Holiday, error) {
			return []models.Holiday{
				{Name: "Holi", RawDate: "2026-03-14"},
				{Name: "Past", RawDate: "2026-01-26"},
				{Name: "Today", RawDate: "2026-03-10", IsOptional: true},
				{Name: "Broken", RawDate: "soon"},
			}, nil
		},
	}
	screen := startScreen(t, api)

	dash, err := screen.Dashboard(context.Background())
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if dash.Status.Status.Current() != models.StatusOut || !dash.Status.ActionEnabled {
		t.Fatalf("status not loaded: %+v", dash.Status)
	}
	if dash.Today.Date != "2026-03-10" || !dash.Today.Open || dash.Today.Stats == nil {
		t.Fatalf("unexpected today view %+v", dash.Today)
	}
	if dash.Today.Stats.GrossMinutes != 90 || dash.Today.Stats.Arrival != visualizer.ArrivalLate {
		t.Fatalf("unexpected today stats %+v", dash.Today.Stats)
	}
	if dash.Stats.WeekAverage != "7h 30m" || dash.Stats.MonthAverage != "8h 15m" || dash.Stats.LastWeekDiff != "-0.5h" || dash.Stats.Trend != "down" {
		t.Fatalf("unexpected stats card %+v", dash.Stats)
	}
	if len(dash.Holidays) != 2 || dash.Holidays[0].Name != "Today" || dash.Holidays[1].DaysAway != 4 || dash.Holidays[1].Weekday != "Saturday" {
		t.Fatalf("unexpected holidays %+v", dash.Holidays)
	}
}

func TestDashboardWithoutTodayLog(t *testing.T) {
	screen := startScreen(t, fakeAPI{})
	dash, err := screen.Dashboard(context.Background())
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if dash.Today.Kind != visualizer.DayWorkable.String() || dash.Today.CheckIn != models.Absent {
		t.Fatalf("unexpected empty today %+v", dash.Today)
	}
}

func TestAttendanceLogNewestFirst(t *testing.T) {
	api := fakeAPI{historyFn: func(ctx context.Context, employeeID string) ([]models.AttendanceDayLog, error) {
		return sampleHistory(), nil
	}}
	screen := startScreen(t, api)

	rows, err := screen.AttendanceLog(context.Background())
	if err != nil {
		t.Fatalf("log: %v", err)
	}
	if len(rows) != 3 || rows[0].Date != "2026-03-10" || rows[2].Date != "2026-03-08" {
		t.Fatalf("unexpected order %+v", rows)
	}
	if rows[2].Label != "Full day Weekly-off" || rows[2].Segments != nil {
		t.Fatalf("weekly off row rendered segments: %+v", rows[2])
	}
}

func TestClockReloadsHistory(t *testing.T) {
	var hits int32
	var submitted models.ClockRequest
	api := fakeAPI{
		historyHit: &hits,
		clockFn: func(ctx context.Context, req models.ClockRequest) error {
			submitted = req
			return nil
		},
	}
	screen := startScreen(t, api)
	before := atomic.LoadInt32(&hits)

	requestID := "0b6c7d3e-5f1a-4e2b-8c9d-1a2b3c4d5e6f"
	snap, err := screen.Clock(context.Background(), requestID, geo.Reported{ErrorCode: geo.CodeTimeout})
	if err != nil {
		t.Fatalf("clock: %v", err)
	}
	if submitted.Location != "Location Request Timed Out" || submitted.RequestID != requestID {
		t.Fatalf("unexpected submission %+v", submitted)
	}
	if snap.Busy || snap.Error != "" {
		t.Fatalf("unexpected clock result %+v", snap)
	}
	if atomic.LoadInt32(&hits) != before+1 {
		t.Fatalf("history not reloaded after clock")
	}
}

func TestClockRefreshesStatus(t *testing.T) {
	var clocked atomic.Bool
	reason := "Shift already completed"
	api := fakeAPI{
		statusFn: func(ctx context.Context, employeeID string) (models.ClockStatus, error) {
			if clocked.Load() {
				in := models.StatusIn
				return models.ClockStatus{Status: &in, CanClock: false, DisabledReason: &reason}, nil
			}
			out := models.StatusOut
			return models.ClockStatus{Status: &out, CanClock: true}, nil
		},
		clockFn: func(ctx context.Context, req models.ClockRequest) error {
			clocked.Store(true)
			return nil
		},
	}
	screen := startScreen(t, api)

	snap, err := screen.Clock(context.Background(), "", nil)
	if err != nil {
		t.Fatalf("clock: %v", err)
	}
	if snap.Status.Current() != models.StatusIn || snap.Status.CanClock || snap.ActionEnabled {
		t.Fatalf("clock result kept the pre-action status: %+v", snap)
	}
	status := screen.Status()
	if status.Status.CanClock || status.ActionEnabled || status.Status.DisabledReason == nil || *status.Status.DisabledReason != reason {
		t.Fatalf("status not refreshed after clock: %+v", status)
	}
}

func TestTodayUsesConfiguredLocation(t *testing.T) {
	ist, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		t.Skipf("timezone data unavailable: %v", err)
	}
	api := fakeAPI{historyFn: func(ctx context.Context, employeeID string) ([]models.AttendanceDayLog, error) {
		return []models.AttendanceDayLog{{
			Date:     "2026-03-11",
			Sessions: []models.Session{{In: strPtr("09:00 AM"), Out: nil}},
			CheckIn:  "09:00 AM",
			CheckOut: "-",
		}}, nil
	}}
	opts := testOptions()
	opts.Location = ist
	opts.Now = func() time.Time { return time.Date(2026, 3, 11, 4, 0, 0, 0, time.UTC) }
	screen := NewScreen("sess-1", "EMP-1", api, nil, opts)
	if err := screen.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(func() { _ = screen.Close(context.Background()) })

	dash, err := screen.Dashboard(context.Background())
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if dash.Today.Date != "2026-03-11" || !dash.Today.Open || dash.Today.Stats == nil {
		t.Fatalf("today not computed in the configured zone: %+v", dash.Today)
	}
	if dash.Today.Stats.GrossMinutes != 30 {
		t.Fatalf("expected 30 minutes worked, got %d", dash.Today.Stats.GrossMinutes)
	}
}

func TestStartUnauthorized(t *testing.T) {
	api := fakeAPI{statusFn: func(ctx context.Context, employeeID string) (models.ClockStatus, error) {
		return models.ClockStatus{}, &portalapi.APIError{Status: http.StatusUnauthorized, Message: "token expired"}
	}}
	registry := newTestRegistry(t, func(token string) API { return api }, testOptions())

	if _, err := registry.Mount(context.Background(), testSession("sess-1", "EMP-1", testNow.Add(time.Hour))); !portalapi.IsUnauthorized(err) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if registry.Len() != 0 {
		t.Fatalf("failed mount left a screen behind")
	}
}

func TestRegistryLifecycle(t *testing.T) {
	var tokens []string
	registry := NewRegistry(func(token string) API {
		tokens = append(tokens, token)
		return fakeAPI{}
	}, nil, testOptions())
	ctx := context.Background()

	expiresAt := testNow.Add(time.Hour)

	first, err := registry.Mount(ctx, testSession("sess-1", "EMP-1", expiresAt))
	if err != nil {
		t.Fatalf("mount: %v", err)
	}
	again, err := registry.Mount(ctx, testSession("sess-1", "EMP-1", expiresAt))
	if err != nil || again != first || len(tokens) != 1 {
		t.Fatalf("mount not idempotent")
	}
	if _, err := registry.Mount(ctx, testSession("sess-2", "EMP-2", expiresAt)); err != nil {
		t.Fatalf("mount second: %v", err)
	}

	if err := registry.Unmount(ctx, "sess-1"); err != nil {
		t.Fatalf("unmount: %v", err)
	}
	if _, ok := registry.Get("sess-1"); ok {
		t.Fatalf("screen still mounted")
	}
	if _, err := first.Clock(ctx, "", nil); err == nil {
		t.Fatalf("unmounted screen accepted a clock action")
	}

	if err := registry.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}
	if registry.Len() != 0 {
		t.Fatalf("close left screens mounted")
	}
	if err := registry.Unmount(ctx, "unknown"); err != nil {
		t.Fatalf("unmount unknown: %v", err)
	}
}

func TestSweepUnmountsExpiredAndIdleScreens(t *testing.T) {
	clk := &fakeClock{now: testNow}
	opts := testOptions()
	opts.Now = clk.Now
	opts.IdleTimeout = 3 * time.Hour
	registry := newTestRegistry(t, func(token string) API { return fakeAPI{} }, opts)
	ctx := context.Background()
	expired := screensExpired.Value()

	if _, err := registry.Mount(ctx, testSession("short", "EMP-1", testNow.Add(time.Hour))); err != nil {
		t.Fatalf("mount short: %v", err)
	}
	if _, err := registry.Mount(ctx, testSession("long", "EMP-2", testNow.Add(24*time.Hour))); err != nil {
		t.Fatalf("mount long: %v", err)
	}
	if n := registry.Sweep(ctx); n != 0 {
		t.Fatalf("swept %d live screens", n)
	}

	clk.Advance(2 * time.Hour)
	if n := registry.Sweep(ctx); n != 1 {
		t.Fatalf("expected the expired screen to be swept, got %d", n)
	}
	if _, ok := registry.Get("short"); ok {
		t.Fatalf("expired screen still mounted")
	}
	if _, err := registry.Mount(ctx, testSession("long", "EMP-2", testNow.Add(24*time.Hour))); err != nil {
		t.Fatalf("remount long: %v", err)
	}

	clk.Advance(2 * time.Hour)
	if n := registry.Sweep(ctx); n != 0 {
		t.Fatalf("touched screen swept as idle")
	}
	clk.Advance(90 * time.Minute)
	if n := registry.Sweep(ctx); n != 1 || registry.Len() != 0 {
		t.Fatalf("idle screen not swept, %d left", registry.Len())
	}
	if got := screensExpired.Value() - expired; got != 2 {
		t.Fatalf("expected 2 expired screens counted, got %d", got)
	}
}

func TestUnauthorizedPollRevokesScreen(t *testing.T) {
	var revoked atomic.Bool
	api := fakeAPI{statusFn: func(ctx context.Context, employeeID string) (models.ClockStatus, error) {
		if revoked.Load() {
			return models.ClockStatus{}, &portalapi.APIError{Status: http.StatusUnauthorized, Message: "token revoked"}
		}
		out := models.StatusOut
		return models.ClockStatus{Status: &out, CanClock: true}, nil
	}}
	registry := newTestRegistry(t, func(token string) API { return api }, testOptions())
	ctx := context.Background()

	screen, err := registry.Mount(ctx, testSession("sess-1", "EMP-1", testNow.Add(time.Hour)))
	if err != nil {
		t.Fatalf("mount: %v", err)
	}
	revoked.Store(true)
	screen.pollStatus(ctx)
	if reason := screen.Stale(testNow); reason != "revoked" {
		t.Fatalf("expected revoked screen, got %q", reason)
	}

	if _, err := registry.Mount(ctx, testSession("sess-1", "EMP-1", testNow.Add(time.Hour))); !portalapi.IsUnauthorized(err) {
		t.Fatalf("revoked screen reused: %v", err)
	}
	if registry.Len() != 0 {
		t.Fatalf("revoked screen still mounted")
	}
	if _, err := screen.Clock(ctx, "", nil); err == nil {
		t.Fatalf("revoked screen accepted a clock action")
	}
}

func TestFeedThroughScreen(t *testing.T) {
	screen := startScreen(t, fakeAPI{})
	posts, err := screen.Feed(context.Background())
	if err != nil || len(posts) != 1 {
		t.Fatalf("feed: %v %v", posts, err)
	}
	result, err := screen.ToggleLike(context.Background(), "p1")
	if err != nil || !result.Liked || result.LikeCount != 2 {
		t.Fatalf("like: %+v %v", result, err)
	}
	if _, err := screen.ToggleLike(context.Background(), "nope"); err == nil {
		t.Fatalf("expected error for unknown post")
	}
}

func TestBuildStatsCardFlat(t *testing.T) {
	card := BuildStatsCard(models.PersonalStats{LastWeekDiff: 0.01})
	if card.Trend != "flat" || card.LastWeekDiff != "+0.0h" || card.WeekAverage != "0h 00m" {
		t.Fatalf("unexpected card %+v", card)
	}
	if up := BuildStatsCard(models.PersonalStats{LastWeekDiff: 1.25}); up.LastWeekDiff != "+1.2h" && up.LastWeekDiff != "+1.3h" {
		t.Fatalf("unexpected diff %s", up.LastWeekDiff)
	}
}
