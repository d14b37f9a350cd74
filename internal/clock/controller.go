package clock

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"hrportal/portal-client/internal/geo"
	"hrportal/portal-client/internal/models"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const DefaultClearDelay = 5 * time.Second

type API interface {
	GetStatus(ctx context.Context, employeeID string) (models.ClockStatus, error)
	Clock(ctx context.Context, req models.ClockRequest) error
}

type Timer interface {
	Stop() bool
}

type AfterFunc func(d time.Duration, f func()) Timer

type Options struct {
	ClearDelay time.Duration
	AfterFunc  AfterFunc
}

// Controller drives one employee's clock-in/clock-out action. At most one
// submission is outstanding at a time.
type Controller struct {
	employeeID string
	api        API
	geocoder   geo.Geocoder
	clearDelay time.Duration
	afterFunc  AfterFunc
	tracer     trace.Tracer

	mu         sync.Mutex
	status     models.ClockStatus
	phase      string
	location   models.LocationResolution
	lastError  string
	generation uint64
	clearTimer Timer
	clearSeq   uint64
	closed     bool
}

type Snapshot struct {
	Status        models.ClockStatus        `json:"status"`
	Loading       bool                      `json:"loading"`
	Phase         string                    `json:"phase"`
	Busy          bool                      `json:"busy"`
	ActionEnabled bool                      `json:"action_enabled"`
	ActionLabel   string                    `json:"action_label,omitempty"`
	Location      models.LocationResolution `json:"location"`
	Error         string                    `json:"error,omitempty"`
}

func NewController(employeeID string, api API, geocoder geo.Geocoder, opts Options) *Controller {
	delay := opts.ClearDelay
	if delay <= 0 {
		delay = DefaultClearDelay
	}
	after := opts.AfterFunc
	if after == nil {
		after = func(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }
	}
	return &Controller{
		employeeID: employeeID,
		api:        api,
		geocoder:   geocoder,
		clearDelay: delay,
		afterFunc:  after,
		tracer:     otel.Tracer("hrportal/portal-client/clock"),
		phase:      PhaseIdle,
		location:   models.LocationResolution{State: models.LocationIdle},
	}
}

func (c *Controller) EmployeeID() string {
	return c.employeeID
}

func (c *Controller) Toggle(ctx context.Context, locator geo.Locator) (Snapshot, error) {
	return c.ToggleRequest(ctx, "", locator)
}

// ToggleRequest runs Locating, Resolving and Submitting in order. Location problems
// only degrade the submitted text; a failed submission leaves the status untouched.
// requestID is forwarded to the HR API; an empty one is generated.
func (c *Controller) ToggleRequest(ctx context.Context, requestID string, locator geo.Locator) (Snapshot, error) {
	if requestID == "" {
		requestID = uuid.NewString()
	}
	ctx, span := c.tracer.Start(ctx, "clock.toggle", trace.WithAttributes(
		attribute.String("employee.id", c.employeeID),
		attribute.String("request.id", requestID),
	))
	defer span.End()

	c.mu.Lock()
	switch {
	case c.closed:
		c.mu.Unlock()
		return Snapshot{}, ErrClosed
	case busyPhase(c.phase):
		snap := c.snapshotLocked()
		c.mu.Unlock()
		return snap, ErrBusy
	case !c.status.Loaded():
		snap := c.snapshotLocked()
		c.mu.Unlock()
		return snap, ErrStatusNotLoaded
	case !c.status.CanClock:
		snap := c.snapshotLocked()
		c.mu.Unlock()
		return snap, ErrClockDisabled
	}
	current := c.status.Current()
	c.setPhaseLocked(PhaseLocating)
	c.stopClearLocked()
	c.lastError = ""
	c.location = models.LocationResolution{State: models.LocationLocating}
	c.mu.Unlock()

	text, raw := c.resolveLocation(ctx, locator)

	target := models.Inverse(current)
	span.SetAttributes(attribute.String("clock.type", target))
	c.mu.Lock()
	c.setPhaseLocked(PhaseSubmitting)
	c.mu.Unlock()

	err := c.api.Clock(ctx, models.ClockRequest{
		RequestID:  requestID,
		EmployeeID: c.employeeID,
		Location:   text,
		Type:       target,
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	c.location.Raw = raw
	c.location.DisplayText = &text
	if err != nil {
		log.Printf("clock submit error employee=%s type=%s request_id=%s: %v", c.employeeID, target, requestID, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "clock submission failed")
		c.setPhaseLocked(PhaseError)
		c.lastError = fmt.Sprintf("Could not clock %s. Please try again.", strings.ToLower(target))
		c.scheduleClearLocked()
		return c.snapshotLocked(), fmt.Errorf("%w: %v", ErrSubmitFailed, err)
	}

	c.status.Status = &target
	c.generation++
	c.setPhaseLocked(PhaseIdle)
	c.scheduleClearLocked()
	log.Printf("clock submitted employee=%s type=%s request_id=%s location=%q", c.employeeID, target, requestID, text)
	return c.snapshotLocked(), nil
}

func (c *Controller) resolveLocation(ctx context.Context, locator geo.Locator) (string, *models.Coordinates) {
	if locator == nil {
		locator = geo.Reported{}
	}
	pos, err := locator.Locate(ctx)
	if err != nil {
		log.Printf("clock location fallback employee=%s: %v", c.employeeID, err)
		c.mu.Lock()
		c.location.State = models.LocationError
		c.mu.Unlock()
		return geo.Placeholder(err), nil
	}

	raw := &models.Coordinates{Latitude: pos.Latitude, Longitude: pos.Longitude}
	c.mu.Lock()
	c.setPhaseLocked(PhaseResolving)
	c.location.Raw = raw
	c.mu.Unlock()

	text := geo.FormatCoordinates(pos)
	if c.geocoder != nil {
		addr, err := c.geocoder.Reverse(ctx, pos)
		if err != nil {
			log.Printf("reverse geocode fallback employee=%s: %v", c.employeeID, err)
		} else if short := addr.ShortText(); short != "" {
			text = short
		}
	}

	c.mu.Lock()
	c.location.State = models.LocationResolved
	c.mu.Unlock()
	return text, raw
}

// Generation counts confirmed local status mutations.
func (c *Controller) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

// ApplyStatus stores a polled status unless a local mutation happened after the poll
// was issued or a clock action is in flight.
func (c *Controller) ApplyStatus(observed models.ClockStatus, issuedAt uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || busyPhase(c.phase) || c.generation != issuedAt {
		return false
	}
	c.status = observed
	return true
}

func (c *Controller) RefreshStatus(ctx context.Context) error {
	issuedAt := c.Generation()
	status, err := c.api.GetStatus(ctx, c.employeeID)
	if err != nil {
		return err
	}
	if !c.ApplyStatus(status, issuedAt) {
		log.Printf("status refresh discarded employee=%s", c.employeeID)
	}
	return nil
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Close cancels the pending location clear. The controller refuses new actions.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.stopClearLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	busy := busyPhase(c.phase)
	snap := Snapshot{
		Status:        c.status,
		Loading:       !c.status.Loaded(),
		Phase:         c.phase,
		Busy:          busy,
		ActionEnabled: c.status.Loaded() && c.status.CanClock && !busy && !c.closed,
		Location:      c.location,
		Error:         c.lastError,
	}
	switch c.status.Current() {
	case models.StatusIn:
		snap.ActionLabel = "Clock Out"
	case models.StatusOut:
		snap.ActionLabel = "Clock In"
	}
	return snap
}

func (c *Controller) setPhaseLocked(next string) {
	if !ValidTransition(next, c.phase) {
		log.Printf("clock phase transition %s -> %s not in table employee=%s", c.phase, next, c.employeeID)
	}
	c.phase = next
}

func (c *Controller) scheduleClearLocked() {
	c.stopClearLocked()
	if c.closed {
		return
	}
	seq := c.clearSeq
	c.clearTimer = c.afterFunc(c.clearDelay, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.clearSeq != seq {
			return
		}
		c.clearTimer = nil
		c.location = models.LocationResolution{State: models.LocationIdle}
	})
}

func (c *Controller) stopClearLocked() {
	c.clearSeq++
	if c.clearTimer != nil {
		c.clearTimer.Stop()
		c.clearTimer = nil
	}
}
