package visualizer

import (
	"fmt"
	"time"

	"hrportal/portal-client/internal/models"
)

type DayView struct {
	Date           string    `json:"date"`
	Kind           string    `json:"kind"`
	Label          string    `json:"label,omitempty"`
	CheckIn        string    `json:"check_in"`
	CheckOut       string    `json:"check_out"`
	Open           bool      `json:"open"`
	MissedCheckout bool      `json:"missed_checkout"`
	Segments       []Segment `json:"segments,omitempty"`
	Stats          *Stats    `json:"stats,omitempty"`
}

// BuildDayView renders one log row. Non-workable days get only their label.
func BuildDayView(log models.AttendanceDayLog, now time.Time, opts Options) DayView {
	kind := Classify(log, now)
	view := DayView{
		Date:           log.Date,
		Kind:           kind.String(),
		Label:          kind.Label(),
		CheckIn:        displayClock(log.CheckIn),
		CheckOut:       displayClock(log.CheckOut),
		Open:           log.Open(),
		MissedCheckout: MissedCheckout(log, now),
	}
	if kind != DayWorkable {
		return view
	}

	if beforeToday(log.Date, now) {
		log = withoutOpenSession(log)
	}
	stats := ComputeStats(log, now, opts)
	view.Stats = &stats
	view.Segments = ComputeSegments(log, now, stats.EffectiveProgress)
	return view
}

// withoutOpenSession drops a past day's unclosed session; the wall clock says nothing
// about when that day ended.
func withoutOpenSession(log models.AttendanceDayLog) models.AttendanceDayLog {
	if !log.Open() {
		return log
	}
	trimmed := log
	trimmed.Sessions = log.Sessions[:len(log.Sessions)-1]
	return trimmed
}

func displayClock(value string) string {
	if value == "" {
		return models.Absent
	}
	return value
}

func FormatMinutes(minutes int) string {
	if minutes < 0 {
		minutes = 0
	}
	return fmt.Sprintf("%dh %02dm", minutes/60, minutes%60)
}
