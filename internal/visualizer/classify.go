package visualizer

import (
	"time"

	"hrportal/portal-client/internal/models"
)

type DayKind int

const (
	DayWorkable DayKind = iota
	DayHoliday
	DayWeeklyOff
	DayAbsent
)

func (k DayKind) String() string {
	switch k {
	case DayHoliday:
		return "holiday"
	case DayWeeklyOff:
		return "weekly_off"
	case DayAbsent:
		return "absent"
	default:
		return "workable"
	}
}

func (k DayKind) Label() string {
	switch k {
	case DayHoliday:
		return "Full day Holiday"
	case DayWeeklyOff:
		return "Full day Weekly-off"
	case DayAbsent:
		return "Absent"
	default:
		return ""
	}
}

// Classify applies holiday > weekend > absent. Today is never absent.
func Classify(log models.AttendanceDayLog, today time.Time) DayKind {
	if log.IsHoliday {
		return DayHoliday
	}
	if log.IsWeekend {
		return DayWeeklyOff
	}
	if !hasCheckIn(log) && beforeToday(log.Date, today) {
		return DayAbsent
	}
	return DayWorkable
}

// MissedCheckout flags a past day that was checked into but never checked out of.
func MissedCheckout(log models.AttendanceDayLog, today time.Time) bool {
	return log.HasCheckIn() && !log.HasCheckOut() && beforeToday(log.Date, today)
}

func hasCheckIn(log models.AttendanceDayLog) bool {
	if log.HasCheckIn() {
		if _, ok := ParseClockTime(log.CheckIn); ok {
			return true
		}
	}
	for _, session := range log.Sessions {
		if _, ok := parseClockPtr(session.In); ok {
			return true
		}
	}
	return false
}

// beforeToday is false for dates that do not parse, so bad data is never marked absent.
func beforeToday(date string, today time.Time) bool {
	day, err := time.ParseInLocation(models.DateLayout, date, today.Location())
	if err != nil {
		return false
	}
	y, m, d := today.Date()
	return day.Before(time.Date(y, m, d, 0, 0, 0, 0, today.Location()))
}
