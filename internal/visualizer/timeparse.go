package visualizer

import (
	"strconv"
	"strings"
	"time"

	"hrportal/portal-client/internal/models"
)

// ParseClockTime converts "hh:mm AM/PM" into minutes since midnight.
// The "-" sentinel and anything malformed report ok=false, never zero.
func ParseClockTime(value string) (int, bool) {
	value = strings.TrimSpace(value)
	if value == "" || value == models.Absent {
		return 0, false
	}
	parts := strings.Fields(value)
	if len(parts) != 2 {
		return 0, false
	}
	clock := strings.Split(parts[0], ":")
	if len(clock) < 2 || len(clock) > 3 {
		return 0, false
	}
	hour, err := strconv.Atoi(clock[0])
	if err != nil || hour < 1 || hour > 12 {
		return 0, false
	}
	minute, err := strconv.Atoi(clock[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, false
	}

	switch strings.ToUpper(parts[1]) {
	case "AM":
		if hour == 12 {
			hour = 0
		}
	case "PM":
		if hour != 12 {
			hour += 12
		}
	default:
		return 0, false
	}
	return hour*60 + minute, true
}

func parseClockPtr(value *string) (int, bool) {
	if value == nil {
		return 0, false
	}
	return ParseClockTime(*value)
}

func minutesOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}
