package models

type Session struct {
	In  *string `json:"in"`
	Out *string `json:"out"`
}

type AttendanceDayLog struct {
	Date      string    `json:"date"`
	Sessions  []Session `json:"sessions"`
	IsHoliday bool      `json:"isHoliday"`
	IsWeekend bool      `json:"isWeekend"`
	CheckIn   string    `json:"checkIn"`
	CheckOut  string    `json:"checkOut"`
}

// Absent is the sentinel the remote API uses for a missing check-in or check-out.
const Absent = "-"

const DateLayout = "2006-01-02"

func (l AttendanceDayLog) HasCheckIn() bool {
	return l.CheckIn != "" && l.CheckIn != Absent
}

func (l AttendanceDayLog) HasCheckOut() bool {
	return l.CheckOut != "" && l.CheckOut != Absent
}

// Open reports whether the last session has no check-out yet.
func (l AttendanceDayLog) Open() bool {
	if len(l.Sessions) == 0 {
		return false
	}
	return l.Sessions[len(l.Sessions)-1].Out == nil
}
