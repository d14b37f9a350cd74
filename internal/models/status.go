package models

const (
	StatusIn  = "IN"
	StatusOut = "OUT"
)

// ClockStatus is the per-employee clock state. A nil Status means not loaded yet.
type ClockStatus struct {
	Status         *string `json:"status"`
	CanClock       bool    `json:"can_clock"`
	DisabledReason *string `json:"disabled_reason"`
}

func (s ClockStatus) Loaded() bool {
	return s.Status != nil
}

func (s ClockStatus) Current() string {
	if s.Status == nil {
		return ""
	}
	return *s.Status
}

func Inverse(status string) string {
	if status == StatusIn {
		return StatusOut
	}
	return StatusIn
}

// ClockRequest is sent to the HR API. RequestID lets the API drop a replayed
// submission.
type ClockRequest struct {
	RequestID  string `json:"request_id,omitempty"`
	EmployeeID string `json:"employee_id"`
	Location   string `json:"location"`
	Type       string `json:"type"`
}

const (
	LocationIdle     = "idle"
	LocationLocating = "locating"
	LocationResolved = "resolved"
	LocationError    = "error"
)

type Coordinates struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
}

type LocationResolution struct {
	Raw         *Coordinates `json:"raw,omitempty"`
	DisplayText *string      `json:"display_text"`
	State       string       `json:"state"`
}
