package models

import "time"

type Holiday struct {
	Name       string `json:"name"`
	RawDate    string `json:"raw_date"`
	IsOptional bool   `json:"is_optional"`
}

type AverageStat struct {
	Avg float64 `json:"avg"`
}

type PeriodStats struct {
	Me AverageStat `json:"me"`
}

// PersonalStats averages are hours worked per day.
type PersonalStats struct {
	Week         PeriodStats `json:"week"`
	Month        PeriodStats `json:"month"`
	LastWeekDiff float64     `json:"lastWeekDiff"`
}

type FeedPost struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	Body      string    `json:"body"`
	Liked     bool      `json:"liked"`
	LikeCount int       `json:"like_count"`
	CreatedAt time.Time `json:"created_at"`
}

type LikeResult struct {
	Liked     bool `json:"liked"`
	LikeCount int  `json:"like_count"`
}

type PortalSession struct {
	SessionID  string    `json:"session_id"`
	EmployeeID string    `json:"employee_id"`
	Token      string    `json:"-"`
	LoggedIn   bool      `json:"logged_in"`
	ExpiresAt  time.Time `json:"expires_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
