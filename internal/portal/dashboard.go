package portal

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"hrportal/portal-client/internal/clock"
	"hrportal/portal-client/internal/models"
	"hrportal/portal-client/internal/visualizer"
)

const dashboardHolidayLimit = 5

type StatsCard struct {
	WeekAverage  string  `json:"week_average"`
	MonthAverage string  `json:"month_average"`
	LastWeekDiff string  `json:"last_week_diff"`
	Trend        string  `json:"trend"`
	WeekHours    float64 `json:"week_hours"`
	MonthHours   float64 `json:"month_hours"`
}

type UpcomingHoliday struct {
	Name       string `json:"name"`
	Date       string `json:"date"`
	Weekday    string `json:"weekday"`
	IsOptional bool   `json:"is_optional"`
	DaysAway   int    `json:"days_away"`
}

type Dashboard struct {
	EmployeeID  string             `json:"employee_id"`
	Status      clock.Snapshot     `json:"status"`
	Today       visualizer.DayView `json:"today"`
	Stats       StatsCard          `json:"stats"`
	Holidays    []UpcomingHoliday  `json:"holidays"`
	RefreshedAt time.Time          `json:"refreshed_at"`
}

func (s *Screen) Dashboard(ctx context.Context) (Dashboard, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return Dashboard{}, err
	}
	now := s.opts.now()
	s.mu.RLock()
	defer s.mu.RUnlock()

	holidays := UpcomingHolidays(s.holidays, now)
	if len(holidays) > dashboardHolidayLimit {
		holidays = holidays[:dashboardHolidayLimit]
	}
	return Dashboard{
		EmployeeID:  s.employeeID,
		Status:      s.controller.Snapshot(),
		Today:       s.today,
		Stats:       BuildStatsCard(s.stats),
		Holidays:    holidays,
		RefreshedAt: s.refreshed,
	}, nil
}

// Holidays returns every holiday from today on, reloading the calendar.
func (s *Screen) Holidays(ctx context.Context) ([]UpcomingHoliday, error) {
	holidays, err := s.api.GetHolidays(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.holidays = holidays
	s.mu.Unlock()
	return UpcomingHolidays(holidays, s.opts.now()), nil
}

// UpcomingHolidays keeps holidays dated today or later, sorted by date. Entries
// with an unparseable date are dropped.
func UpcomingHolidays(holidays []models.Holiday, now time.Time) []UpcomingHoliday {
	today, _ := time.ParseInLocation(models.DateLayout, now.Format(models.DateLayout), now.Location())
	type dated struct {
		holiday models.Holiday
		date    time.Time
	}
	var upcoming []dated
	for _, h := range holidays {
		date, err := time.ParseInLocation(models.DateLayout, h.RawDate, now.Location())
		if err != nil || date.Before(today) {
			continue
		}
		upcoming = append(upcoming, dated{holiday: h, date: date})
	}
	sort.SliceStable(upcoming, func(i, j int) bool { return upcoming[i].date.Before(upcoming[j].date) })

	out := make([]UpcomingHoliday, 0, len(upcoming))
	for _, u := range upcoming {
		out = append(out, UpcomingHoliday{
			Name:       u.holiday.Name,
			Date:       u.holiday.RawDate,
			Weekday:    u.date.Weekday().String(),
			IsOptional: u.holiday.IsOptional,
			DaysAway:   int(math.Round(u.date.Sub(today).Hours() / 24)),
		})
	}
	return out
}

// BuildStatsCard formats the personal averages, given in hours per day.
func BuildStatsCard(stats models.PersonalStats) StatsCard {
	card := StatsCard{
		WeekAverage:  visualizer.FormatMinutes(hoursToMinutes(stats.Week.Me.Avg)),
		MonthAverage: visualizer.FormatMinutes(hoursToMinutes(stats.Month.Me.Avg)),
		LastWeekDiff: fmt.Sprintf("%+.1fh", stats.LastWeekDiff),
		WeekHours:    stats.Week.Me.Avg,
		MonthHours:   stats.Month.Me.Avg,
		Trend:        "flat",
	}
	switch {
	case stats.LastWeekDiff > 0.05:
		card.Trend = "up"
	case stats.LastWeekDiff < -0.05:
		card.Trend = "down"
	default:
		card.LastWeekDiff = "+0.0h"
	}
	return card
}

func hoursToMinutes(hours float64) int {
	return int(math.Round(hours * 60))
}
