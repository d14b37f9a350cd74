package visualizer

import (
	"time"

	"hrportal/portal-client/internal/models"
)

const (
	ArrivalLate    = "Late"
	ArrivalEarly   = "Early"
	ArrivalOnTime  = "On Time"
	ArrivalUnknown = "-"
)

type Options struct {
	ExpectedMinutes   int
	ShiftStartMinutes int
	LateGraceMinutes  int
}

func DefaultOptions() Options {
	return Options{
		ExpectedMinutes:   9 * 60,
		ShiftStartMinutes: 9 * 60,
		LateGraceMinutes:  15,
	}
}

type Stats struct {
	GrossMinutes      int     `json:"gross_minutes"`
	BreakMinutes      int     `json:"break_minutes"`
	EffectiveMinutes  int     `json:"effective_minutes"`
	Gross             string  `json:"gross"`
	Effective         string  `json:"effective"`
	Arrival           string  `json:"arrival"`
	ArrivalColor      string  `json:"arrival_color"`
	EffectiveProgress float64 `json:"effective_progress"`
}

func ComputeStats(log models.AttendanceDayLog, now time.Time, opts Options) Stats {
	var gross, breaks int
	firstIn, hasFirstIn := 0, false

	spans := resolveSpans(log.Sessions, now)
	if len(spans) > 0 {
		firstIn, hasFirstIn = spans[0].in, true
		gross = spans[len(spans)-1].out - spans[0].in
		for i := 1; i < len(spans); i++ {
			if gap := spans[i].in - spans[i-1].out; gap > 0 {
				breaks += gap
			}
		}
	} else if len(log.Sessions) == 0 {
		in, inOK := ParseClockTime(log.CheckIn)
		out, outOK := ParseClockTime(log.CheckOut)
		if inOK {
			firstIn, hasFirstIn = in, true
		}
		if inOK && outOK {
			gross = out - in
		}
	}
	if gross < 0 {
		gross = 0
	}
	effective := gross - breaks
	if effective < 0 {
		effective = 0
	}

	arrival := arrivalStatus(firstIn, hasFirstIn, opts)
	progress := 0.0
	if opts.ExpectedMinutes > 0 {
		progress = clampPercent(percentOf(effective, opts.ExpectedMinutes))
	}

	return Stats{
		GrossMinutes:      gross,
		BreakMinutes:      breaks,
		EffectiveMinutes:  effective,
		Gross:             FormatMinutes(gross),
		Effective:         FormatMinutes(effective),
		Arrival:           arrival,
		ArrivalColor:      ArrivalColor(arrival),
		EffectiveProgress: progress,
	}
}

func arrivalStatus(firstIn int, ok bool, opts Options) string {
	if !ok {
		return ArrivalUnknown
	}
	switch {
	case firstIn > opts.ShiftStartMinutes+opts.LateGraceMinutes:
		return ArrivalLate
	case firstIn < opts.ShiftStartMinutes:
		return ArrivalEarly
	default:
		return ArrivalOnTime
	}
}

func ArrivalColor(arrival string) string {
	switch arrival {
	case ArrivalLate:
		return "text-red-500"
	case ArrivalEarly:
		return "text-blue-500"
	case ArrivalOnTime:
		return "text-green-500"
	default:
		return "text-gray-400"
	}
}
