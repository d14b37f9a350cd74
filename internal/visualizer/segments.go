package visualizer

import (
	"time"

	"hrportal/portal-client/internal/models"
)

const (
	SegmentWork  = "work"
	SegmentBreak = "break"
)

type Segment struct {
	Type     string  `json:"type"`
	WidthPct float64 `json:"width_pct"`
}

type span struct {
	in  int
	out int
}

// resolveSpans keeps the sessions whose bounds parse. Only the last session may be
// open; its end is now.
func resolveSpans(sessions []models.Session, now time.Time) []span {
	spans := make([]span, 0, len(sessions))
	for i, session := range sessions {
		in, ok := parseClockPtr(session.In)
		if !ok {
			continue
		}
		var out int
		if session.Out == nil {
			if i != len(sessions)-1 {
				continue
			}
			out = minutesOfDay(now)
		} else {
			out, ok = parseClockPtr(session.Out)
			if !ok {
				continue
			}
		}
		spans = append(spans, span{in: in, out: out})
	}
	return spans
}

// ComputeSegments turns a day's sessions into proportional work and break segments.
// Without sessions it falls back to one work segment at effectiveProgress.
func ComputeSegments(log models.AttendanceDayLog, now time.Time, effectiveProgress float64) []Segment {
	if len(log.Sessions) == 0 {
		return []Segment{{Type: SegmentWork, WidthPct: clampPercent(effectiveProgress)}}
	}

	spans := resolveSpans(log.Sessions, now)
	if len(spans) == 0 {
		return nil
	}

	start := spans[0].in
	end := spans[len(spans)-1].out
	totalSpan := end - start
	if totalSpan < 1 {
		totalSpan = 1
	}

	segments := make([]Segment, 0, len(spans)*2)
	for i, s := range spans {
		if i > 0 {
			gap := s.in - spans[i-1].out
			if gap > 0 {
				segments = append(segments, Segment{Type: SegmentBreak, WidthPct: percentOf(gap, totalSpan)})
			}
		}
		duration := s.out - s.in
		if duration <= 0 {
			continue
		}
		segments = append(segments, Segment{Type: SegmentWork, WidthPct: percentOf(duration, totalSpan)})
	}
	return segments
}

func percentOf(part, total int) float64 {
	return float64(part) / float64(total) * 100
}

func clampPercent(value float64) float64 {
	if value < 0 {
		return 0
	}
	if value > 100 {
		return 100
	}
	return value
}
