package routing

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidTimeRange = errors.New("time range must be HH:MM-HH:MM")

// TimeRange is a half-open window [Start, End) in minutes after midnight.
// When Start > End the window wraps past midnight.
type TimeRange struct {
	Start int
	End   int
}

// Contains reports whether minute m falls inside the window. An empty window
// (Start == End) contains nothing.
func (r TimeRange) Contains(m int) bool {
	switch {
	case r.Start < r.End:
		return m >= r.Start && m < r.End
	case r.Start > r.End:
		return m >= r.Start || m < r.End
	}
	return false
}

func (r TimeRange) String() string {
	return fmt.Sprintf("%02d:%02d-%02d:%02d", r.Start/60, r.Start%60, r.End/60, r.End%60)
}

// ParseTimeRange parses "HH:MM-HH:MM".
func ParseTimeRange(value string) (TimeRange, error) {
	parts := strings.Split(value, "-")
	if len(parts) != 2 {
		return TimeRange{}, ErrInvalidTimeRange
	}
	start, err := ParseClock(strings.TrimSpace(parts[0]))
	if err != nil {
		return TimeRange{}, err
	}
	end, err := ParseClock(strings.TrimSpace(parts[1]))
	if err != nil {
		return TimeRange{}, err
	}
	return TimeRange{Start: start, End: end}, nil
}

// ParseClock parses a 24h "HH:MM" (or "H:MM") clock reading into minutes after midnight.
func ParseClock(s string) (int, error) {
	h, m, ok := strings.Cut(s, ":")
	if !ok || len(h) < 1 || len(h) > 2 || len(m) != 2 {
		return 0, fmt.Errorf("%w: bad clock %q", ErrInvalidTimeRange, s)
	}
	hour, ok1 := atoi(h)
	minute, ok2 := atoi(m)
	if !ok1 || !ok2 || hour > 23 || minute > 59 {
		return 0, fmt.Errorf("%w: bad clock %q", ErrInvalidTimeRange, s)
	}
	return hour*60 + minute, nil
}

func atoi(s string) (int, bool) {
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}
