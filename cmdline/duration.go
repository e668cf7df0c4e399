package cmdline

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

var errInvalidDuration = errors.New("invalid duration")

// parseDuration accepts Go duration syntax ("1h30m"), colon forms ("MM:SS",
// "HH:MM:SS"), calendar units ("2d", "1w", "3M", "1Y") and spelled-out
// units ("3 sec", "2 minutes").
func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errInvalidDuration
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}
	if colons := strings.Count(s, ":"); colons > 0 {
		return parseColonDuration(s, colons)
	}
	if d, ok := parseCalendarDuration(s); ok {
		return d, nil
	}
	return parseSpelledDuration(s)
}

func parseColonDuration(s string, colons int) (time.Duration, error) {
	parts := strings.Split(s, ":")
	units := []time.Duration{time.Minute, time.Second}
	switch colons {
	case 1:
	case 2:
		units = []time.Duration{time.Hour, time.Minute, time.Second}
	default:
		return 0, errInvalidDuration
	}

	var total time.Duration
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return 0, errInvalidDuration
		}
		total += time.Duration(n) * units[i]
	}
	return total, nil
}

// parseCalendarDuration handles d, w, M and Y suffixes. A lower-case m is a
// minute and is left to the other parsers.
func parseCalendarDuration(s string) (time.Duration, bool) {
	if len(s) < 2 {
		return 0, false
	}

	const day = 24 * time.Hour
	var unit time.Duration
	switch s[len(s)-1] {
	case 'd', 'D':
		unit = day
	case 'w', 'W':
		unit = 7 * day
	case 'M':
		unit = 30 * day
	case 'y', 'Y':
		unit = 365 * day
	default:
		return 0, false
	}

	n, err := strconv.Atoi(s[:len(s)-1])
	if err != nil || n < 0 {
		return 0, false
	}
	return time.Duration(n) * unit, true
}

var spelledUnits = []struct {
	words []string
	unit  time.Duration
}{
	{[]string{"nanoseconds", "nanosecond", "ns"}, time.Nanosecond},
	{[]string{"microseconds", "microsecond", "us", "µs", "μs"}, time.Microsecond},
	{[]string{"milliseconds", "millisecond", "ms"}, time.Millisecond},
	{[]string{"seconds", "second", "secs", "sec", "s"}, time.Second},
	{[]string{"minutes", "minute", "mins", "min", "m"}, time.Minute},
	{[]string{"hours", "hour", "h"}, time.Hour},
}

// parseSpelledDuration parses sequences of "<number> <unit>" pairs where
// whitespace between number and unit is optional, such as "1 hour 30 min".
func parseSpelledDuration(s string) (time.Duration, error) {
	var total time.Duration
	rest := strings.ToLower(s)
	matched := false

	for {
		rest = strings.TrimLeft(rest, " \t")
		if rest == "" {
			break
		}

		end := 0
		for end < len(rest) && rest[end] >= '0' && rest[end] <= '9' {
			end++
		}
		if end == 0 {
			return 0, errInvalidDuration
		}
		n, err := strconv.Atoi(rest[:end])
		if err != nil {
			return 0, errInvalidDuration
		}
		rest = strings.TrimLeft(rest[end:], " \t")

		unit, width := matchUnit(rest)
		if width == 0 {
			return 0, errInvalidDuration
		}
		total += time.Duration(n) * unit
		rest = rest[width:]
		matched = true
	}

	if !matched {
		return 0, errInvalidDuration
	}
	return total, nil
}

func matchUnit(s string) (time.Duration, int) {
	for _, u := range spelledUnits {
		for _, w := range u.words {
			if !strings.HasPrefix(s, w) {
				continue
			}
			// the unit must end at a boundary
			if next := s[len(w):]; next == "" || next[0] == ' ' || next[0] == '\t' || (next[0] >= '0' && next[0] <= '9') {
				return u.unit, len(w)
			}
		}
	}
	return 0, 0
}
