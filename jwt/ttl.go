package jwt

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

// Day-and-above units, which time.ParseDuration does not know.
const (
	day  = 24 * time.Hour
	week = 7 * day
	year = 365 * day
)

// ParseTTL parses a token lifetime string. It accepts everything
// time.ParseDuration accepts ("30m", "1h30m", "0s") plus single-unit
// day, week, and year forms ("7d", "2w", "1y").
func ParseTTL(s string) (time.Duration, error) {
	if s == "" {
		return 0, errors.New("empty ttl")
	}

	var unit time.Duration
	switch s[len(s)-1] {
	case 'd':
		unit = day
	case 'w':
		unit = week
	case 'y':
		unit = year
	default:
		return time.ParseDuration(s)
	}

	// "ms" and friends never reach here; the single trailing letter is
	// the whole unit.
	n, err := strconv.Atoi(strings.TrimSpace(s[:len(s)-1]))
	if err != nil {
		return 0, errors.New("invalid ttl: " + s)
	}
	if n < 0 {
		return 0, errors.New("negative ttl: " + s)
	}

	return time.Duration(n) * unit, nil
}
