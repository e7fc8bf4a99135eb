package timeutil

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const day = 24 * time.Hour

// ParseDuration accepts Go durations, a bare number of seconds, and leading
// whole weeks (w) or days (d) optionally followed by a Go duration, as in
// "1d12h".
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty duration string")
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return parseUnits(s)
}

func parseUnits(s string) (time.Duration, error) {
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}

	i := strings.IndexAny(s, "dw")
	if i <= 0 {
		return 0, fmt.Errorf("invalid duration format: %s", s)
	}
	n, err := strconv.ParseInt(s[:i], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid duration number: %s", s[:i])
	}
	total := time.Duration(n) * day
	if s[i] == 'w' {
		total *= 7
	}

	if rest := s[i+1:]; rest != "" {
		d, err := parseUnits(rest)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %s: %w", s, err)
		}
		total += d
	}
	return total, nil
}
