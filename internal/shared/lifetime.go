package shared

import (
	"fmt"
	"strconv"
	"time"
)

// Lifetime is a duration written as <n>{d,h,m,s}, e.g. "7d" or "30m".
// It implements envconfig.Decoder.
type Lifetime time.Duration

// ParseLifetime parses a <n>{d,h,m,s} string.
func ParseLifetime(raw string) (Lifetime, error) {
	if len(raw) < 2 {
		return 0, fmt.Errorf("invalid duration string: %q", raw)
	}
	n, err := strconv.Atoi(raw[:len(raw)-1])
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid duration string: %q", raw)
	}
	var unit time.Duration
	switch raw[len(raw)-1] {
	case 'd':
		unit = 24 * time.Hour
	case 'h':
		unit = time.Hour
	case 'm':
		unit = time.Minute
	case 's':
		unit = time.Second
	default:
		return 0, fmt.Errorf("invalid duration string: %q", raw)
	}
	return Lifetime(time.Duration(n) * unit), nil
}

// Decode satisfies envconfig.Decoder.
func (l *Lifetime) Decode(value string) error {
	parsed, err := ParseLifetime(value)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// Duration returns the lifetime as a time.Duration.
func (l Lifetime) Duration() time.Duration {
	return time.Duration(l)
}

// ExpiresAt returns base shifted by the lifetime.
func (l Lifetime) ExpiresAt(base time.Time) time.Time {
	return base.Add(time.Duration(l))
}
