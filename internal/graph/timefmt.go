package graph

import (
	"fmt"
	"strings"
	"time"
)

// wireLayout is the second-precision layout the API expects for timestamps we send
const wireLayout = "2006-01-02T15:04:05Z"

// ParseTime parses an ISO-8601 timestamp with a trailing Z marker into UTC
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

// FormatTime formats t as an ISO-8601 UTC timestamp with second precision
func FormatTime(t time.Time) string {
	return t.UTC().Format(wireLayout)
}
