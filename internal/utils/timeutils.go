package utils

import (
	"fmt"
	"strings"
	"time"
)

// The scoring service serialises naive datetimes (no zone), so both layouts are accepted.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// ParseTimestamp parses a service timestamp. Naive values are read as UTC.
func ParseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("empty time value")
	}
	var lastErr error
	for _, layout := range timestampLayouts {
		t, err := time.Parse(layout, value)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, fmt.Errorf("parse time: %w", lastErr)
}

// DisplayTimestamp formats a service timestamp as dd/mm/yyyy hh:mm and returns
// the raw value unchanged when it cannot be parsed.
func DisplayTimestamp(value string) string {
	t, err := ParseTimestamp(value)
	if err != nil {
		return value
	}
	return t.Format("02/01/2006 15:04")
}
