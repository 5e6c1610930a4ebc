package utils

import "testing"

func TestParseTimestampAcceptsNaiveAndZoned(t *testing.T) {
	cases := []string{
		"2025-03-14T09:26:53.589793",
		"2025-03-14T09:26:53Z",
		"2025-03-14T09:26:53+01:00",
	}
	for _, value := range cases {
		if _, err := ParseTimestamp(value); err != nil {
			t.Fatalf("parse %q: %v", value, err)
		}
	}
}

func TestDisplayTimestamp(t *testing.T) {
	if got := DisplayTimestamp("2025-03-14T09:26:53.589793"); got != "14/03/2025 09:26" {
		t.Fatalf("unexpected display: %q", got)
	}
	if got := DisplayTimestamp("not a time"); got != "not a time" {
		t.Fatalf("expected raw passthrough, got %q", got)
	}
	if _, err := ParseTimestamp(""); err == nil {
		t.Fatalf("expected error for empty value")
	}
}
