package entity

import "testing"

func TestCanonicalStatus(t *testing.T) {
	cases := map[string]string{
		"open":        StatusOpen,
		"OPEN":        StatusOpen,
		" Open ":      StatusOpen,
		"in progress": StatusInProgress,
		"in_progress": StatusInProgress,
		"InProgress":  StatusInProgress,
		"CLOSED":      StatusClosed,
		"Archived":    "Archived", // 未知值原样返回
		"":            "",
	}
	for in, want := range cases {
		if got := CanonicalStatus(in); got != want {
			t.Fatalf("CanonicalStatus(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestIsValidStatus(t *testing.T) {
	for _, s := range []string{StatusOpen, StatusInProgress, StatusClosed} {
		if !IsValidStatus(s) {
			t.Fatalf("%q must be valid", s)
		}
	}
	for _, s := range []string{"open", "Archived", ""} {
		if IsValidStatus(s) {
			t.Fatalf("%q must be invalid", s)
		}
	}
}

func TestCanonicalSeverity(t *testing.T) {
	if got := CanonicalSeverity("High"); got != SeverityHigh {
		t.Fatalf("expected %q, got %q", SeverityHigh, got)
	}
	if got := CanonicalSeverity("critical"); got != "critical" {
		t.Fatalf("unknown severity must pass through, got %q", got)
	}
}
