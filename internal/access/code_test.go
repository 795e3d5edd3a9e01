package access

import (
	"testing"

	"keypad-gateway/internal/store"
)

func TestNormalizeDateTime(t *testing.T) {
	cases := map[string]string{
		"2024-06-01 09:00":    "2024-06-01 09:00",
		"2024-06-01T09:00":    "2024-06-01 09:00",
		"2024-06-01T09:00:30": "2024-06-01 09:00",
		"2024-06-01 09:00:00": "2024-06-01 09:00",
	}
	for in, want := range cases {
		if got := NormalizeDateTime(in); got != want {
			t.Errorf("NormalizeDateTime(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNewCodeValid(t *testing.T) {
	c, err := NewCode(nil, store.AccessCode{
		Name: "guest",
		Code: " 1234 ",
		From: "2024-06-01T09:00:00",
		Till: "2024-06-01 11:00",
	})
	if err != nil {
		t.Fatalf("NewCode: %v", err)
	}
	if c.Code != "1234" {
		t.Errorf("code = %q, want trimmed 1234", c.Code)
	}
	if c.From != "2024-06-01 09:00" {
		t.Errorf("from = %q, want normalized form", c.From)
	}
}

func TestNewCodeMissingFields(t *testing.T) {
	_, err := NewCode(nil, store.AccessCode{Code: "1234", From: "2024-06-01 09:00"})
	if err == nil {
		t.Error("expected error for missing till")
	}
	_, err = NewCode(nil, store.AccessCode{Code: "   ", From: "2024-06-01 09:00", Till: "2024-06-01 11:00"})
	if err == nil {
		t.Error("expected error for blank code")
	}
}

func TestNewCodeBadFormat(t *testing.T) {
	for _, bad := range []string{"06/01/2024 09:00", "2024-06-01", "2024-6-1 9:00"} {
		_, err := NewCode(nil, store.AccessCode{Code: "1234", From: bad, Till: "2024-06-01 11:00"})
		if err == nil {
			t.Errorf("from = %q: expected format error", bad)
		}
	}
}

func TestNewCodeBadCalendarValue(t *testing.T) {
	_, err := NewCode(nil, store.AccessCode{Code: "1234", From: "2024-13-40 09:00", Till: "2024-06-01 11:00"})
	if err == nil {
		t.Error("expected error for impossible date")
	}
}

func TestNewCodeDuplicate(t *testing.T) {
	existing := []store.AccessCode{
		{Name: "guest", Code: "1234", From: "2024-06-01 09:00", Till: "2024-06-01 11:00"},
	}
	_, err := NewCode(existing, store.AccessCode{Code: "1234", From: "2024-06-01 09:00", Till: "2024-06-01 11:00"})
	if err == nil {
		t.Error("expected duplicate error")
	}

	// Same PIN with a different window is allowed.
	if _, err := NewCode(existing, store.AccessCode{Code: "1234", From: "2024-06-02 09:00", Till: "2024-06-02 11:00"}); err != nil {
		t.Errorf("different window rejected: %v", err)
	}
}
