package domain

import (
	"errors"
	"testing"
	"time"
)

func TestParseStatus(t *testing.T) {
	cases := []struct {
		in      string
		want    Status
		wantErr bool
	}{
		{"pass", StatusPass, false},
		{"fail", StatusFail, false},
		{"true", "", true},
		{"false", "", true},
		{"PASS", "", true},
		{"", "", true},
	}
	for _, c := range cases {
		got, err := ParseStatus(c.in)
		if c.wantErr {
			if !errors.Is(err, ErrInvalidStatus) {
				t.Fatalf("ParseStatus(%q) err=%v, want ErrInvalidStatus", c.in, err)
			}
			continue
		}
		if err != nil || got != c.want {
			t.Fatalf("ParseStatus(%q)=%q,%v want %q", c.in, got, err, c.want)
		}
	}
}

func TestTarget_Host(t *testing.T) {
	cases := []struct {
		in   Target
		want string
	}{
		{"https://blog.example.com", "blog.example.com"},
		{"https://example.com:8443/app", "example.com"},
		{"http://svc.internal", "svc.internal"},
	}
	for _, c := range cases {
		if got := c.in.Host(); got != c.want {
			t.Fatalf("Host(%q)=%q want %q", c.in, got, c.want)
		}
	}
}

func TestNewEvent_MapsPassedToStatus(t *testing.T) {
	at := time.Date(2025, 8, 18, 12, 0, 0, 0, time.UTC)
	ev := NewEvent(CheckOutcome{Target: "https://a.test", Passed: false, Timestamp: at}, "c1")
	if ev.Event.Status != StatusFail || ev.Event.URL != "https://a.test" {
		t.Fatalf("unexpected event body: %+v", ev.Event)
	}
	if !ev.Time.Equal(at) || ev.CycleID != "c1" {
		t.Fatalf("unexpected event meta: %+v", ev)
	}
}
