package domain

import (
	"net/url"
	"strings"
	"time"
)

// Target is the base URL of one monitored service.
type Target string

// Host returns the host part of the target, or the raw string if it does not parse.
func (t Target) Host() string {
	u, err := url.Parse(string(t))
	if err != nil || u.Hostname() == "" {
		return strings.TrimPrefix(strings.TrimPrefix(string(t), "https://"), "http://")
	}
	return u.Hostname()
}

// CheckOutcome is what one probe of one target produced in a cycle.
// Passed is the only field with meaning downstream; the rest is diagnostics.
type CheckOutcome struct {
	Target     Target    `json:"target"`
	Passed     bool      `json:"passed"`
	StatusCode int       `json:"status_code,omitempty"`
	LatencyMS  float64   `json:"latency_ms"`
	Reason     string    `json:"reason,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Status returns the stored status for the outcome.
func (o CheckOutcome) Status() Status {
	if o.Passed {
		return StatusPass
	}
	return StatusFail
}
