package domain

import (
	"errors"
	"fmt"
	"time"
)

// Status is the recorded result of a check. Only "pass" and "fail" are valid.
type Status string

const (
	StatusPass Status = "pass"
	StatusFail Status = "fail"
)

var ErrInvalidStatus = errors.New("invalid status")

// ParseStatus accepts exactly "pass" or "fail". Older ingestion wrote
// boolean-like strings ("true"/"false"); those are rejected here.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPass, StatusFail:
		return Status(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

// EventBody is the nested payload of an ingested event.
type EventBody struct {
	Status Status `json:"status"`
	URL    Target `json:"url"`
}

// Event is one record handed to the event store on flush.
type Event struct {
	Time    time.Time `json:"_time"`
	CycleID string    `json:"cycle_id,omitempty"`
	Event   EventBody `json:"event"`
}

// NewEvent builds the ingestion record for an outcome.
func NewEvent(o CheckOutcome, cycleID string) Event {
	return Event{
		Time:    o.Timestamp,
		CycleID: cycleID,
		Event:   EventBody{Status: o.Status(), URL: o.Target},
	}
}

// StoredEvent is an event as read back from the store.
type StoredEvent struct {
	Target Target    `json:"url"`
	Status string    `json:"status"`
	Time   time.Time `json:"_time"`
}

// Entry is the latest known state of a single target.
type Entry struct {
	Status Status    `json:"status"`
	Time   time.Time `json:"time"`
}

// Snapshot maps each target to its most recent entry. Targets with no
// history are absent.
type Snapshot map[Target]Entry
