// Package eventstore is the port to the external system of record for check
// outcomes. Adapters live in the subpackages.
package eventstore

import (
	"context"
	"time"

	"github.com/hamed0406/statuswatch/internal/domain"
)

// Store ingests outcome events and reads them back.
type Store interface {
	// Ingest submits one batch of events in a single call.
	Ingest(ctx context.Context, events []domain.Event) error

	// Recent returns events sorted by time, newest first, restricted to the
	// valid statuses "pass" and "fail". A zero since means no lower bound.
	// No matches is an empty slice and a nil error.
	Recent(ctx context.Context, since time.Time) ([]domain.StoredEvent, error)

	Close() error
}

// ValidStatuses is the filter every adapter applies to Recent.
var ValidStatuses = []string{string(domain.StatusPass), string(domain.StatusFail)}
