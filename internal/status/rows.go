package status

import (
	"time"

	"github.com/hamed0406/statuswatch/internal/domain"
)

// Unknown is shown for a target that has no recorded event.
const Unknown = "unknown"

// Row is one target as displayed, in registry order.
type Row struct {
	URL    domain.Target `json:"url"`
	Host   string        `json:"host"`
	Status string        `json:"status"`
	Time   *time.Time    `json:"time,omitempty"`
}

func (r Row) Known() bool { return r.Status != Unknown }

// Rows projects snap onto targets. The snapshot's own order is irrelevant;
// targets decides the order and every target gets exactly one row.
func Rows(targets []domain.Target, snap domain.Snapshot) []Row {
	out := make([]Row, 0, len(targets))
	for _, t := range targets {
		row := Row{URL: t, Host: t.Host(), Status: Unknown}
		if e, ok := snap[t]; ok {
			at := e.Time
			row.Status = string(e.Status)
			row.Time = &at
		}
		out = append(out, row)
	}
	return out
}
