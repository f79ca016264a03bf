package probe

import "context"

// Failure reasons carried in CheckResult.Message.
const (
	ReasonOK            = "ok"
	ReasonHTTPError     = "http_error"
	ReasonHTTPStatus    = "http_status"
	ReasonBadBody       = "bad_body"
	ReasonStatusNotPass = "status_not_pass"
	ReasonPanic         = "panic"
)

// CheckResult is the unified result of a single probe.
//
// StatusCode is 0 when no HTTP response was received. Message is one of the
// Reason constants; Detail carries the underlying error text if any.
type CheckResult struct {
	Success    bool
	StatusCode int
	LatencyMS  float64
	Message    string
	Detail     string
}

// Checker performs a single check for a given target URL. It never fails:
// every problem becomes an unsuccessful CheckResult.
type Checker interface {
	Check(ctx context.Context, target string) CheckResult
}
