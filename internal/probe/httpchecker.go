package probe

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"
)

// HealthPath is the well-known health endpoint probed on every target.
const HealthPath = "/.well-known/health"

const maxBodyBytes = 1 << 20

type HTTPChecker struct {
	Client *http.Client
}

func NewHTTPChecker(timeout time.Duration) *HTTPChecker {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPChecker{
		Client: &http.Client{Timeout: timeout},
	}
}

// healthBody is the part of an application/health+json document we validate.
type healthBody struct {
	Status string `json:"status"`
}

// Check passes only on HTTP 200 with a JSON body whose status is "pass".
func (h *HTTPChecker) Check(ctx context.Context, target string) CheckResult {
	start := time.Now()
	latency := func() float64 { return time.Since(start).Seconds() * 1000 }

	url := strings.TrimRight(target, "/") + HealthPath
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return CheckResult{Message: ReasonHTTPError, Detail: err.Error()}
	}
	req.Header.Set("Accept", "application/health+json, application/json")

	resp, err := h.Client.Do(req)
	if err != nil {
		return CheckResult{Message: ReasonHTTPError, Detail: err.Error(), LatencyMS: latency()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return CheckResult{
			StatusCode: resp.StatusCode,
			Message:    ReasonHTTPStatus,
			Detail:     resp.Status,
			LatencyMS:  latency(),
		}
	}

	var body healthBody
	if err := decodeHealth(io.LimitReader(resp.Body, maxBodyBytes), &body); err != nil {
		return CheckResult{
			StatusCode: resp.StatusCode,
			Message:    ReasonBadBody,
			Detail:     err.Error(),
			LatencyMS:  latency(),
		}
	}
	if body.Status != "pass" {
		return CheckResult{
			StatusCode: resp.StatusCode,
			Message:    ReasonStatusNotPass,
			Detail:     body.Status,
			LatencyMS:  latency(),
		}
	}

	return CheckResult{
		Success:    true,
		StatusCode: resp.StatusCode,
		Message:    ReasonOK,
		LatencyMS:  latency(),
	}
}

// decodeHealth accepts exactly one JSON document; anything after it other
// than whitespace makes the body malformed.
func decodeHealth(r io.Reader, body *healthBody) error {
	dec := json.NewDecoder(r)
	if err := dec.Decode(body); err != nil {
		return err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return errors.New("trailing data after health document")
	}
	return nil
}
