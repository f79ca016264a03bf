package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/hamed0406/statuswatch/internal/version"
)

// HealthPath is where the monitor answers for itself.
const HealthPath = "/.well-known/health"

// HealthResponse is an application/health+json document.
type HealthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	ReleaseID string `json:"releaseId"`
	Time      string `json:"time"`
}

// RespondToHealthQuery answers only GET and HEAD on HealthPath and returns
// nil for any other request. It has no side effects and depends on nothing but its
// arguments.
func RespondToHealthQuery(r *http.Request, info version.Info, now time.Time) *HealthResponse {
	if r.URL.Path != HealthPath || (r.Method != http.MethodGet && r.Method != http.MethodHead) {
		return nil
	}
	return &HealthResponse{
		Status:    "pass",
		Version:   info.Version,
		ReleaseID: info.ReleaseID,
		Time:      now.UTC().Format(time.RFC3339),
	}
}

// SelfHealth short-circuits health queries before they reach next.
func SelfHealth(info version.Info, now func() time.Time) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			resp := RespondToHealthQuery(r, info, now())
			if resp == nil {
				next.ServeHTTP(w, r)
				return
			}
			w.Header().Set("Content-Type", "application/health+json")
			w.Header().Set("Cache-Control", "no-store")
			w.WriteHeader(http.StatusOK)
			_ = json.NewEncoder(w).Encode(resp)
		})
	}
}
