package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/hamed0406/statuswatch/internal/dashboard"
	"github.com/hamed0406/statuswatch/internal/domain"
	apimw "github.com/hamed0406/statuswatch/internal/httpapi/middleware"
	"github.com/hamed0406/statuswatch/internal/status"
	"github.com/hamed0406/statuswatch/internal/version"
)

// StatusSource builds a fresh snapshot per call.
type StatusSource interface {
	GetStatus(ctx context.Context) domain.Snapshot
}

type TargetSource interface {
	All() []domain.Target
}

type Server struct {
	Logger    *zap.Logger
	Targets   TargetSource
	Status    StatusSource
	Dashboard *dashboard.Renderer
	Info      version.Info

	// Metrics is served on /metrics when set.
	Metrics http.Handler

	// Requests per minute and burst per client IP on routes that query
	// the event store. Zero RPM disables the limit.
	RateRPM   int
	RateBurst int

	now func() time.Time
}

func NewServer(l *zap.Logger, ts TargetSource, st StatusSource, d *dashboard.Renderer, info version.Info) *Server {
	return &Server{
		Logger:    l,
		Targets:   ts,
		Status:    st,
		Dashboard: d,
		Info:      info,
		now:       time.Now,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(apimw.AccessLog(s.Logger))
	r.Use(chimw.Recoverer)
	r.Use(SelfHealth(s.Info, s.now))

	if s.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.Metrics)
	}

	r.Group(func(r chi.Router) {
		r.Use(apimw.RateLimit(s.RateRPM, s.RateBurst))

		r.With(cors.AllowAll().Handler).Get("/api/status", s.handleStatus)
		r.Handle("/*", http.HandlerFunc(s.handleDashboard))
	})

	return r
}

func (s *Server) rows(ctx context.Context) []status.Row {
	return status.Rows(s.Targets.All(), s.Status.GetStatus(ctx))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	_ = json.NewEncoder(w).Encode(s.rows(r.Context()))
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := s.Dashboard.Render(w, s.rows(r.Context()), s.now(), s.Info.Version); err != nil {
		s.Logger.Error("dashboard_render_error", zap.Error(err))
		http.Error(w, "render error", http.StatusInternalServerError)
	}
}
