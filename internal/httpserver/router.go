package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"trade-reporter/internal/health"
	"trade-reporter/internal/reports"
)

type RouterDeps struct {
	ReportsHandler *reports.Handler
	HealthHandler  *health.Handler
	RateLimiter    *RateLimiter
	Logger         *zap.Logger
}

func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	if d.Logger != nil {
		r.Use(RequestLogger(d.Logger))
	}
	r.Use(middleware.Recoverer)
	r.Use(SecurityHeaders)
	if d.RateLimiter != nil {
		r.Use(d.RateLimiter.Middleware)
	}

	r.Get("/health", d.HealthHandler.ServeHTTP)
	r.Post("/report", d.ReportsHandler.Create)
	r.Get("/download/report", d.ReportsHandler.Download)
	return r
}
