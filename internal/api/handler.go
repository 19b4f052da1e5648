package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/kirychukyurii/mission-control/internal/service"
)

// Handler holds the HTTP handlers and dependencies
type Handler struct {
	service  service.DashboardService
	logger   *slog.Logger
	basePath string
}

// NewHandler creates a new HTTP handler
func NewHandler(service service.DashboardService, basePath string, logger *slog.Logger) *Handler {
	return &Handler{
		service:  service,
		logger:   logger,
		basePath: basePath,
	}
}

// Router creates and configures the HTTP router
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.loggingMiddleware)
	r.Use(middleware.Recoverer)

	routesHandler := h.createRoutes()

	// If base path is configured, mount routes on that path
	if h.basePath != "" {
		r.Mount(h.basePath, routesHandler)
	} else {
		r.Mount("/", routesHandler)
	}

	return r
}

// createRoutes creates the API routes
func (h *Handler) createRoutes() http.Handler {
	r := chi.NewRouter()

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", h.GetStatus)

		r.Route("/views", func(r chi.Router) {
			r.Get("/", h.ListViews)
			r.Route("/{name}", func(r chi.Router) {
				r.Get("/", h.GetView)
				r.Get("/builds", h.GetBuildHistory)
				r.Get("/jobs", h.GetJobStatuses)
				r.Get("/json", h.GetDashboard)
				r.Get("/queue", h.GetBuildQueue)
				r.Get("/nodes", h.GetNodes)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		h.respondError(w, http.StatusNotFound, "not found")
	})

	return r
}

// loggingMiddleware logs HTTP requests
func (h *Handler) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		h.logger.Info("http request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("remote_addr", r.RemoteAddr),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.Int("status", ww.Status()),
			slog.Duration("duration", time.Since(start)),
		)
	})
}

// errorResponse represents an error response
type errorResponse struct {
	Error string `json:"error"`
}

// respondJSON writes a JSON response
func (h *Handler) respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response",
			slog.String("error", err.Error()),
		)
	}
}

// respondError writes an error response
func (h *Handler) respondError(w http.ResponseWriter, statusCode int, message string) {
	h.respondJSON(w, statusCode, errorResponse{Error: message})
}
