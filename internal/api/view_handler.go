package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kirychukyurii/mission-control/internal/service"
)

// ListViews handles GET /api/views
func (h *Handler) ListViews(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.service.ListViews(r.Context()))
}

// GetView handles GET /api/views/{name}
func (h *Handler) GetView(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	info, err := h.service.GetView(r.Context(), name)
	if err != nil {
		h.respondViewError(w, name, err)
		return
	}

	h.respondJSON(w, http.StatusOK, info)
}

// GetBuildHistory handles GET /api/views/{name}/builds
func (h *Handler) GetBuildHistory(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	builds, err := h.service.GetBuildHistory(r.Context(), name)
	if err != nil {
		h.respondViewError(w, name, err)
		return
	}

	h.respondJSON(w, http.StatusOK, builds)
}

// GetJobStatuses handles GET /api/views/{name}/jobs
func (h *Handler) GetJobStatuses(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	statuses, err := h.service.GetJobStatuses(r.Context(), name)
	if err != nil {
		h.respondViewError(w, name, err)
		return
	}

	h.respondJSON(w, http.StatusOK, statuses)
}

// GetDashboard handles GET /api/views/{name}/json
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	dashboard, err := h.service.GetDashboard(r.Context(), name)
	if err != nil {
		h.respondViewError(w, name, err)
		return
	}

	h.respondJSON(w, http.StatusOK, dashboard)
}

// GetBuildQueue handles GET /api/views/{name}/queue
func (h *Handler) GetBuildQueue(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	queue, err := h.service.GetBuildQueue(r.Context(), name)
	if err != nil {
		h.respondViewError(w, name, err)
		return
	}

	h.respondJSON(w, http.StatusOK, queue)
}

// GetNodes handles GET /api/views/{name}/nodes
func (h *Handler) GetNodes(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	nodes, err := h.service.GetNodes(r.Context(), name)
	if err != nil {
		h.respondViewError(w, name, err)
		return
	}

	h.respondJSON(w, http.StatusOK, nodes)
}

func (h *Handler) respondViewError(w http.ResponseWriter, name string, err error) {
	if errors.Is(err, service.ErrViewNotFound) {
		h.respondError(w, http.StatusNotFound, err.Error())
		return
	}

	h.logger.Error("failed to serve view",
		slog.String("view", name),
		slog.String("error", err.Error()),
	)
	h.respondError(w, http.StatusInternalServerError, "failed to serve view")
}
