package api

import (
	"net/http"
)

// GetStatus handles GET /api/status
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.service.GetStatus(r.Context()))
}
