package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/Dan9191/adboard/internal/middleware"
	"github.com/Dan9191/adboard/internal/service"
)

// Health godoc
//
//	@Summary	Health check
//	@Tags		Health
//	@Produce	json
//	@Success	200	{object}	healthResponse
//	@Failure	503	{object}	healthResponse
//	@Router		/health [get]
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.svc.Ping(ctx); err != nil {
		h.log.WithError(err).Warn("Health check failed")
		middleware.WriteJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable", Error: "store unreachable"})
		return
	}
	middleware.WriteJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

// NotFound answers unmatched routes with the error envelope
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	middleware.WriteError(w, http.StatusNotFound, service.MsgRouteNotFound)
}
