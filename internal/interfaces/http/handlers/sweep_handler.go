package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/opsdesk/filetrack/internal/application/sla"
)

// SweepHandler exposes an on-demand deadline sweep for operators.
type SweepHandler struct {
	sweep *sla.SweepService
}

func NewSweepHandler(svc *sla.SweepService) *SweepHandler {
	return &SweepHandler{sweep: svc}
}

// Trigger runs one sweep pass immediately and returns its result.
// POST /api/v1/admin/sweep
func (h *SweepHandler) Trigger(c *gin.Context) {
	res, err := h.sweep.Run(c.Request.Context(), time.Now().UTC())
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, res)
}
