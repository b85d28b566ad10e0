package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/opsdesk/filetrack/internal/application/reporting"
)

// DashboardHandler serves the aggregated monitoring views.
type DashboardHandler struct {
	reporting *reporting.Service
}

func NewDashboardHandler(svc *reporting.Service) *DashboardHandler {
	return &DashboardHandler{reporting: svc}
}

// Overview returns status counts, unread alerts and the attention list.
// GET /api/v1/dashboard
func (h *DashboardHandler) Overview(c *gin.Context) {
	stats, err := h.reporting.Dashboard(c.Request.Context(), time.Now().UTC())
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, stats)
}

// Sections returns per-section status breakdowns.
// GET /api/v1/dashboard/sections
func (h *DashboardHandler) Sections(c *gin.Context) {
	stats, err := h.reporting.Sections(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"sections": stats})
}
