package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/opsdesk/filetrack/internal/domain/ledger"
	"github.com/opsdesk/filetrack/pkg/types/common"
)

// AlertHandler serves the alert ledger endpoints.
type AlertHandler struct {
	records ledger.Repository
}

func NewAlertHandler(records ledger.Repository) *AlertHandler {
	return &AlertHandler{records: records}
}

// List returns alerts, newest first.
// GET /api/v1/alerts
func (h *AlertHandler) List(c *gin.Context) {
	filter := ledger.AlertFilter{
		FileID:     common.ID(c.Query("file_id")),
		UnreadOnly: c.Query("unread") == "true",
	}
	page := parsePagination(c)

	alerts, total, err := h.records.ListAlerts(c.Request.Context(), filter, page)
	if err != nil {
		respondError(c, err)
		return
	}
	page.Total = total
	respond(c, http.StatusOK, gin.H{"alerts": alerts, "pagination": page})
}

// MarkRead flips an alert's read flag.
// POST /api/v1/alerts/:id/read
func (h *AlertHandler) MarkRead(c *gin.Context) {
	id := common.ID(c.Param("id"))
	if err := h.records.MarkAlertRead(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"id": id, "is_read": true})
}
