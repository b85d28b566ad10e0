package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/opsdesk/filetrack/internal/application/reporting"
	"github.com/opsdesk/filetrack/pkg/errors"
)

// ReportHandler serves the daily activity report.
type ReportHandler struct {
	reporting *reporting.Service
}

func NewReportHandler(svc *reporting.Service) *ReportHandler {
	return &ReportHandler{reporting: svc}
}

// Daily returns the day's report as JSON, or CSV with format=csv.
// GET /api/v1/reports/daily?date=2025-01-02&format=csv
func (h *ReportHandler) Daily(c *gin.Context) {
	at := time.Now().UTC()
	if raw := c.Query("date"); raw != "" {
		parsed, err := time.ParseInLocation("2006-01-02", raw, time.UTC)
		if err != nil {
			respondError(c, errors.Newf(errors.ErrCodeValidation, "date %q is not YYYY-MM-DD", raw))
			return
		}
		at = parsed
	}

	report, err := h.reporting.Daily(c.Request.Context(), at)
	if err != nil {
		respondError(c, err)
		return
	}

	if c.Query("format") == "csv" {
		c.Header("Content-Type", "text/csv")
		c.Header("Content-Disposition", `attachment; filename="daily-`+report.Day.Format("2006-01-02")+`.csv"`)
		c.Status(http.StatusOK)
		if err := report.WriteCSV(c.Writer); err != nil {
			_ = c.Error(err)
		}
		return
	}
	respond(c, http.StatusOK, report)
}
