package handlers

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/opsdesk/filetrack/internal/application/intake"
	"github.com/opsdesk/filetrack/internal/application/sla"
	"github.com/opsdesk/filetrack/internal/domain/file"
	"github.com/opsdesk/filetrack/internal/domain/ledger"
	"github.com/opsdesk/filetrack/pkg/errors"
	"github.com/opsdesk/filetrack/pkg/types/common"
)

// DocumentFetcher streams stored document bytes for download.
type DocumentFetcher interface {
	Get(ctx context.Context, key string) (io.ReadCloser, error)
}

// FileHandler serves the file lifecycle endpoints.
type FileHandler struct {
	intake    *intake.Service
	records   ledger.Repository
	documents DocumentFetcher
	maxUpload int64
}

// NewFileHandler builds the handler.  documents may be nil, which disables
// the download endpoint.
func NewFileHandler(svc *intake.Service, records ledger.Repository, documents DocumentFetcher, maxUpload int64) *FileHandler {
	return &FileHandler{intake: svc, records: records, documents: documents, maxUpload: maxUpload}
}

// fileView decorates a file with its live SLA projection.
type fileView struct {
	*file.File
	ElapsedPercent *int   `json:"elapsed_percent,omitempty"`
	TimeLeft       string `json:"time_left,omitempty"`
	NeedsAttention *bool  `json:"needs_attention,omitempty"`
}

func toFileView(f *file.File, now time.Time) fileView {
	v := fileView{File: f}
	if p, ok := sla.Project(f, now); ok {
		v.ElapsedPercent = &p.ElapsedPercent
		v.TimeLeft = p.TimeLeft
		v.NeedsAttention = &p.NeedsAttention
	}
	return v
}

// Upload accepts a multipart document upload.
// POST /api/v1/files
func (h *FileHandler) Upload(c *gin.Context) {
	sectionID := c.PostForm("section_id")
	if sectionID == "" {
		respondError(c, errors.InvalidParam("section_id form field is required"))
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		respondError(c, errors.InvalidParam("file form field is required"))
		return
	}
	if h.maxUpload > 0 && fh.Size > h.maxUpload {
		respondError(c, errors.Newf(errors.ErrCodeValidation, "file exceeds the %d byte upload limit", h.maxUpload))
		return
	}

	f, err := fh.Open()
	if err != nil {
		respondError(c, errors.Wrap(err, errors.ErrCodeBadRequest, "reading upload"))
		return
	}
	defer f.Close()

	res, err := h.intake.Upload(c.Request.Context(), intake.UploadCommand{
		Filename:    fh.Filename,
		SectionID:   common.ID(sectionID),
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Content:     f,
	}, time.Now().UTC())
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, res)
}

// List returns files with optional status/priority/section filters.
// GET /api/v1/files
func (h *FileHandler) List(c *gin.Context) {
	filter := file.ListFilter{
		SectionID: common.ID(c.Query("section_id")),
		Status:    file.Status(c.Query("status")),
		Priority:  file.Priority(c.Query("priority")),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		respondError(c, errors.Newf(errors.ErrCodeValidation, "unknown status %q", filter.Status))
		return
	}
	if filter.Priority != "" && !filter.Priority.Valid() {
		respondError(c, errors.Newf(errors.ErrCodeValidation, "unknown priority %q", filter.Priority))
		return
	}

	page := parsePagination(c)
	files, total, err := h.intake.List(c.Request.Context(), filter, page)
	if err != nil {
		respondError(c, err)
		return
	}

	now := time.Now().UTC()
	views := make([]fileView, 0, len(files))
	for _, f := range files {
		views = append(views, toFileView(f, now))
	}
	page.Total = total
	respond(c, http.StatusOK, gin.H{"files": views, "pagination": page})
}

// Get returns one file with its projection and escalation history.
// GET /api/v1/files/:id
func (h *FileHandler) Get(c *gin.Context) {
	id := common.ID(c.Param("id"))
	f, err := h.intake.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	escalations, err := h.records.ListEscalations(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{
		"file":        toFileView(f, time.Now().UTC()),
		"escalations": escalations,
	})
}

// Complete marks a file done.
// POST /api/v1/files/:id/complete
func (h *FileHandler) Complete(c *gin.Context) {
	f, err := h.intake.Complete(c.Request.Context(), common.ID(c.Param("id")), time.Now().UTC())
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, f)
}

// Download streams the stored document bytes.
// GET /api/v1/files/:id/download
func (h *FileHandler) Download(c *gin.Context) {
	if h.documents == nil {
		respondError(c, errors.New(errors.ErrCodeServiceUnavailable, "document storage is not configured"))
		return
	}
	f, err := h.intake.Get(c.Request.Context(), common.ID(c.Param("id")))
	if err != nil {
		respondError(c, err)
		return
	}
	rc, err := h.documents.Get(c.Request.Context(), f.StorageKey)
	if err != nil {
		respondError(c, err)
		return
	}
	defer rc.Close()

	c.Header("Content-Disposition", `attachment; filename="`+f.Filename+`"`)
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, rc)
}
