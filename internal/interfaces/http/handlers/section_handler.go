package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/opsdesk/filetrack/internal/domain/section"
	"github.com/opsdesk/filetrack/pkg/errors"
	"github.com/opsdesk/filetrack/pkg/types/common"
)

// SectionHandler serves the section management endpoints.
type SectionHandler struct {
	sections section.Repository
}

func NewSectionHandler(sections section.Repository) *SectionHandler {
	return &SectionHandler{sections: sections}
}

type createSectionRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

// Create registers a new section.
// POST /api/v1/sections
func (h *SectionHandler) Create(c *gin.Context) {
	var req createSectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.Wrap(err, errors.ErrCodeValidation, "invalid section payload"))
		return
	}

	s, err := section.New(req.Name, req.Description, time.Now().UTC())
	if err != nil {
		respondError(c, err)
		return
	}
	if err := h.sections.Create(c.Request.Context(), s); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, s)
}

// Get returns a single section.
// GET /api/v1/sections/:id
func (h *SectionHandler) Get(c *gin.Context) {
	s, err := h.sections.GetByID(c.Request.Context(), common.ID(c.Param("id")))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, s)
}

// List returns every section ordered by name.
// GET /api/v1/sections
func (h *SectionHandler) List(c *gin.Context) {
	sections, err := h.sections.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"sections": sections})
}
