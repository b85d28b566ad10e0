// Package handlers implements the REST API surface.
package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/opsdesk/filetrack/pkg/errors"
	"github.com/opsdesk/filetrack/pkg/types/common"
)

// respond writes the standard success envelope.
func respond(c *gin.Context, status int, data any) {
	c.JSON(status, common.APIResponse[any]{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC(),
	})
}

// respondError maps an application error onto the envelope, masking
// internals behind a generic message for 5xx codes.
func respondError(c *gin.Context, err error) {
	code := errors.GetCode(err)
	status := errors.HTTPStatusForCode(code)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		msg = "internal server error"
	}
	c.JSON(status, common.APIResponse[any]{
		Success:   false,
		Error:     &common.ErrorDetail{Code: code.String(), Message: msg},
		Timestamp: time.Now().UTC(),
	})
}

// parsePagination reads page/page_size query parameters with sane bounds.
func parsePagination(c *gin.Context) common.Pagination {
	page := 1
	pageSize := 20
	if v := c.Query("page"); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p > 0 {
			page = p
		}
	}
	if v := c.Query("page_size"); v != "" {
		if ps, err := strconv.Atoi(v); err == nil && ps > 0 && ps <= 100 {
			pageSize = ps
		}
	}
	return common.Pagination{Page: page, PageSize: pageSize}
}
