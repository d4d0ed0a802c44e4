package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gosimple/slug"
	directorydomain "github.com/smallbiznis/tutorly/internal/directory/domain"
)

type bulkStatusRequest struct {
	IDs    []string `json:"ids"`
	Status string   `json:"status"`
}

type bulkDeleteRequest struct {
	IDs []string `json:"ids"`
}

type exportRequest struct {
	IDs    []string `json:"ids"`
	Fields []string `json:"fields"`
	Name   string   `json:"name"`
}

func (s *Server) BulkUpdateStatus(c *gin.Context) {
	var req bulkStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	ids, err := parseIDList(req.IDs)
	if err != nil {
		AbortWithError(c, newValidationError("ids", "invalid_ids", "ids must be account ids"))
		return
	}

	result, err := s.bulkSvc.UpdateStatus(c.Request.Context(), ids, strings.ToLower(strings.TrimSpace(req.Status)))
	var partial *directorydomain.PartialBulkFailure
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"data": result})
	case errors.As(err, &partial):
		c.JSON(http.StatusMultiStatus, gin.H{"data": result})
	default:
		AbortWithError(c, err)
	}
}

func (s *Server) BulkDelete(c *gin.Context) {
	var req bulkDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	ids, err := parseIDList(req.IDs)
	if err != nil {
		AbortWithError(c, newValidationError("ids", "invalid_ids", "ids must be account ids"))
		return
	}

	result, err := s.bulkSvc.Delete(c.Request.Context(), ids)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

func (s *Server) ExportAccounts(c *gin.Context) {
	var req exportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	ids, err := parseIDList(req.IDs)
	if err != nil {
		AbortWithError(c, newValidationError("ids", "invalid_ids", "ids must be account ids"))
		return
	}

	body, err := s.bulkSvc.ExportCSV(c.Request.Context(), ids, req.Fields)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	filename := fmt.Sprintf("%s-%s.csv", exportBaseName(req.Name), s.now().UTC().Format("20060102-150405"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", body)
}

func exportBaseName(name string) string {
	if base := slug.Make(strings.TrimSpace(name)); base != "" {
		return base
	}
	return "accounts"
}
