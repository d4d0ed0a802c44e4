package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

type createSelectionRequest struct {
	IDs []string `json:"ids"`
}

type updateSelectionRequest struct {
	Add    []string `json:"add"`
	Remove []string `json:"remove"`
}

type toggleSelectionRequest struct {
	ID string `json:"id"`
}

type selectionResponse struct {
	Key      string   `json:"key"`
	IDs      []string `json:"ids"`
	Count    int      `json:"count"`
	Selected *bool    `json:"selected,omitempty"`
}

func (s *Server) CreateSelection(c *gin.Context) {
	var req createSelectionRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}
	ids, err := parseIDList(req.IDs)
	if err != nil {
		AbortWithError(c, newValidationError("ids", "invalid_ids", "ids must be account ids"))
		return
	}

	key, selected, err := s.selections.Create(c.Request.Context(), ids)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": newSelectionResponse(key, formatIDList(selected), nil)})
}

func (s *Server) GetSelection(c *gin.Context) {
	key := strings.TrimSpace(c.Param("key"))
	ids, err := s.selections.Get(c.Request.Context(), key)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": newSelectionResponse(key, formatIDList(ids), nil)})
}

func (s *Server) UpdateSelection(c *gin.Context) {
	var req updateSelectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	add, err := parseIDList(req.Add)
	if err != nil {
		AbortWithError(c, newValidationError("add", "invalid_ids", "add must contain account ids"))
		return
	}
	remove, err := parseIDList(req.Remove)
	if err != nil {
		AbortWithError(c, newValidationError("remove", "invalid_ids", "remove must contain account ids"))
		return
	}

	key := strings.TrimSpace(c.Param("key"))
	ids, err := s.selections.Update(c.Request.Context(), key, add, remove)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": newSelectionResponse(key, formatIDList(ids), nil)})
}

func (s *Server) ToggleSelection(c *gin.Context) {
	var req toggleSelectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	id, err := parseSnowflakeID(req.ID)
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid account id"))
		return
	}

	key := strings.TrimSpace(c.Param("key"))
	selected, ids, err := s.selections.Toggle(c.Request.Context(), key, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": newSelectionResponse(key, formatIDList(ids), &selected)})
}

func (s *Server) ClearSelection(c *gin.Context) {
	if err := s.selections.Clear(c.Request.Context(), strings.TrimSpace(c.Param("key"))); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func newSelectionResponse(key string, ids []string, selected *bool) selectionResponse {
	return selectionResponse{
		Key:      key,
		IDs:      ids,
		Count:    len(ids),
		Selected: selected,
	}
}
