package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	directorydomain "github.com/smallbiznis/tutorly/internal/directory/domain"
	obslogger "github.com/smallbiznis/tutorly/internal/observability/logger"
	"github.com/smallbiznis/tutorly/internal/orgcontext"
)

type sessionQueryRequest struct {
	Status    string `json:"status"`
	Search    string `json:"search"`
	Sort      string `json:"sort"`
	Direction string `json:"direction"`
	Page      int    `json:"page"`
	PageSize  int    `json:"page_size"`
}

// SubmitSessionQuery runs a query within an operator session. Responses
// for queries overtaken by a newer submission report applied=false.
func (s *Server) SubmitSessionQuery(c *gin.Context) {
	var req sessionQueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if req.Page == 0 {
		req.Page = 1
	}

	key := strings.TrimSpace(c.Param("key"))
	if key == "" {
		AbortWithError(c, newValidationError("key", "invalid_key", "session key is required"))
		return
	}

	ctx := c.Request.Context()
	orgID, _ := orgcontext.OrgIDFromContext(ctx)
	outcome, err := s.sessions.Get(orgID, key).Submit(ctx, directorydomain.QueryRequest{
		Status:        strings.TrimSpace(req.Status),
		Search:        req.Search,
		SortField:     directorydomain.SortField(strings.ToLower(strings.TrimSpace(req.Sort))),
		SortDirection: directorydomain.SortDirection(strings.ToLower(strings.TrimSpace(req.Direction))),
		Page:          req.Page,
		PageSize:      req.PageSize,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.Set(obslogger.AppliedKey, outcome.Applied)
	if outcome.Page != nil {
		c.Set(obslogger.StrategyKey, string(outcome.Page.Strategy))
	}

	c.JSON(http.StatusOK, gin.H{"data": outcome})
}

func (s *Server) GetSessionState(c *gin.Context) {
	orgID, _ := orgcontext.OrgIDFromContext(c.Request.Context())
	sess, ok := s.sessions.Lookup(orgID, strings.TrimSpace(c.Param("key")))
	if !ok {
		AbortWithError(c, ErrNotFound)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": sess.State()})
}
