package server

import (
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/tutorly/internal/observability/context"
	"github.com/smallbiznis/tutorly/internal/orgcontext"
)

const (
	HeaderOrg      = "X-Org-ID"
	HeaderOperator = "X-Operator-ID"
)

// OrgContext resolves the active organization from the X-Org-ID header,
// falling back to the configured default org.
func (s *Server) OrgContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID := snowflake.ID(s.cfg.DefaultOrgID)
		if raw := strings.TrimSpace(c.GetHeader(HeaderOrg)); raw != "" {
			parsed, err := snowflake.ParseString(raw)
			if err != nil || parsed <= 0 {
				AbortWithError(c, newValidationError("organization", "invalid_organization", "invalid X-Org-ID header"))
				return
			}
			orgID = parsed
		}
		if orgID == 0 {
			AbortWithError(c, newValidationError("organization", "invalid_organization", "missing X-Org-ID header"))
			return
		}

		ctx := orgcontext.WithOrgID(c.Request.Context(), orgID.Int64())
		if operator := strings.TrimSpace(c.GetHeader(HeaderOperator)); operator != "" {
			ctx = obscontext.WithOperator(ctx, operator)
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
