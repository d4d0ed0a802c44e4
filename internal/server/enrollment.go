package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	enrollmentdomain "github.com/smallbiznis/tutorly/internal/enrollment/domain"
)

type createEnrollmentRequest struct {
	AccountID   string `json:"account_id"`
	MemberID    string `json:"member_id"`
	ServiceName string `json:"service_name"`
	Status      string `json:"status"`
}

func (s *Server) CreateEnrollment(c *gin.Context) {
	var req createEnrollmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.enrollmentSvc.Create(c.Request.Context(), enrollmentdomain.CreateEnrollmentRequest{
		AccountID:   strings.TrimSpace(req.AccountID),
		MemberID:    strings.TrimSpace(req.MemberID),
		ServiceName: strings.TrimSpace(req.ServiceName),
		Status:      enrollmentdomain.Status(strings.ToLower(strings.TrimSpace(req.Status))),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}
