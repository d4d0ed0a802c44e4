package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	accountdomain "github.com/smallbiznis/tutorly/internal/account/domain"
	directorydomain "github.com/smallbiznis/tutorly/internal/directory/domain"
	obslogger "github.com/smallbiznis/tutorly/internal/observability/logger"
	"github.com/smallbiznis/tutorly/pkg/db/pagination"
)

type createAccountRequest struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Email  string `json:"email"`
	Phone  string `json:"phone"`
	Notes  string `json:"notes"`
}

type addMemberRequest struct {
	Name      string `json:"name"`
	Grade     string `json:"grade"`
	School    string `json:"school"`
	BirthYear *int   `json:"birth_year"`
}

type directoryQuery struct {
	pagination.Window
	Status    string `form:"status"`
	Search    string `form:"search"`
	Sort      string `form:"sort"`
	Direction string `form:"direction"`
}

func (q directoryQuery) toRequest() directorydomain.QueryRequest {
	return directorydomain.QueryRequest{
		Status:        strings.TrimSpace(q.Status),
		Search:        q.Search,
		SortField:     directorydomain.SortField(strings.ToLower(strings.TrimSpace(q.Sort))),
		SortDirection: directorydomain.SortDirection(strings.ToLower(strings.TrimSpace(q.Direction))),
		Page:          q.Page,
		PageSize:      q.PageSize,
	}
}

func (s *Server) ListAccounts(c *gin.Context) {
	var query directoryQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	page, err := s.directorySvc.Query(c.Request.Context(), query.toRequest())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.Set(obslogger.StrategyKey, string(page.Strategy))

	c.JSON(http.StatusOK, gin.H{"data": page})
}

func (s *Server) CreateAccount(c *gin.Context) {
	var req createAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.accountSvc.Create(c.Request.Context(), accountdomain.CreateAccountRequest{
		Name:   strings.TrimSpace(req.Name),
		Status: accountdomain.Status(strings.ToLower(strings.TrimSpace(req.Status))),
		Email:  strings.TrimSpace(req.Email),
		Phone:  strings.TrimSpace(req.Phone),
		Notes:  req.Notes,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) GetAccountByID(c *gin.Context) {
	resp, err := s.accountSvc.GetByID(c.Request.Context(), accountdomain.GetAccountRequest{
		ID: strings.TrimSpace(c.Param("id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) AddMember(c *gin.Context) {
	var req addMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.accountSvc.AddMember(c.Request.Context(), accountdomain.AddMemberRequest{
		AccountID: strings.TrimSpace(c.Param("id")),
		Name:      strings.TrimSpace(req.Name),
		Grade:     strings.TrimSpace(req.Grade),
		School:    strings.TrimSpace(req.School),
		BirthYear: req.BirthYear,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}
