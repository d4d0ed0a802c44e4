package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	ledgerdomain "github.com/smallbiznis/tutorly/internal/ledger/domain"
)

type createLedgerEntryRequest struct {
	AccountID  string `json:"account_id"`
	Number     string `json:"number"`
	Status     string `json:"status"`
	BalanceDue string `json:"balance_due"`
	Currency   string `json:"currency"`
	DueAt      string `json:"due_at"`
}

type updateLedgerEntryStatusRequest struct {
	Status string `json:"status"`
}

func (s *Server) CreateLedgerEntry(c *gin.Context) {
	var req createLedgerEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	dueAt, err := parseOptionalTime(req.DueAt, true)
	if err != nil {
		AbortWithError(c, newValidationError("due_at", "invalid_due_at", "invalid due_at"))
		return
	}

	resp, err := s.ledgerSvc.CreateEntry(c.Request.Context(), ledgerdomain.CreateEntryRequest{
		AccountID:  strings.TrimSpace(req.AccountID),
		Number:     strings.TrimSpace(req.Number),
		Status:     ledgerdomain.EntryStatus(strings.ToLower(strings.TrimSpace(req.Status))),
		BalanceDue: strings.TrimSpace(req.BalanceDue),
		Currency:   strings.TrimSpace(req.Currency),
		DueAt:      dueAt,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) UpdateLedgerEntryStatus(c *gin.Context) {
	var req updateLedgerEntryStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.ledgerSvc.UpdateStatus(c.Request.Context(), ledgerdomain.UpdateStatusRequest{
		ID:     strings.TrimSpace(c.Param("id")),
		Status: ledgerdomain.EntryStatus(strings.ToLower(strings.TrimSpace(req.Status))),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
