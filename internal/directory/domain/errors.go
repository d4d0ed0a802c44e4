package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrAccountNotFound     = errors.New("account_not_found")
)

// ValidationError rejects a request before any store access.
type ValidationError struct {
	Field  string
	Code   string
	Detail string
}

func (e *ValidationError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Field, e.Code, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Code)
}

func NewValidationError(field, code string) *ValidationError {
	return &ValidationError{Field: field, Code: code}
}

type Stage string

const (
	StageValidate  Stage = "validate"
	StageSearch    Stage = "search"
	StageAggregate Stage = "aggregate"
	StageHydrate   Stage = "hydrate"
	StageCount     Stage = "count"
	StageList      Stage = "list"
)

// StageError reports which step of a query failed. Timeouts are retryable.
type StageError struct {
	Stage   Stage
	Err     error
	Timeout bool
}

func (e *StageError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("directory %s stage timed out: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("directory %s stage failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

func (e *StageError) Retryable() bool { return e.Timeout }

// WrapStage tags err with stage. Existing stage errors pass through untouched.
func WrapStage(ctx context.Context, stage Stage, err error) error {
	if err == nil {
		return nil
	}
	var existing *StageError
	if errors.As(err, &existing) {
		return err
	}
	timeout := errors.Is(err, context.DeadlineExceeded)
	if ctx != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		timeout = true
	}
	return &StageError{Stage: stage, Err: err, Timeout: timeout}
}

type BlockReason string

const (
	BlockNotFound         BlockReason = "not_found"
	BlockHasEnrollments   BlockReason = "has_enrollments"
	BlockHasLedgerEntries BlockReason = "has_ledger_entries"
)

type BlockingAccount struct {
	ID     snowflake.ID `json:"id"`
	Reason BlockReason  `json:"reason"`
}

// ReferentialIntegrityError refuses a whole bulk delete.
type ReferentialIntegrityError struct {
	Blocking []BlockingAccount
}

func (e *ReferentialIntegrityError) Error() string {
	parts := make([]string, 0, len(e.Blocking))
	for _, b := range e.Blocking {
		parts = append(parts, b.ID.String()+"="+string(b.Reason))
	}
	return "accounts cannot be deleted: " + strings.Join(parts, ", ")
}

type FailedItem struct {
	ID     snowflake.ID `json:"id"`
	Reason string       `json:"reason"`
}

// PartialBulkFailure accompanies a bulk result in which some ids failed.
type PartialBulkFailure struct {
	Failed []FailedItem
}

func (e *PartialBulkFailure) Error() string {
	return fmt.Sprintf("bulk operation failed for %d account(s)", len(e.Failed))
}
