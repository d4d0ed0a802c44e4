package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type CreateEntryRequest struct {
	AccountID  string
	Number     string
	Status     EntryStatus
	BalanceDue string
	Currency   string
	DueAt      *time.Time
}

type UpdateStatusRequest struct {
	ID     string
	Status EntryStatus
}

type Service interface {
	CreateEntry(context.Context, CreateEntryRequest) (LedgerEntry, error)
	UpdateStatus(context.Context, UpdateStatusRequest) (LedgerEntry, error)

	// Balances sums balance_due over open entries, each entry once. Every
	// requested id is present in the result.
	Balances(ctx context.Context, accountIDs []snowflake.ID) (map[snowflake.ID]decimal.Decimal, error)
	CountByAccounts(ctx context.Context, accountIDs []snowflake.ID) (map[snowflake.ID]int64, error)
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidAccount      = errors.New("invalid_account")
	ErrInvalidNumber       = errors.New("invalid_number")
	ErrInvalidStatus       = errors.New("invalid_status")
	ErrInvalidBalance      = errors.New("invalid_balance_due")
	ErrInvalidCurrency     = errors.New("invalid_currency")
	ErrInvalidID           = errors.New("invalid_id")
	ErrAccountNotFound     = errors.New("account_not_found")
	ErrNotFound            = errors.New("not_found")
	ErrDuplicateNumber     = errors.New("duplicate_number")
)
