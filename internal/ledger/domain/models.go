package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// EntryStatus is the lifecycle state of an invoice-like ledger entry.
type EntryStatus string

const (
	EntryStatusDraft   EntryStatus = "draft"
	EntryStatusSent    EntryStatus = "sent"
	EntryStatusPartial EntryStatus = "partial"
	EntryStatusOverdue EntryStatus = "overdue"
	EntryStatusPaid    EntryStatus = "paid"
	EntryStatusVoid    EntryStatus = "void"
)

// OpenStatuses are the states whose balance_due counts toward an account balance.
var OpenStatuses = []EntryStatus{EntryStatusSent, EntryStatusPartial, EntryStatusOverdue}

func (s EntryStatus) Valid() bool {
	switch s {
	case EntryStatusDraft, EntryStatusSent, EntryStatusPartial,
		EntryStatusOverdue, EntryStatusPaid, EntryStatusVoid:
		return true
	default:
		return false
	}
}

func (s EntryStatus) IsOpen() bool {
	switch s {
	case EntryStatusSent, EntryStatusPartial, EntryStatusOverdue:
		return true
	default:
		return false
	}
}

// LedgerEntry is an invoice-like record owed by an account.
type LedgerEntry struct {
	ID         snowflake.ID    `gorm:"primaryKey" json:"id"`
	OrgID      snowflake.ID    `gorm:"not null;index" json:"organization_id"`
	AccountID  snowflake.ID    `gorm:"not null;index" json:"account_id"`
	Number     string          `gorm:"type:text;not null" json:"number"`
	Status     EntryStatus     `gorm:"type:text;not null;index" json:"status"`
	BalanceDue decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"balance_due"`
	Currency   string          `gorm:"type:text;not null" json:"currency"`
	DueAt      *time.Time      `json:"due_at,omitempty"`
	CreatedAt  time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt  time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (LedgerEntry) TableName() string { return "ledger_entries" }

// BalanceRow is one open entry's contribution to its account balance.
type BalanceRow struct {
	AccountID  snowflake.ID
	BalanceDue decimal.Decimal
}
