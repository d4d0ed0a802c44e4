package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entry *LedgerEntry) error
	FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*LedgerEntry, error)
	UpdateStatus(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID, status EntryStatus, at time.Time) error

	// OpenBalanceRows reads ledger_entries directly, one row per open entry.
	OpenBalanceRows(ctx context.Context, db *gorm.DB, orgID snowflake.ID, accountIDs []snowflake.ID) ([]BalanceRow, error)
	// CountByAccounts counts entries of any status per account.
	CountByAccounts(ctx context.Context, db *gorm.DB, orgID snowflake.ID, accountIDs []snowflake.ID) (map[snowflake.ID]int64, error)
}
