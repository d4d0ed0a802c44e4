package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// SortColumn lists the account columns the store can order natively.
type SortColumn string

const (
	SortColumnName      SortColumn = "name"
	SortColumnStatus    SortColumn = "status"
	SortColumnEmail     SortColumn = "email"
	SortColumnCreatedAt SortColumn = "created_at"
)

// ListFilter narrows account listings. A zero value matches every account.
type ListFilter struct {
	Status Status
}

// ListOrder is a native store ordering; ties always break on id ascending.
type ListOrder struct {
	Column SortColumn
	Desc   bool
}

// Repository is the data-access boundary of the directory. No method reads
// a view joining accounts, members and ledger entries together.
type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, account *Account) error
	InsertMember(ctx context.Context, db *gorm.DB, member *Member) error
	FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*Account, error)

	// FindByIDs returns accounts in the order of ids, skipping unknown ids.
	// Members are not loaded.
	FindByIDs(ctx context.Context, db *gorm.DB, orgID snowflake.ID, ids []snowflake.ID) ([]Account, error)
	// LoadMembers returns members grouped by owning account, ordered by name then id.
	LoadMembers(ctx context.Context, db *gorm.DB, orgID snowflake.ID, accountIDs []snowflake.ID) (map[snowflake.ID][]Member, error)

	ListPage(ctx context.Context, db *gorm.DB, orgID snowflake.ID, filter ListFilter, order ListOrder, offset, limit int) ([]Account, error)
	// ListIDs returns up to limit matching ids ordered by id.
	ListIDs(ctx context.Context, db *gorm.DB, orgID snowflake.ID, filter ListFilter, limit int) ([]snowflake.ID, error)
	Count(ctx context.Context, db *gorm.DB, orgID snowflake.ID, filter ListFilter) (int64, error)

	// SearchAccounts matches name, email or phone (case-insensitive substring).
	SearchAccounts(ctx context.Context, db *gorm.DB, orgID snowflake.ID, query string, filter ListFilter, limit int) ([]Account, error)
	// SearchMemberAccountIDs returns distinct owners of members whose name matches.
	SearchMemberAccountIDs(ctx context.Context, db *gorm.DB, orgID snowflake.ID, query string, filter ListFilter, limit int) ([]snowflake.ID, error)

	ExistingIDs(ctx context.Context, db *gorm.DB, orgID snowflake.ID, ids []snowflake.ID) ([]snowflake.ID, error)
	UpdateStatus(ctx context.Context, db *gorm.DB, orgID snowflake.ID, ids []snowflake.ID, status Status, at time.Time) (int64, error)
	// DeleteWithMembers removes the accounts and the members they own.
	DeleteWithMembers(ctx context.Context, db *gorm.DB, orgID snowflake.ID, ids []snowflake.ID) (int64, error)
}
