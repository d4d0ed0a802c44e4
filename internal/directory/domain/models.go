package domain

import (
	"github.com/shopspring/decimal"
	accountdomain "github.com/smallbiznis/tutorly/internal/account/domain"
	"github.com/smallbiznis/tutorly/pkg/db/pagination"
)

// Strategy names how a directory query was executed.
type Strategy string

const (
	// StrategySearch resolves a free-text search, then sorts candidates in memory.
	StrategySearch Strategy = "search"
	// StrategyAggregate sorts every matching id by computed balance before paging.
	StrategyAggregate Strategy = "aggregate"
	// StrategyField pages natively in the store.
	StrategyField Strategy = "field"
	// StrategyClient re-sorts a baseline page; ordering is page-local.
	StrategyClient Strategy = "client"
)

type SortField string

const (
	SortName         SortField = "name"
	SortStatus       SortField = "status"
	SortEmail        SortField = "email"
	SortCreatedAt    SortField = "created_at"
	SortTotalBalance SortField = "total_balance"
	SortMemberCount  SortField = "member_count"
)

func (f SortField) Valid() bool {
	switch f {
	case SortName, SortStatus, SortEmail, SortCreatedAt, SortTotalBalance, SortMemberCount:
		return true
	default:
		return false
	}
}

// Native reports whether the store can order by f directly.
func (f SortField) Native() bool {
	switch f {
	case SortName, SortStatus, SortEmail, SortCreatedAt:
		return true
	default:
		return false
	}
}

type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// QueryRequest describes one page of the directory. Zero values select
// defaults: all statuses, no search, name ascending, configured page size.
type QueryRequest struct {
	Status        string        `json:"status"`
	Search        string        `json:"search"`
	SortField     SortField     `json:"sort"`
	SortDirection SortDirection `json:"direction"`
	Page          int           `json:"page"`
	PageSize      int           `json:"page_size"`
}

// AccountView is an account with its members and derived columns.
type AccountView struct {
	accountdomain.Account
	MemberCount  int             `json:"member_count"`
	TotalBalance decimal.Decimal `json:"total_balance"`
}

// Page is one page of directory results.
type Page struct {
	Accounts  []AccountView       `json:"accounts"`
	PageInfo  pagination.PageInfo `json:"page_info"`
	Strategy  Strategy            `json:"strategy"`
	Truncated bool                `json:"truncated"`
}

// SearchResult is the deduplicated union of both search branches.
type SearchResult struct {
	Accounts  []accountdomain.Account
	Truncated bool
}
