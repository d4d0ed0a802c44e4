package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	accountdomain "github.com/smallbiznis/tutorly/internal/account/domain"
)

// BalanceAggregator returns outstanding balances keyed by account id.
type BalanceAggregator interface {
	Balances(ctx context.Context, accountIDs []snowflake.ID) (map[snowflake.ID]decimal.Decimal, error)
}

type Searcher interface {
	Resolve(ctx context.Context, query string, filter accountdomain.ListFilter) (SearchResult, error)
}

type Service interface {
	Query(ctx context.Context, req QueryRequest) (Page, error)
}

type UpdateResult struct {
	Updated []snowflake.ID `json:"updated"`
	Failed  []FailedItem   `json:"failed"`
}

type DeleteResult struct {
	Deleted []snowflake.ID `json:"deleted"`
}

type BulkService interface {
	UpdateStatus(ctx context.Context, ids []snowflake.ID, status string) (UpdateResult, error)
	Delete(ctx context.Context, ids []snowflake.ID) (DeleteResult, error)
	ExportCSV(ctx context.Context, ids []snowflake.ID, fields []string) ([]byte, error)
}
