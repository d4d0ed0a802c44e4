package service

import (
	"context"

	"github.com/smallbiznis/tutorly/internal/directory/domain"
	"github.com/smallbiznis/tutorly/pkg/db/pagination"
)

// searchStrategy sorts the full candidate set in memory. The candidate set
// is bounded by the search ceiling, so total is exact up to truncation.
type searchStrategy struct {
	svc *Service
}

func (st *searchStrategy) run(ctx context.Context, q query) (outcome, error) {
	result, err := st.svc.searcher.Resolve(ctx, q.search, q.filter)
	if err != nil {
		return outcome{}, domain.WrapStage(ctx, domain.StageSearch, err)
	}

	balances, err := st.svc.balances.Balances(ctx, accountIDs(result.Accounts))
	if err != nil {
		return outcome{}, domain.WrapStage(ctx, domain.StageAggregate, err)
	}

	views := toViews(result.Accounts, balances)
	sortViews(views, q.sort, q.desc)

	return outcome{
		accounts:  pagination.Slice(views, q.window),
		total:     int64(len(views)),
		truncated: result.Truncated,
	}, nil
}
