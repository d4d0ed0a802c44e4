package service

import (
	"cmp"
	"context"
	"slices"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/tutorly/internal/directory/domain"
	"github.com/smallbiznis/tutorly/internal/observability/tracing"
	"github.com/smallbiznis/tutorly/pkg/db/pagination"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// aggregateStrategy sorts every matching id by balance before slicing, then
// hydrates only the ids on the requested page.
type aggregateStrategy struct {
	svc *Service
}

type balanceKey struct {
	id      snowflake.ID
	balance decimal.Decimal
}

func (st *aggregateStrategy) run(ctx context.Context, q query) (outcome, error) {
	ceiling := st.svc.config.Get().AggregateCeiling

	ids, err := st.svc.repo.ListIDs(ctx, st.svc.db, q.orgID, q.filter, ceiling+1)
	if err != nil {
		return outcome{}, domain.WrapStage(ctx, domain.StageList, err)
	}
	truncated := len(ids) > ceiling
	if truncated {
		ids = ids[:ceiling]
		st.svc.log.Warn("balance sort truncated at ceiling", zap.Int("ceiling", ceiling))
	}

	actx, finish := tracing.StartStage(ctx, string(domain.StageAggregate), attribute.Int("accounts", len(ids)))
	balances, err := st.svc.balances.Balances(actx, ids)
	finish(err)
	if err != nil {
		return outcome{}, domain.WrapStage(ctx, domain.StageAggregate, err)
	}

	keys := make([]balanceKey, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, balanceKey{id: id, balance: balances[id]})
	}
	slices.SortStableFunc(keys, func(a, b balanceKey) int {
		c := a.balance.Cmp(b.balance)
		if c == 0 {
			return cmp.Compare(a.id, b.id)
		}
		if q.desc {
			return -c
		}
		return c
	})

	pageKeys := pagination.Slice(keys, q.window)
	pageIDs := make([]snowflake.ID, 0, len(pageKeys))
	for _, key := range pageKeys {
		pageIDs = append(pageIDs, key.id)
	}

	accounts, err := st.svc.hydrate(ctx, q.orgID, pageIDs)
	if err != nil {
		return outcome{}, domain.WrapStage(ctx, domain.StageHydrate, err)
	}

	return outcome{
		accounts:  toViews(accounts, balances),
		total:     int64(len(keys)),
		truncated: truncated,
	}, nil
}
