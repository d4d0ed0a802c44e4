package service

import (
	"context"

	accountdomain "github.com/smallbiznis/tutorly/internal/account/domain"
	"github.com/smallbiznis/tutorly/internal/directory/domain"
	"golang.org/x/sync/errgroup"
)

// fieldStrategy lets the store order and page by a native column; the page
// and the count are read concurrently.
type fieldStrategy struct {
	svc *Service
}

func (st *fieldStrategy) run(ctx context.Context, q query) (outcome, error) {
	return st.page(ctx, q, accountdomain.ListOrder{
		Column: accountdomain.SortColumn(q.sort),
		Desc:   q.desc,
	})
}

func (st *fieldStrategy) page(ctx context.Context, q query, order accountdomain.ListOrder) (outcome, error) {
	var (
		accounts []accountdomain.Account
		total    int64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := st.svc.repo.ListPage(gctx, st.svc.db, q.orgID, q.filter, order, q.window.Offset(), q.window.PageSize)
		if err != nil {
			return domain.WrapStage(gctx, domain.StageList, err)
		}
		accounts = rows
		return nil
	})
	g.Go(func() error {
		count, err := st.svc.repo.Count(gctx, st.svc.db, q.orgID, q.filter)
		if err != nil {
			return domain.WrapStage(gctx, domain.StageCount, err)
		}
		total = count
		return nil
	})
	if err := g.Wait(); err != nil {
		return outcome{}, err
	}

	if err := st.svc.attachMembers(ctx, q.orgID, accounts); err != nil {
		return outcome{}, domain.WrapStage(ctx, domain.StageHydrate, err)
	}

	balances, err := st.svc.balances.Balances(ctx, accountIDs(accounts))
	if err != nil {
		return outcome{}, domain.WrapStage(ctx, domain.StageAggregate, err)
	}

	return outcome{accounts: toViews(accounts, balances), total: total}, nil
}
