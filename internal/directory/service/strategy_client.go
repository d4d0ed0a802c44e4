package service

import (
	"context"

	accountdomain "github.com/smallbiznis/tutorly/internal/account/domain"
)

// clientStrategy fetches the page under the default name ordering and
// re-sorts only that page by member count. Rows are never compared across
// pages.
type clientStrategy struct {
	field *fieldStrategy
}

func (st *clientStrategy) run(ctx context.Context, q query) (outcome, error) {
	result, err := st.field.page(ctx, q, accountdomain.ListOrder{Column: accountdomain.SortColumnName})
	if err != nil {
		return outcome{}, err
	}
	sortViews(result.accounts, q.sort, q.desc)
	return result, nil
}
