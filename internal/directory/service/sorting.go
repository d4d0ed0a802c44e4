package service

import (
	"cmp"
	"slices"
	"strings"

	"github.com/smallbiznis/tutorly/internal/directory/domain"
)

// sortViews orders views by field. Equal keys fall back to id ascending in
// both directions, so repeated calls yield the same order.
func sortViews(views []domain.AccountView, field domain.SortField, desc bool) {
	slices.SortStableFunc(views, func(a, b domain.AccountView) int {
		c := compareField(a, b, field)
		if c == 0 {
			return cmp.Compare(a.ID, b.ID)
		}
		if desc {
			return -c
		}
		return c
	})
}

func compareField(a, b domain.AccountView, field domain.SortField) int {
	switch field {
	case domain.SortName:
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	case domain.SortEmail:
		return strings.Compare(strings.ToLower(a.Email), strings.ToLower(b.Email))
	case domain.SortStatus:
		return strings.Compare(string(a.Status), string(b.Status))
	case domain.SortCreatedAt:
		return a.CreatedAt.Compare(b.CreatedAt)
	case domain.SortTotalBalance:
		return a.TotalBalance.Cmp(b.TotalBalance)
	case domain.SortMemberCount:
		return cmp.Compare(a.MemberCount, b.MemberCount)
	default:
		return 0
	}
}
