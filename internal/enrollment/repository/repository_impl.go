package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tutorly/internal/enrollment/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, enrollment *domain.Enrollment) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO enrollments (id, org_id, account_id, member_id, service_name, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		enrollment.ID,
		enrollment.OrgID,
		enrollment.AccountID,
		enrollment.MemberID,
		enrollment.ServiceName,
		enrollment.Status,
		enrollment.CreatedAt,
		enrollment.UpdatedAt,
	).Error
}

func (r *repo) CountByAccounts(ctx context.Context, db *gorm.DB, orgID snowflake.ID, accountIDs []snowflake.ID) (map[snowflake.ID]int64, error) {
	counts := make(map[snowflake.ID]int64, len(accountIDs))
	if len(accountIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		AccountID snowflake.ID
		Total     int64
	}
	err := db.WithContext(ctx).Raw(
		`SELECT account_id, COUNT(*) AS total
		 FROM enrollments
		 WHERE org_id = ? AND account_id IN ?
		 GROUP BY account_id`,
		orgID, accountIDs,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		counts[row.AccountID] = row.Total
	}
	return counts, nil
}
