package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, enrollment *Enrollment) error
	// CountByAccounts counts enrollments of any status per account.
	CountByAccounts(ctx context.Context, db *gorm.DB, orgID snowflake.ID, accountIDs []snowflake.ID) (map[snowflake.ID]int64, error)
}
