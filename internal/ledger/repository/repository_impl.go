package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tutorly/internal/ledger/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, entry *domain.LedgerEntry) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO ledger_entries (id, org_id, account_id, number, status, balance_due, currency, due_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.OrgID,
		entry.AccountID,
		entry.Number,
		entry.Status,
		entry.BalanceDue,
		entry.Currency,
		entry.DueAt,
		entry.CreatedAt,
		entry.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*domain.LedgerEntry, error) {
	var entry domain.LedgerEntry
	err := db.WithContext(ctx).
		Where("org_id = ? AND id = ?", orgID, id).
		Limit(1).
		Find(&entry).Error
	if err != nil {
		return nil, err
	}
	if entry.ID == 0 {
		return nil, nil
	}
	return &entry, nil
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID, status domain.EntryStatus, at time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE ledger_entries SET status = ?, updated_at = ? WHERE org_id = ? AND id = ?`,
		status, at, orgID, id,
	).Error
}

func (r *repo) OpenBalanceRows(ctx context.Context, db *gorm.DB, orgID snowflake.ID, accountIDs []snowflake.ID) ([]domain.BalanceRow, error) {
	if len(accountIDs) == 0 {
		return []domain.BalanceRow{}, nil
	}

	var rows []domain.BalanceRow
	err := db.WithContext(ctx).Raw(
		`SELECT account_id, balance_due
		 FROM ledger_entries
		 WHERE org_id = ? AND account_id IN ? AND status IN ?`,
		orgID, accountIDs, domain.OpenStatuses,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
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
		 FROM ledger_entries
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
