package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tutorly/internal/account/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, account *domain.Account) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO accounts (id, org_id, name, status, email, phone, notes, metadata, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		account.ID,
		account.OrgID,
		account.Name,
		account.Status,
		account.Email,
		account.Phone,
		account.Notes,
		account.Metadata,
		account.CreatedAt,
		account.UpdatedAt,
	).Error
}

func (r *repo) InsertMember(ctx context.Context, db *gorm.DB, member *domain.Member) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO members (id, org_id, account_id, name, grade, school, birth_year, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		member.ID,
		member.OrgID,
		member.AccountID,
		member.Name,
		member.Grade,
		member.School,
		member.BirthYear,
		member.CreatedAt,
		member.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*domain.Account, error) {
	var account domain.Account
	err := db.WithContext(ctx).
		Where("org_id = ? AND id = ?", orgID, id).
		Limit(1).
		Find(&account).Error
	if err != nil {
		return nil, err
	}
	if account.ID == 0 {
		return nil, nil
	}
	return &account, nil
}

func (r *repo) FindByIDs(ctx context.Context, db *gorm.DB, orgID snowflake.ID, ids []snowflake.ID) ([]domain.Account, error) {
	if len(ids) == 0 {
		return []domain.Account{}, nil
	}

	var rows []domain.Account
	err := db.WithContext(ctx).
		Where("org_id = ? AND id IN ?", orgID, ids).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	byID := make(map[snowflake.ID]domain.Account, len(rows))
	for _, row := range rows {
		byID[row.ID] = row
	}
	accounts := make([]domain.Account, 0, len(rows))
	for _, id := range ids {
		if account, ok := byID[id]; ok {
			accounts = append(accounts, account)
			delete(byID, id)
		}
	}
	return accounts, nil
}

func (r *repo) LoadMembers(ctx context.Context, db *gorm.DB, orgID snowflake.ID, accountIDs []snowflake.ID) (map[snowflake.ID][]domain.Member, error) {
	grouped := make(map[snowflake.ID][]domain.Member, len(accountIDs))
	if len(accountIDs) == 0 {
		return grouped, nil
	}

	var members []domain.Member
	err := db.WithContext(ctx).
		Where("org_id = ? AND account_id IN ?", orgID, accountIDs).
		Order("LOWER(name) ASC, id ASC").
		Find(&members).Error
	if err != nil {
		return nil, err
	}
	for _, member := range members {
		grouped[member.AccountID] = append(grouped[member.AccountID], member)
	}
	return grouped, nil
}

func (r *repo) ListPage(ctx context.Context, db *gorm.DB, orgID snowflake.ID, filter domain.ListFilter, order domain.ListOrder, offset, limit int) ([]domain.Account, error) {
	orderBy, err := orderClause(order)
	if err != nil {
		return nil, err
	}

	var accounts []domain.Account
	err = applyFilter(db.WithContext(ctx).Model(&domain.Account{}), orgID, filter).
		Order(orderBy).
		Offset(offset).
		Limit(limit).
		Find(&accounts).Error
	if err != nil {
		return nil, err
	}
	return accounts, nil
}

func (r *repo) ListIDs(ctx context.Context, db *gorm.DB, orgID snowflake.ID, filter domain.ListFilter, limit int) ([]snowflake.ID, error) {
	var ids []snowflake.ID
	err := applyFilter(db.WithContext(ctx).Model(&domain.Account{}), orgID, filter).
		Order("id ASC").
		Limit(limit).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *repo) Count(ctx context.Context, db *gorm.DB, orgID snowflake.ID, filter domain.ListFilter) (int64, error) {
	var count int64
	err := applyFilter(db.WithContext(ctx).Model(&domain.Account{}), orgID, filter).
		Count(&count).Error
	return count, err
}

func (r *repo) SearchAccounts(ctx context.Context, db *gorm.DB, orgID snowflake.ID, query string, filter domain.ListFilter, limit int) ([]domain.Account, error) {
	clause, args := containsMatcher(db, query).anyOf("name", "email", "phone")

	var accounts []domain.Account
	err := applyFilter(db.WithContext(ctx).Model(&domain.Account{}), orgID, filter).
		Where(clause, args...).
		Order("id ASC").
		Limit(limit).
		Find(&accounts).Error
	if err != nil {
		return nil, err
	}
	return accounts, nil
}

func (r *repo) SearchMemberAccountIDs(ctx context.Context, db *gorm.DB, orgID snowflake.ID, query string, filter domain.ListFilter, limit int) ([]snowflake.ID, error) {
	nameClause, nameArgs := containsMatcher(db, query).anyOf("m.name")
	sql := `SELECT DISTINCT m.account_id
		FROM members m
		JOIN accounts a ON a.id = m.account_id AND a.org_id = m.org_id
		WHERE m.org_id = ? AND ` + nameClause
	args := append([]any{orgID}, nameArgs...)
	if filter.Status != "" {
		sql += ` AND a.status = ?`
		args = append(args, filter.Status)
	}
	sql += ` ORDER BY m.account_id ASC LIMIT ?`
	args = append(args, limit)

	var ids []snowflake.ID
	if err := db.WithContext(ctx).Raw(sql, args...).Scan(&ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *repo) ExistingIDs(ctx context.Context, db *gorm.DB, orgID snowflake.ID, ids []snowflake.ID) ([]snowflake.ID, error) {
	if len(ids) == 0 {
		return []snowflake.ID{}, nil
	}
	var existing []snowflake.ID
	err := db.WithContext(ctx).
		Model(&domain.Account{}).
		Where("org_id = ? AND id IN ?", orgID, ids).
		Pluck("id", &existing).Error
	if err != nil {
		return nil, err
	}
	return existing, nil
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, orgID snowflake.ID, ids []snowflake.ID, status domain.Status, at time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := db.WithContext(ctx).
		Model(&domain.Account{}).
		Where("org_id = ? AND id IN ?", orgID, ids).
		Updates(map[string]any{
			"status":     status,
			"updated_at": at,
		})
	return result.RowsAffected, result.Error
}

func (r *repo) DeleteWithMembers(ctx context.Context, db *gorm.DB, orgID snowflake.ID, ids []snowflake.ID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	if err := db.WithContext(ctx).
		Where("org_id = ? AND account_id IN ?", orgID, ids).
		Delete(&domain.Member{}).Error; err != nil {
		return 0, err
	}
	result := db.WithContext(ctx).
		Where("org_id = ? AND id IN ?", orgID, ids).
		Delete(&domain.Account{})
	return result.RowsAffected, result.Error
}

func applyFilter(stmt *gorm.DB, orgID snowflake.ID, filter domain.ListFilter) *gorm.DB {
	stmt = stmt.Where("org_id = ?", orgID)
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	return stmt
}

func orderClause(order domain.ListOrder) (string, error) {
	var expr string
	switch order.Column {
	case domain.SortColumnName:
		expr = "LOWER(name)"
	case domain.SortColumnEmail:
		expr = "LOWER(email)"
	case domain.SortColumnStatus:
		expr = "status"
	case domain.SortColumnCreatedAt:
		expr = "created_at"
	default:
		return "", fmt.Errorf("unsupported sort column %q", order.Column)
	}
	dir := "ASC"
	if order.Desc {
		dir = "DESC"
	}
	return expr + " " + dir + ", id ASC", nil
}
