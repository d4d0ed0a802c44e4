package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	accountdomain "github.com/smallbiznis/tutorly/internal/account/domain"
	"github.com/smallbiznis/tutorly/internal/clock"
	ledgerdomain "github.com/smallbiznis/tutorly/internal/ledger/domain"
	"github.com/smallbiznis/tutorly/internal/orgcontext"
	pkgdb "github.com/smallbiznis/tutorly/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// balanceChunkSize bounds the IN list of a single balance read.
const balanceChunkSize = 500

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Repo        ledgerdomain.Repository
	AccountRepo accountdomain.Repository
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	repo        ledgerdomain.Repository
	accountRepo accountdomain.Repository
}

func NewService(p Params) ledgerdomain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("ledger.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		repo:        p.Repo,
		accountRepo: p.AccountRepo,
	}
}

func (s *Service) CreateEntry(ctx context.Context, req ledgerdomain.CreateEntryRequest) (ledgerdomain.LedgerEntry, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return ledgerdomain.LedgerEntry{}, ledgerdomain.ErrInvalidOrganization
	}

	accountID, err := parseID(req.AccountID, ledgerdomain.ErrInvalidAccount)
	if err != nil {
		return ledgerdomain.LedgerEntry{}, err
	}

	number := strings.TrimSpace(req.Number)
	if number == "" {
		return ledgerdomain.LedgerEntry{}, ledgerdomain.ErrInvalidNumber
	}

	status, err := normalizeStatus(req.Status, ledgerdomain.EntryStatusDraft)
	if err != nil {
		return ledgerdomain.LedgerEntry{}, err
	}

	balance, err := decimal.NewFromString(strings.TrimSpace(req.BalanceDue))
	if err != nil || balance.IsNegative() {
		return ledgerdomain.LedgerEntry{}, ledgerdomain.ErrInvalidBalance
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = "USD"
	}
	if len(currency) != 3 {
		return ledgerdomain.LedgerEntry{}, ledgerdomain.ErrInvalidCurrency
	}

	account, err := s.accountRepo.FindByID(ctx, s.db, orgID, accountID)
	if err != nil {
		return ledgerdomain.LedgerEntry{}, err
	}
	if account == nil {
		return ledgerdomain.LedgerEntry{}, ledgerdomain.ErrAccountNotFound
	}

	now := s.clock.Now()
	entry := ledgerdomain.LedgerEntry{
		ID:         s.genID.Generate(),
		OrgID:      orgID,
		AccountID:  account.ID,
		Number:     number,
		Status:     status,
		BalanceDue: balance,
		Currency:   currency,
		DueAt:      req.DueAt,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.Insert(ctx, s.db, &entry); err != nil {
		if pkgdb.IsDuplicateKeyErr(err) {
			return ledgerdomain.LedgerEntry{}, ledgerdomain.ErrDuplicateNumber
		}
		return ledgerdomain.LedgerEntry{}, err
	}
	return entry, nil
}

func (s *Service) UpdateStatus(ctx context.Context, req ledgerdomain.UpdateStatusRequest) (ledgerdomain.LedgerEntry, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return ledgerdomain.LedgerEntry{}, ledgerdomain.ErrInvalidOrganization
	}

	id, err := parseID(req.ID, ledgerdomain.ErrInvalidID)
	if err != nil {
		return ledgerdomain.LedgerEntry{}, err
	}
	status, err := normalizeStatus(req.Status, "")
	if err != nil {
		return ledgerdomain.LedgerEntry{}, err
	}

	entry, err := s.repo.FindByID(ctx, s.db, orgID, id)
	if err != nil {
		return ledgerdomain.LedgerEntry{}, err
	}
	if entry == nil {
		return ledgerdomain.LedgerEntry{}, ledgerdomain.ErrNotFound
	}

	now := s.clock.Now()
	if err := s.repo.UpdateStatus(ctx, s.db, orgID, id, status, now); err != nil {
		return ledgerdomain.LedgerEntry{}, err
	}
	entry.Status = status
	entry.UpdatedAt = now
	return *entry, nil
}

func (s *Service) Balances(ctx context.Context, accountIDs []snowflake.ID) (map[snowflake.ID]decimal.Decimal, error) {
	if len(accountIDs) == 0 {
		return map[snowflake.ID]decimal.Decimal{}, nil
	}
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, ledgerdomain.ErrInvalidOrganization
	}

	ids := uniqueIDs(accountIDs)
	balances := make(map[snowflake.ID]decimal.Decimal, len(ids))
	for _, id := range ids {
		balances[id] = decimal.Zero
	}

	for start := 0; start < len(ids); start += balanceChunkSize {
		end := min(start+balanceChunkSize, len(ids))
		rows, err := s.repo.OpenBalanceRows(ctx, s.db, orgID, ids[start:end])
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			balances[row.AccountID] = balances[row.AccountID].Add(row.BalanceDue)
		}
	}

	return balances, nil
}

func (s *Service) CountByAccounts(ctx context.Context, accountIDs []snowflake.ID) (map[snowflake.ID]int64, error) {
	if len(accountIDs) == 0 {
		return map[snowflake.ID]int64{}, nil
	}
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, ledgerdomain.ErrInvalidOrganization
	}
	return s.repo.CountByAccounts(ctx, s.db, orgID, uniqueIDs(accountIDs))
}

func normalizeStatus(value ledgerdomain.EntryStatus, fallback ledgerdomain.EntryStatus) (ledgerdomain.EntryStatus, error) {
	status := ledgerdomain.EntryStatus(strings.ToLower(strings.TrimSpace(string(value))))
	if status == "" {
		status = fallback
	}
	if !status.Valid() {
		return "", ledgerdomain.ErrInvalidStatus
	}
	return status, nil
}

func parseID(value string, invalid error) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, invalid
	}
	return id, nil
}

func uniqueIDs(ids []snowflake.ID) []snowflake.ID {
	seen := make(map[snowflake.ID]struct{}, len(ids))
	out := make([]snowflake.ID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
