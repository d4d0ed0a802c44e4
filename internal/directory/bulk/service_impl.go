package bulk

import (
	"context"
	"errors"
	"maps"
	"strings"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/smallbiznis/tutorly/internal/account/domain"
	"github.com/smallbiznis/tutorly/internal/clock"
	"github.com/smallbiznis/tutorly/internal/config"
	"github.com/smallbiznis/tutorly/internal/directory/domain"
	enrollmentdomain "github.com/smallbiznis/tutorly/internal/enrollment/domain"
	ledgerdomain "github.com/smallbiznis/tutorly/internal/ledger/domain"
	obsmetrics "github.com/smallbiznis/tutorly/internal/observability/metrics"
	"github.com/smallbiznis/tutorly/internal/orgcontext"
	pkgdb "github.com/smallbiznis/tutorly/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	reasonNotFound   = "not_found"
	reasonStoreError = "store_error"
	reasonTimeout    = "timeout"
)

// inListChunkSize caps the ids bound into a single IN list.
const inListChunkSize = 500

type Params struct {
	fx.In

	DB             *gorm.DB
	Log            *zap.Logger
	Clock          clock.Clock
	AccountRepo    accountdomain.Repository
	EnrollmentRepo enrollmentdomain.Repository
	LedgerRepo     ledgerdomain.Repository
	Balances       domain.BalanceAggregator
	Config         *config.DirectoryConfigHolder
	Metrics        *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db             *gorm.DB
	log            *zap.Logger
	clock          clock.Clock
	accountRepo    accountdomain.Repository
	enrollmentRepo enrollmentdomain.Repository
	ledgerRepo     ledgerdomain.Repository
	balances       domain.BalanceAggregator
	config         *config.DirectoryConfigHolder
	metrics        *obsmetrics.Metrics
	chunkSize      int
}

func New(p Params) domain.BulkService {
	return &Service{
		db:             p.DB,
		log:            p.Log.Named("directory.bulk"),
		clock:          p.Clock,
		accountRepo:    p.AccountRepo,
		enrollmentRepo: p.EnrollmentRepo,
		ledgerRepo:     p.LedgerRepo,
		balances:       p.Balances,
		config:         p.Config,
		metrics:        p.Metrics,
		chunkSize:      inListChunkSize,
	}
}

// UpdateStatus sets status on every id in batches, one transaction per
// batch. Rows already carrying the status are rewritten, so retries are
// harmless. When some ids fail the result is returned together with a
// *domain.PartialBulkFailure.
func (s *Service) UpdateStatus(ctx context.Context, ids []snowflake.ID, status string) (domain.UpdateResult, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.UpdateResult{}, domain.ErrInvalidOrganization
	}

	target := accountdomain.Status(strings.ToLower(strings.TrimSpace(status)))
	if !target.Valid() {
		return domain.UpdateResult{}, domain.NewValidationError("status", "unsupported")
	}
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return domain.UpdateResult{}, domain.NewValidationError("ids", "required")
	}

	cfg := s.config.Get()
	ctx, cancel := context.WithTimeout(ctx, cfg.BulkTimeout)
	defer cancel()

	result := domain.UpdateResult{
		Updated: make([]snowflake.ID, 0, len(ids)),
		Failed:  []domain.FailedItem{},
	}
	for _, batch := range batches(ids, cfg.BulkBatchSize) {
		var existing []snowflake.ID
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			found, err := s.accountRepo.ExistingIDs(ctx, tx, orgID, batch)
			if err != nil {
				return err
			}
			if _, err := s.accountRepo.UpdateStatus(ctx, tx, orgID, found, target, s.clock.Now()); err != nil {
				return err
			}
			existing = found
			return nil
		})
		if err != nil {
			reason := reasonStoreError
			if pkgdb.IsTimeoutErr(err) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
				reason = reasonTimeout
			}
			s.log.Error("bulk status batch failed", zap.Int("batch_size", len(batch)), zap.Error(err))
			for _, id := range batch {
				result.Failed = append(result.Failed, domain.FailedItem{ID: id, Reason: reason})
			}
			continue
		}

		found := make(map[snowflake.ID]struct{}, len(existing))
		for _, id := range existing {
			found[id] = struct{}{}
		}
		for _, id := range batch {
			if _, ok := found[id]; ok {
				result.Updated = append(result.Updated, id)
			} else {
				result.Failed = append(result.Failed, domain.FailedItem{ID: id, Reason: reasonNotFound})
			}
		}
	}

	outcome := "success"
	var err error
	if len(result.Failed) > 0 {
		outcome = "partial"
		err = &domain.PartialBulkFailure{Failed: result.Failed}
	}
	s.metrics.RecordBulkOperation(ctx, "update_status", outcome, len(result.Updated))
	s.log.Info("bulk status applied",
		zap.String("status", string(target)),
		zap.Int("updated", len(result.Updated)),
		zap.Int("failed", len(result.Failed)),
	)
	return result, err
}

// Delete removes accounts and their members only when none of them owns
// enrollments or ledger entries. Any blocker refuses the whole request.
func (s *Service) Delete(ctx context.Context, ids []snowflake.ID) (domain.DeleteResult, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.DeleteResult{}, domain.ErrInvalidOrganization
	}
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return domain.DeleteResult{}, domain.NewValidationError("ids", "required")
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.Get().BulkTimeout)
	defer cancel()

	blocking, err := s.blockers(ctx, s.db, orgID, ids)
	if err != nil {
		return domain.DeleteResult{}, err
	}
	if len(blocking) > 0 {
		s.metrics.RecordBulkOperation(ctx, "delete", "blocked", 0)
		return domain.DeleteResult{}, &domain.ReferentialIntegrityError{Blocking: blocking}
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		blocking, err := s.blockers(ctx, tx, orgID, ids)
		if err != nil {
			return err
		}
		if len(blocking) > 0 {
			return &domain.ReferentialIntegrityError{Blocking: blocking}
		}
		for _, chunk := range batches(ids, s.chunkSize) {
			if _, err := s.accountRepo.DeleteWithMembers(ctx, tx, orgID, chunk); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		var integrity *domain.ReferentialIntegrityError
		if errors.As(err, &integrity) {
			s.metrics.RecordBulkOperation(ctx, "delete", "blocked", 0)
		} else {
			s.metrics.RecordBulkOperation(ctx, "delete", "error", 0)
		}
		return domain.DeleteResult{}, err
	}

	s.metrics.RecordBulkOperation(ctx, "delete", "success", len(ids))
	s.log.Info("bulk delete applied", zap.Int("deleted", len(ids)))
	return domain.DeleteResult{Deleted: ids}, nil
}

func (s *Service) blockers(ctx context.Context, db *gorm.DB, orgID snowflake.ID, ids []snowflake.ID) ([]domain.BlockingAccount, error) {
	found := make(map[snowflake.ID]struct{}, len(ids))
	enrollments := make(map[snowflake.ID]int64)
	entries := make(map[snowflake.ID]int64)
	for _, chunk := range batches(ids, s.chunkSize) {
		existing, err := s.accountRepo.ExistingIDs(ctx, db, orgID, chunk)
		if err != nil {
			return nil, err
		}
		for _, id := range existing {
			found[id] = struct{}{}
		}
		counts, err := s.enrollmentRepo.CountByAccounts(ctx, db, orgID, chunk)
		if err != nil {
			return nil, err
		}
		maps.Copy(enrollments, counts)
		counts, err = s.ledgerRepo.CountByAccounts(ctx, db, orgID, chunk)
		if err != nil {
			return nil, err
		}
		maps.Copy(entries, counts)
	}

	var blocking []domain.BlockingAccount
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			blocking = append(blocking, domain.BlockingAccount{ID: id, Reason: domain.BlockNotFound})
			continue
		}
		if enrollments[id] > 0 {
			blocking = append(blocking, domain.BlockingAccount{ID: id, Reason: domain.BlockHasEnrollments})
		}
		if entries[id] > 0 {
			blocking = append(blocking, domain.BlockingAccount{ID: id, Reason: domain.BlockHasLedgerEntries})
		}
	}
	return blocking, nil
}

func batches(ids []snowflake.ID, size int) [][]snowflake.ID {
	if size <= 0 {
		size = len(ids)
	}
	out := make([][]snowflake.ID, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		out = append(out, ids[start:min(start+size, len(ids))])
	}
	return out
}

func uniqueIDs(ids []snowflake.ID) []snowflake.ID {
	seen := make(map[snowflake.ID]struct{}, len(ids))
	out := make([]snowflake.ID, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
