package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/smallbiznis/tutorly/internal/account/domain"
	"github.com/smallbiznis/tutorly/internal/clock"
	"github.com/smallbiznis/tutorly/internal/enrollment/domain"
	"github.com/smallbiznis/tutorly/internal/orgcontext"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Repo        domain.Repository
	AccountRepo accountdomain.Repository
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	repo        domain.Repository
	accountRepo accountdomain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("enrollment.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		repo:        p.Repo,
		accountRepo: p.AccountRepo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateEnrollmentRequest) (domain.Enrollment, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.Enrollment{}, domain.ErrInvalidOrganization
	}

	accountID, err := snowflake.ParseString(strings.TrimSpace(req.AccountID))
	if err != nil || accountID == 0 {
		return domain.Enrollment{}, domain.ErrInvalidAccount
	}

	var memberID *snowflake.ID
	if raw := strings.TrimSpace(req.MemberID); raw != "" {
		parsed, err := snowflake.ParseString(raw)
		if err != nil || parsed == 0 {
			return domain.Enrollment{}, domain.ErrInvalidMember
		}
		memberID = &parsed
	}

	serviceName := strings.TrimSpace(req.ServiceName)
	if serviceName == "" {
		return domain.Enrollment{}, domain.ErrInvalidServiceName
	}

	status := domain.Status(strings.ToLower(strings.TrimSpace(string(req.Status))))
	if status == "" {
		status = domain.StatusActive
	}
	if !status.Valid() {
		return domain.Enrollment{}, domain.ErrInvalidStatus
	}

	account, err := s.accountRepo.FindByID(ctx, s.db, orgID, accountID)
	if err != nil {
		return domain.Enrollment{}, err
	}
	if account == nil {
		return domain.Enrollment{}, domain.ErrAccountNotFound
	}

	if memberID != nil {
		members, err := s.accountRepo.LoadMembers(ctx, s.db, orgID, []snowflake.ID{account.ID})
		if err != nil {
			return domain.Enrollment{}, err
		}
		if !ownsMember(members[account.ID], *memberID) {
			return domain.Enrollment{}, domain.ErrMemberNotFound
		}
	}

	now := s.clock.Now()
	enrollment := domain.Enrollment{
		ID:          s.genID.Generate(),
		OrgID:       orgID,
		AccountID:   account.ID,
		MemberID:    memberID,
		ServiceName: serviceName,
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Insert(ctx, s.db, &enrollment); err != nil {
		return domain.Enrollment{}, err
	}
	return enrollment, nil
}

func (s *Service) CountByAccounts(ctx context.Context, accountIDs []snowflake.ID) (map[snowflake.ID]int64, error) {
	if len(accountIDs) == 0 {
		return map[snowflake.ID]int64{}, nil
	}
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}
	return s.repo.CountByAccounts(ctx, s.db, orgID, accountIDs)
}

func ownsMember(members []accountdomain.Member, id snowflake.ID) bool {
	for _, member := range members {
		if member.ID == id {
			return true
		}
	}
	return false
}
