package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tutorly/internal/account/domain"
	"github.com/smallbiznis/tutorly/internal/clock"
	"github.com/smallbiznis/tutorly/internal/orgcontext"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("account.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateAccountRequest) (domain.Account, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.Account{}, domain.ErrInvalidOrganization
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Account{}, domain.ErrInvalidName
	}

	email := strings.TrimSpace(req.Email)
	if email != "" && !strings.Contains(email, "@") {
		return domain.Account{}, domain.ErrInvalidEmail
	}

	status := domain.Status(strings.ToLower(strings.TrimSpace(string(req.Status))))
	if status == "" {
		status = domain.StatusLead
	}
	if !status.Valid() {
		return domain.Account{}, domain.ErrInvalidStatus
	}

	now := s.clock.Now()
	account := domain.Account{
		ID:        s.genID.Generate(),
		OrgID:     orgID,
		Name:      name,
		Status:    status,
		Email:     email,
		Phone:     strings.TrimSpace(req.Phone),
		Notes:     strings.TrimSpace(req.Notes),
		Metadata:  datatypes.JSONMap{},
		CreatedAt: now,
		UpdatedAt: now,
		Members:   []domain.Member{},
	}

	if err := s.repo.Insert(ctx, s.db, &account); err != nil {
		return domain.Account{}, err
	}

	return account, nil
}

func (s *Service) AddMember(ctx context.Context, req domain.AddMemberRequest) (domain.Member, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.Member{}, domain.ErrInvalidOrganization
	}

	accountID, err := s.parseID(req.AccountID)
	if err != nil {
		return domain.Member{}, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Member{}, domain.ErrInvalidName
	}

	account, err := s.repo.FindByID(ctx, s.db, orgID, accountID)
	if err != nil {
		return domain.Member{}, err
	}
	if account == nil {
		return domain.Member{}, domain.ErrNotFound
	}

	now := s.clock.Now()
	member := domain.Member{
		ID:        s.genID.Generate(),
		OrgID:     orgID,
		AccountID: account.ID,
		Name:      name,
		Grade:     strings.TrimSpace(req.Grade),
		School:    strings.TrimSpace(req.School),
		BirthYear: req.BirthYear,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.InsertMember(ctx, s.db, &member); err != nil {
		return domain.Member{}, err
	}

	s.log.Debug("member added",
		zap.String("account_id", account.ID.String()),
		zap.String("member_id", member.ID.String()),
	)
	return member, nil
}

func (s *Service) GetByID(ctx context.Context, req domain.GetAccountRequest) (domain.Account, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.Account{}, domain.ErrInvalidOrganization
	}

	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.Account{}, err
	}

	item, err := s.repo.FindByID(ctx, s.db, orgID, id)
	if err != nil {
		return domain.Account{}, err
	}
	if item == nil {
		return domain.Account{}, domain.ErrNotFound
	}

	members, err := s.repo.LoadMembers(ctx, s.db, orgID, []snowflake.ID{item.ID})
	if err != nil {
		return domain.Account{}, err
	}
	item.Members = members[item.ID]
	if item.Members == nil {
		item.Members = []domain.Member{}
	}

	return *item, nil
}

func (s *Service) parseID(value string) (snowflake.ID, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, domain.ErrInvalidID
	}
	id, err := snowflake.ParseString(trimmed)
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
