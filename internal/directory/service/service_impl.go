package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	accountdomain "github.com/smallbiznis/tutorly/internal/account/domain"
	"github.com/smallbiznis/tutorly/internal/config"
	"github.com/smallbiznis/tutorly/internal/directory/domain"
	obsmetrics "github.com/smallbiznis/tutorly/internal/observability/metrics"
	"github.com/smallbiznis/tutorly/internal/observability/tracing"
	"github.com/smallbiznis/tutorly/internal/orgcontext"
	"github.com/smallbiznis/tutorly/pkg/db/pagination"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Repo     accountdomain.Repository
	Searcher domain.Searcher
	Balances domain.BalanceAggregator
	Config   *config.DirectoryConfigHolder
	Metrics  *obsmetrics.Metrics `optional:"true"`
}

// Service answers directory page requests by picking one execution
// strategy per request.
type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	repo     accountdomain.Repository
	searcher domain.Searcher
	balances domain.BalanceAggregator
	config   *config.DirectoryConfigHolder
	metrics  *obsmetrics.Metrics

	strategies map[domain.Strategy]strategy
}

// query is a validated request.
type query struct {
	orgID  snowflake.ID
	filter accountdomain.ListFilter
	search string
	sort   domain.SortField
	desc   bool
	window pagination.Window
}

// outcome is what a strategy produces before page metadata is attached.
type outcome struct {
	accounts  []domain.AccountView
	total     int64
	truncated bool
}

type strategy interface {
	run(ctx context.Context, q query) (outcome, error)
}

func New(p Params) domain.Service {
	s := &Service{
		db:       p.DB,
		log:      p.Log.Named("directory.service"),
		repo:     p.Repo,
		searcher: p.Searcher,
		balances: p.Balances,
		config:   p.Config,
		metrics:  p.Metrics,
	}
	field := &fieldStrategy{svc: s}
	s.strategies = map[domain.Strategy]strategy{
		domain.StrategySearch:    &searchStrategy{svc: s},
		domain.StrategyAggregate: &aggregateStrategy{svc: s},
		domain.StrategyField:     field,
		domain.StrategyClient:    &clientStrategy{field: field},
	}
	return s
}

func (s *Service) Query(ctx context.Context, req domain.QueryRequest) (domain.Page, error) {
	cfg := s.config.Get()

	q, err := s.validate(ctx, req, cfg)
	if err != nil {
		return domain.Page{}, domain.WrapStage(ctx, domain.StageValidate, err)
	}

	selected := selectStrategy(q)

	ctx, cancel := context.WithTimeout(ctx, cfg.QueryTimeout)
	defer cancel()

	ctx, span := tracing.Tracer("directory").Start(ctx, "directory.query")
	defer span.End()
	span.SetAttributes(
		attribute.String("strategy", string(selected)),
		attribute.String("sort", string(q.sort)),
		attribute.Int("page", q.window.Page),
		attribute.Int("page_size", q.window.PageSize),
	)

	start := time.Now()
	result, err := s.strategies[selected].run(ctx, q)
	s.metrics.RecordQuery(ctx, string(selected), time.Since(start), err)
	if err != nil {
		span.SetStatus(codes.Error, tracing.SafeError(err).Error())
		s.log.Warn("directory query failed",
			zap.String("strategy", string(selected)),
			zap.Error(err),
		)
		return domain.Page{}, err
	}

	if result.accounts == nil {
		result.accounts = []domain.AccountView{}
	}
	return domain.Page{
		Accounts:  result.accounts,
		PageInfo:  pagination.BuildPageInfo(q.window, result.total),
		Strategy:  selected,
		Truncated: result.truncated,
	}, nil
}

func (s *Service) validate(ctx context.Context, req domain.QueryRequest, cfg config.DirectoryConfig) (query, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return query{}, domain.ErrInvalidOrganization
	}

	if req.Page < 1 {
		return query{}, domain.NewValidationError("page", "must_be_positive")
	}

	pageSize := req.PageSize
	if pageSize == 0 {
		pageSize = cfg.PageSize
	}
	if pageSize < 1 || pageSize > cfg.MaxPageSize {
		return query{}, &domain.ValidationError{
			Field:  "page_size",
			Code:   "out_of_range",
			Detail: "1.." + strconv.Itoa(cfg.MaxPageSize),
		}
	}
	if maxPage := pagination.MaxPage(pageSize); req.Page > maxPage {
		return query{}, &domain.ValidationError{
			Field:  "page",
			Code:   "out_of_range",
			Detail: "1.." + strconv.Itoa(maxPage),
		}
	}

	sort := domain.SortField(strings.ToLower(strings.TrimSpace(string(req.SortField))))
	if sort == "" {
		sort = domain.SortName
	}
	if !sort.Valid() {
		return query{}, domain.NewValidationError("sort", "unsupported")
	}

	var desc bool
	switch domain.SortDirection(strings.ToLower(strings.TrimSpace(string(req.SortDirection)))) {
	case "", domain.SortAsc:
	case domain.SortDesc:
		desc = true
	default:
		return query{}, domain.NewValidationError("direction", "unsupported")
	}

	var filter accountdomain.ListFilter
	switch status := strings.ToLower(strings.TrimSpace(req.Status)); status {
	case "", "all":
	default:
		if !accountdomain.Status(status).Valid() {
			return query{}, domain.NewValidationError("status", "unsupported")
		}
		filter.Status = accountdomain.Status(status)
	}

	return query{
		orgID:  orgID,
		filter: filter,
		search: strings.TrimSpace(req.Search),
		sort:   sort,
		desc:   desc,
		window: pagination.Window{Page: req.Page, PageSize: pageSize},
	}, nil
}

// selectStrategy is a pure function of the validated request.
func selectStrategy(q query) domain.Strategy {
	switch {
	case q.search != "":
		return domain.StrategySearch
	case q.sort == domain.SortTotalBalance:
		return domain.StrategyAggregate
	case q.sort == domain.SortMemberCount:
		return domain.StrategyClient
	default:
		return domain.StrategyField
	}
}

// hydrate loads accounts and their members in the order of ids.
func (s *Service) hydrate(ctx context.Context, orgID snowflake.ID, ids []snowflake.ID) ([]accountdomain.Account, error) {
	accounts, err := s.repo.FindByIDs(ctx, s.db, orgID, ids)
	if err != nil {
		return nil, err
	}
	if err := s.attachMembers(ctx, orgID, accounts); err != nil {
		return nil, err
	}
	return accounts, nil
}

func (s *Service) attachMembers(ctx context.Context, orgID snowflake.ID, accounts []accountdomain.Account) error {
	ids := accountIDs(accounts)
	members, err := s.repo.LoadMembers(ctx, s.db, orgID, ids)
	if err != nil {
		return err
	}
	for i := range accounts {
		accounts[i].Members = members[accounts[i].ID]
		if accounts[i].Members == nil {
			accounts[i].Members = []accountdomain.Member{}
		}
	}
	return nil
}

func toViews(accounts []accountdomain.Account, balances map[snowflake.ID]decimal.Decimal) []domain.AccountView {
	views := make([]domain.AccountView, 0, len(accounts))
	for _, account := range accounts {
		views = append(views, domain.AccountView{
			Account:      account,
			MemberCount:  len(account.Members),
			TotalBalance: balances[account.ID],
		})
	}
	return views
}

func accountIDs(accounts []accountdomain.Account) []snowflake.ID {
	ids := make([]snowflake.ID, 0, len(accounts))
	for _, account := range accounts {
		ids = append(ids, account.ID)
	}
	return ids
}
