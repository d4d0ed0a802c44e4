package search

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/smallbiznis/tutorly/internal/account/domain"
	"github.com/smallbiznis/tutorly/internal/config"
	"github.com/smallbiznis/tutorly/internal/directory/domain"
	obsmetrics "github.com/smallbiznis/tutorly/internal/observability/metrics"
	"github.com/smallbiznis/tutorly/internal/observability/tracing"
	"github.com/smallbiznis/tutorly/internal/orgcontext"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const (
	branchAccounts = "accounts"
	branchMembers  = "members"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Repo    accountdomain.Repository
	Config  *config.DirectoryConfigHolder
	Metrics *obsmetrics.Metrics `optional:"true"`
}

// Resolver finds accounts matching a free-text query on their own fields
// or on the names of the members they own.
type Resolver struct {
	db      *gorm.DB
	log     *zap.Logger
	repo    accountdomain.Repository
	config  *config.DirectoryConfigHolder
	metrics *obsmetrics.Metrics
}

func NewResolver(p Params) domain.Searcher {
	return &Resolver{
		db:      p.DB,
		log:     p.Log.Named("directory.search"),
		repo:    p.Repo,
		config:  p.Config,
		metrics: p.Metrics,
	}
}

// Resolve runs both branches concurrently and returns their union with
// members loaded. Accounts matched on their own fields come first.
func (r *Resolver) Resolve(ctx context.Context, query string, filter accountdomain.ListFilter) (domain.SearchResult, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.SearchResult{}, domain.ErrInvalidOrganization
	}

	query = strings.TrimSpace(query)
	if query == "" {
		return domain.SearchResult{}, domain.NewValidationError("search", "required")
	}

	ceiling := r.config.Get().SearchCeiling

	var (
		direct   []accountdomain.Account
		ownerIDs []snowflake.ID
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		bctx, finish := tracing.StartStage(gctx, "search.accounts")
		rows, err := r.repo.SearchAccounts(bctx, r.db, orgID, query, filter, ceiling+1)
		finish(err)
		if err != nil {
			return err
		}
		direct = rows
		return nil
	})
	g.Go(func() error {
		bctx, finish := tracing.StartStage(gctx, "search.members")
		ids, err := r.repo.SearchMemberAccountIDs(bctx, r.db, orgID, query, filter, ceiling+1)
		finish(err)
		if err != nil {
			return err
		}
		ownerIDs = ids
		return nil
	})
	if err := g.Wait(); err != nil {
		return domain.SearchResult{}, err
	}

	truncated := false
	if len(direct) > ceiling {
		direct = direct[:ceiling]
		truncated = true
		r.recordTruncation(ctx, branchAccounts, ceiling)
	}
	if len(ownerIDs) > ceiling {
		ownerIDs = ownerIDs[:ceiling]
		truncated = true
		r.recordTruncation(ctx, branchMembers, ceiling)
	}

	accounts := make([]accountdomain.Account, 0, len(direct)+len(ownerIDs))
	seen := make(map[snowflake.ID]struct{}, cap(accounts))
	for _, account := range direct {
		if _, dup := seen[account.ID]; dup {
			continue
		}
		seen[account.ID] = struct{}{}
		accounts = append(accounts, account)
	}

	missing := make([]snowflake.ID, 0, len(ownerIDs))
	for _, id := range ownerIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		missing = append(missing, id)
	}
	if len(missing) > 0 {
		owners, err := r.repo.FindByIDs(ctx, r.db, orgID, missing)
		if err != nil {
			return domain.SearchResult{}, err
		}
		accounts = append(accounts, owners...)
	}

	ids := make([]snowflake.ID, 0, len(accounts))
	for _, account := range accounts {
		ids = append(ids, account.ID)
	}
	members, err := r.repo.LoadMembers(ctx, r.db, orgID, ids)
	if err != nil {
		return domain.SearchResult{}, err
	}
	for i := range accounts {
		accounts[i].Members = members[accounts[i].ID]
		if accounts[i].Members == nil {
			accounts[i].Members = []accountdomain.Member{}
		}
	}

	return domain.SearchResult{Accounts: accounts, Truncated: truncated}, nil
}

func (r *Resolver) recordTruncation(ctx context.Context, branch string, ceiling int) {
	r.log.Warn("search branch truncated at ceiling",
		zap.String("branch", branch),
		zap.Int("ceiling", ceiling),
	)
	r.metrics.RecordSearchTruncated(ctx, branch)
}
