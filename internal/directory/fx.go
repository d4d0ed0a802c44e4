package directory

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/smallbiznis/tutorly/internal/clock"
	"github.com/smallbiznis/tutorly/internal/config"
	"github.com/smallbiznis/tutorly/internal/directory/bulk"
	"github.com/smallbiznis/tutorly/internal/directory/domain"
	"github.com/smallbiznis/tutorly/internal/directory/search"
	"github.com/smallbiznis/tutorly/internal/directory/selection"
	"github.com/smallbiznis/tutorly/internal/directory/service"
	"github.com/smallbiznis/tutorly/internal/directory/session"
	ledgerdomain "github.com/smallbiznis/tutorly/internal/ledger/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("directory.service",
	fx.Provide(
		func(ledger ledgerdomain.Service) domain.BalanceAggregator { return ledger },
		provideSelectionStore,
		search.NewResolver,
		service.New,
		bulk.New,
		selection.NewManager,
		session.NewRegistry,
	),
)

func provideSelectionStore(lc fx.Lifecycle, cfg config.Config, clk clock.Clock, log *zap.Logger) selection.Store {
	log = log.Named("directory.selection")

	if !cfg.Redis.Enabled() {
		store := selection.NewMemoryStore(clk.Now)
		stop := make(chan struct{})
		lc.Append(fx.Hook{
			OnStart: func(context.Context) error {
				go func() {
					ticker := time.NewTicker(time.Minute)
					defer ticker.Stop()
					for {
						select {
						case <-stop:
							return
						case <-ticker.C:
							store.Sweep()
						}
					}
				}()
				return nil
			},
			OnStop: func(context.Context) error {
				close(stop)
				return nil
			},
		})
		log.Info("selections stored in memory")
		return store
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		},
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	log.Info("selections stored in redis", zap.String("addr", cfg.Redis.Addr))
	return selection.NewRedisStore(client)
}
