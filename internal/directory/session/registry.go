package session

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tutorly/internal/cache"
	"github.com/smallbiznis/tutorly/internal/clock"
	"github.com/smallbiznis/tutorly/internal/config"
	"github.com/smallbiznis/tutorly/internal/directory/domain"
	obsmetrics "github.com/smallbiznis/tutorly/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const sweepInterval = time.Minute

type Params struct {
	fx.In

	Lifecycle fx.Lifecycle `optional:"true"`
	Service   domain.Service
	Clock     clock.Clock
	Config    *config.DirectoryConfigHolder
	Log       *zap.Logger
	Metrics   *obsmetrics.Metrics `optional:"true"`
}

// Registry keeps one Session per organization and session key. Idle
// sessions expire after the selection TTL.
type Registry struct {
	sessions *cache.TTLCache[string, *Session]
	svc      domain.Service
	clock    clock.Clock
	config   *config.DirectoryConfigHolder
	log      *zap.Logger
	metrics  *obsmetrics.Metrics
}

func NewRegistry(p Params) *Registry {
	r := &Registry{
		sessions: cache.NewTTLCacheWithClock[string, *Session](p.Clock.Now),
		svc:      p.Service,
		clock:    p.Clock,
		config:   p.Config,
		log:      p.Log.Named("directory.session"),
		metrics:  p.Metrics,
	}

	if p.Lifecycle != nil {
		stop := make(chan struct{})
		p.Lifecycle.Append(fx.Hook{
			OnStart: func(context.Context) error {
				go r.sweepLoop(stop)
				return nil
			},
			OnStop: func(context.Context) error {
				close(stop)
				return nil
			},
		})
	}
	return r
}

// Get returns the session for key, creating it on first use.
func (r *Registry) Get(orgID snowflake.ID, key string) *Session {
	cfg := r.config.Get()
	return r.sessions.GetOrSet(orgID.String()+":"+key, cfg.SelectionTTL, func() *Session {
		return newSession(r.svc, cfg.SearchDebounce, r.clock, r.metrics, r.log.With(zap.String("session", key)))
	})
}

// Lookup returns an existing session without creating one.
func (r *Registry) Lookup(orgID snowflake.ID, key string) (*Session, bool) {
	return r.sessions.Get(orgID.String() + ":" + key)
}

func (r *Registry) sweepLoop(stop <-chan struct{}) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if removed := r.sessions.Sweep(); removed > 0 {
				r.log.Debug("expired directory sessions removed", zap.Int("count", removed))
			}
		}
	}
}
