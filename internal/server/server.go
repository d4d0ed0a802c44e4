package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/tutorly/internal/account"
	accountdomain "github.com/smallbiznis/tutorly/internal/account/domain"
	"github.com/smallbiznis/tutorly/internal/clock"
	"github.com/smallbiznis/tutorly/internal/config"
	"github.com/smallbiznis/tutorly/internal/directory"
	directorydomain "github.com/smallbiznis/tutorly/internal/directory/domain"
	"github.com/smallbiznis/tutorly/internal/directory/selection"
	"github.com/smallbiznis/tutorly/internal/directory/session"
	"github.com/smallbiznis/tutorly/internal/enrollment"
	enrollmentdomain "github.com/smallbiznis/tutorly/internal/enrollment/domain"
	"github.com/smallbiznis/tutorly/internal/ledger"
	ledgerdomain "github.com/smallbiznis/tutorly/internal/ledger/domain"
	"github.com/smallbiznis/tutorly/internal/observability"
	obslogger "github.com/smallbiznis/tutorly/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/tutorly/internal/observability/metrics"
	obstracing "github.com/smallbiznis/tutorly/internal/observability/tracing"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	account.Module,
	enrollment.Module,
	ledger.Module,
	directory.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine        *gin.Engine
	cfg           config.Config
	log           *zap.Logger
	clock         clock.Clock
	accountSvc    accountdomain.Service
	enrollmentSvc enrollmentdomain.Service
	ledgerSvc     ledgerdomain.Service
	directorySvc  directorydomain.Service
	bulkSvc       directorydomain.BulkService
	selections    *selection.Manager
	sessions      *session.Registry
}

type ServerParams struct {
	fx.In

	Gin           *gin.Engine
	Cfg           config.Config
	Log           *zap.Logger
	Clock         clock.Clock
	AccountSvc    accountdomain.Service
	EnrollmentSvc enrollmentdomain.Service
	LedgerSvc     ledgerdomain.Service
	DirectorySvc  directorydomain.Service
	BulkSvc       directorydomain.BulkService
	Selections    *selection.Manager
	Sessions      *session.Registry
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:        p.Gin,
		cfg:           p.Cfg,
		log:           p.Log.Named("http"),
		clock:         p.Clock,
		accountSvc:    p.AccountSvc,
		enrollmentSvc: p.EnrollmentSvc,
		ledgerSvc:     p.LedgerSvc,
		directorySvc:  p.DirectorySvc,
		bulkSvc:       p.BulkSvc,
		selections:    p.Selections,
		sessions:      p.Sessions,
	}

	svc.registerAPIRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) now() time.Time {
	if s.clock == nil {
		return time.Now()
	}
	return s.clock.Now()
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")
	api.Use(s.OrgContext())

	accounts := api.Group("/accounts")
	accounts.GET("", s.ListAccounts)
	accounts.POST("", s.CreateAccount)
	accounts.POST("/bulk/status", s.BulkUpdateStatus)
	accounts.POST("/bulk/delete", s.BulkDelete)
	accounts.POST("/export", s.ExportAccounts)
	accounts.GET("/:id", s.GetAccountByID)
	accounts.POST("/:id/members", s.AddMember)

	selections := api.Group("/selections")
	selections.POST("", s.CreateSelection)
	selections.GET("/:key", s.GetSelection)
	selections.PUT("/:key", s.UpdateSelection)
	selections.DELETE("/:key", s.ClearSelection)
	selections.POST("/:key/toggle", s.ToggleSelection)

	sessions := api.Group("/directory/sessions")
	sessions.POST("/:key/query", s.SubmitSessionQuery)
	sessions.GET("/:key", s.GetSessionState)

	entries := api.Group("/ledger/entries")
	entries.POST("", s.CreateLedgerEntry)
	entries.PATCH("/:id", s.UpdateLedgerEntryStatus)

	api.POST("/enrollments", s.CreateEnrollment)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}
