// Package server exposes the ledger's operations over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"

	auditdomain "github.com/classbridge/feeledger/internal/audit/domain"
	billingdomain "github.com/classbridge/feeledger/internal/billing/domain"
	"github.com/classbridge/feeledger/internal/config"
	deletiondomain "github.com/classbridge/feeledger/internal/deletion/domain"
	generationdomain "github.com/classbridge/feeledger/internal/generation/domain"
	integritydomain "github.com/classbridge/feeledger/internal/integrity/domain"
	"github.com/classbridge/feeledger/internal/observability/logger"
	"github.com/classbridge/feeledger/internal/observability/metrics"
	paymentlinkdomain "github.com/classbridge/feeledger/internal/paymentlink/domain"
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Cfg            config.Config
	Log            *zap.Logger
	HTTPMetrics    *metrics.HTTPMetrics
	BillingSvc     billingdomain.Service
	GenerationSvc  generationdomain.Service
	PaymentLinkSvc paymentlinkdomain.Service
	DeletionSvc    deletiondomain.Service
	IntegritySvc   integritydomain.Service
	AuditSvc       auditdomain.Service
}

type Server struct {
	cfg            config.Config
	log            *zap.Logger
	engine         *gin.Engine
	billingSvc     billingdomain.Service
	generationSvc  generationdomain.Service
	paymentLinkSvc paymentlinkdomain.Service
	deletionSvc    deletiondomain.Service
	integritySvc   integritydomain.Service
	auditSvc       auditdomain.Service
}

func NewServer(p Params) *Server {
	if p.Cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(logger.GinMiddleware(logger.MiddlewareConfig{SkipPaths: []string{"/healthz"}}))
	engine.Use(metrics.GinMiddleware(p.HTTPMetrics))
	engine.Use(AuditContextMiddleware())

	s := &Server{
		cfg:            p.Cfg,
		log:            p.Log.Named("server"),
		engine:         engine,
		billingSvc:     p.BillingSvc,
		generationSvc:  p.GenerationSvc,
		paymentLinkSvc: p.PaymentLinkSvc,
		deletionSvc:    p.DeletionSvc,
		integritySvc:   p.IntegritySvc,
		auditSvc:       p.AuditSvc,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := s.engine.Group("/api")
	{
		api.POST("/billing", s.CreateBillingRecord)
		api.GET("/billing", s.ListBillingRecords)
		api.GET("/billing/validate", s.ValidateScope)
		api.GET("/billing/:id", s.GetBillingRecord)
		api.POST("/billing/generate", s.GenerateBilling)
		api.POST("/billing/bulk-delete", s.BulkDeleteBilling)
		api.POST("/billing/:id/payments", s.LinkPayment)
		api.DELETE("/billing/:id/payments/:paymentID", s.UnlinkPayment)
		api.GET("/billing/:id/payments", s.ListLinkedPayments)
		api.GET("/audit-logs", s.ListAuditLogs)
	}
}

// RunHTTP starts the HTTP listener under the fx lifecycle.
func RunHTTP(lc fx.Lifecycle, s *Server) {
	srv := &http.Server{
		Addr:    s.cfg.HTTP.Addr,
		Handler: s.engine,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			s.log.Info("http server starting", zap.String("addr", s.cfg.HTTP.Addr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					s.log.Error("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			s.log.Info("http server stopping")
			return srv.Shutdown(ctx)
		},
	})
}

var Module = fx.Module("server",
	fx.Provide(NewServer),
	fx.Invoke(RunHTTP),
)
