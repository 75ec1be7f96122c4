package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/classbridge/feeledger/internal/audit"
	"github.com/classbridge/feeledger/internal/billing"
	"github.com/classbridge/feeledger/internal/chain"
	"github.com/classbridge/feeledger/internal/clock"
	"github.com/classbridge/feeledger/internal/config"
	"github.com/classbridge/feeledger/internal/deletion"
	"github.com/classbridge/feeledger/internal/events"
	"github.com/classbridge/feeledger/internal/events/dispatcher"
	"github.com/classbridge/feeledger/internal/feeconfig"
	"github.com/classbridge/feeledger/internal/generation"
	"github.com/classbridge/feeledger/internal/integrity"
	"github.com/classbridge/feeledger/internal/observability/logger"
	"github.com/classbridge/feeledger/internal/observability/metrics"
	"github.com/classbridge/feeledger/internal/observability/tracing"
	"github.com/classbridge/feeledger/internal/payment"
	"github.com/classbridge/feeledger/internal/paymentlink"
	"github.com/classbridge/feeledger/internal/seed"
	"github.com/classbridge/feeledger/internal/server"
	"github.com/classbridge/feeledger/internal/student"
	"github.com/classbridge/feeledger/pkg/db"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var version = "dev"

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		tracing.Module,
		metrics.Module,
		clock.Module,
		fx.Provide(func() *snowflake.Node {
			node, err := snowflake.NewNode(1)
			if err != nil {
				panic(err)
			}
			return node
		}),
		db.Module,
		fx.Invoke(func(conn *gorm.DB, cfg config.Config, genID *snowflake.Node) error {
			if !cfg.IsProduction() && cfg.Bootstrap.SeedDemoSchool {
				return seed.EnsureDemoSchool(conn, genID)
			}
			return nil
		}),
		events.Module,
		dispatcher.Module,
		audit.Module,
		student.Module,
		feeconfig.Module,
		payment.Module,
		billing.Module,
		chain.Module,
		generation.Module,
		paymentlink.Module,
		deletion.Module,
		integrity.Module,
		server.Module,
	)
	app.Run()
}
