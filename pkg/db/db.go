// Package db provides the shared gorm connection.
package db

import (
	"context"

	auditdomain "github.com/classbridge/feeledger/internal/audit/domain"
	billingdomain "github.com/classbridge/feeledger/internal/billing/domain"
	"github.com/classbridge/feeledger/internal/config"
	"github.com/classbridge/feeledger/internal/events"
	feeconfigdomain "github.com/classbridge/feeledger/internal/feeconfig/domain"
	paymentdomain "github.com/classbridge/feeledger/internal/payment/domain"
	studentdomain "github.com/classbridge/feeledger/internal/student/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Open connects to Postgres and runs schema migration.
func Open(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) (*gorm.DB, error) {
	conn, err := gorm.Open(postgres.Open(cfg.Database.DSN), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)

	if err := Migrate(conn); err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			log.Info("closing database connection")
			return sqlDB.Close()
		},
	})
	return conn, nil
}

// Migrate creates or updates the schema for every persisted model. Tests call
// it directly against an in-memory sqlite handle.
func Migrate(conn *gorm.DB) error {
	if err := conn.AutoMigrate(
		&billingdomain.BillingRecord{},
		&paymentdomain.Payment{},
		&studentdomain.Student{},
		&studentdomain.SchoolClass{},
		&feeconfigdomain.FeeConfiguration{},
		&auditdomain.AuditLog{},
		&events.BillingEvent{},
	); err != nil {
		return err
	}
	// Partial index: at most one current record per student+site. AutoMigrate
	// cannot express the WHERE clause, so it is created directly.
	return conn.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS ux_billing_current
		ON billing_records (student_id, school_site_id) WHERE is_current`).Error
}

var Module = fx.Module("db",
	fx.Provide(Open),
)
