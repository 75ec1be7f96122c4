package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Repository persists billing records. Every method takes the database handle
// so services can route calls through a transaction.
type Repository interface {
	// Insert creates a record, returning ErrDuplicateRecord when the
	// period key is already taken.
	Insert(ctx context.Context, db *gorm.DB, record *BillingRecord) error
	Update(ctx context.Context, db *gorm.DB, record *BillingRecord) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*BillingRecord, error)
	FindByPeriodKey(ctx context.Context, db *gorm.DB, key PeriodKey) (*BillingRecord, error)
	// FindCurrent returns the student's record flagged current at a site,
	// or nil when none exists.
	FindCurrent(ctx context.Context, db *gorm.DB, studentID, siteID snowflake.ID) (*BillingRecord, error)
	ListByScope(ctx context.Context, db *gorm.DB, scope Scope) ([]BillingRecord, error)
}
