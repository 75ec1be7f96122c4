package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	billingdomain "github.com/classbridge/feeledger/internal/billing/domain"
	"gorm.io/gorm"
)

// Repository is the read-only payment store surface.
type Repository interface {
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Payment, error)
	FindByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]Payment, error)
	ListByScope(ctx context.Context, db *gorm.DB, scope billingdomain.Scope) ([]Payment, error)
}
