package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Repository resolves fee configurations.
type Repository interface {
	FindByKey(ctx context.Context, db *gorm.DB, key LookupKey) (*FeeConfiguration, error)
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*FeeConfiguration, error)
}
