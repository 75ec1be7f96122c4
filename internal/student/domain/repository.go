package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Repository is the read-only directory lookup surface.
type Repository interface {
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Student, error)
	// Exists reports whether a student row exists at all, regardless of
	// status. Used by integrity checks to detect orphaned records.
	Exists(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error)
	ListActiveByClass(ctx context.Context, db *gorm.DB, siteID, classID snowflake.ID) ([]Student, error)
	ListActiveClasses(ctx context.Context, db *gorm.DB, siteID snowflake.ID) ([]SchoolClass, error)
	ListActiveClassesByDepartment(ctx context.Context, db *gorm.DB, siteID, departmentID snowflake.ID) ([]SchoolClass, error)
	FindClasses(ctx context.Context, db *gorm.DB, siteID snowflake.ID, classIDs []snowflake.ID) ([]SchoolClass, error)
}
