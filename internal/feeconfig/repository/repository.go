package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/classbridge/feeledger/internal/cache"
	"github.com/classbridge/feeledger/internal/feeconfig/domain"
	"gorm.io/gorm"
)

// Configurations change rarely relative to how often generation reads them.
const cacheTTL = 5 * time.Minute

type repositoryImpl struct {
	byKey *cache.TTLCache[string, domain.FeeConfiguration]
}

// Provide constructs the cached fee configuration reader.
func Provide() domain.Repository {
	return &repositoryImpl{
		byKey: cache.NewTTLCache[string, domain.FeeConfiguration](),
	}
}

func (r *repositoryImpl) FindByKey(ctx context.Context, db *gorm.DB, key domain.LookupKey) (*domain.FeeConfiguration, error) {
	cacheKey := fmt.Sprintf("%d:%d:%s:%s:%d", key.SchoolSiteID, key.ClassID, key.AcademicYear, key.PeriodType, key.PeriodNumber)
	if cfg, ok := r.byKey.Get(cacheKey); ok {
		return &cfg, nil
	}

	var cfg domain.FeeConfiguration
	err := db.WithContext(ctx).
		Where("school_site_id = ? AND class_id = ? AND academic_year = ? AND period_type = ? AND period_number = ?",
			key.SchoolSiteID, key.ClassID, key.AcademicYear, key.PeriodType, key.PeriodNumber).
		First(&cfg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrConfigNotFound
		}
		return nil, err
	}

	r.byKey.Set(cacheKey, cfg, cacheTTL)
	return &cfg, nil
}

func (r *repositoryImpl) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.FeeConfiguration, error) {
	var cfg domain.FeeConfiguration
	err := db.WithContext(ctx).First(&cfg, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrConfigNotFound
		}
		return nil, err
	}
	return &cfg, nil
}
