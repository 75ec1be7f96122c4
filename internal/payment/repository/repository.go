package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	billingdomain "github.com/classbridge/feeledger/internal/billing/domain"
	"github.com/classbridge/feeledger/internal/payment/domain"
	"gorm.io/gorm"
)

type repositoryImpl struct{}

// Provide constructs the gorm-backed payment store reader.
func Provide() domain.Repository {
	return &repositoryImpl{}
}

func (r *repositoryImpl) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Payment, error) {
	var payment domain.Payment
	err := db.WithContext(ctx).First(&payment, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrPaymentNotFound
		}
		return nil, err
	}
	return &payment, nil
}

func (r *repositoryImpl) FindByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]domain.Payment, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var payments []domain.Payment
	if err := db.WithContext(ctx).Where("id IN ?", ids).Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}

func (r *repositoryImpl) ListByScope(ctx context.Context, db *gorm.DB, scope billingdomain.Scope) ([]domain.Payment, error) {
	query := db.WithContext(ctx).
		Where("school_site_id = ? AND academic_year = ? AND period_type = ? AND period_number = ?",
			scope.SchoolSiteID, scope.AcademicYear, scope.PeriodType, scope.PeriodNumber)

	var payments []domain.Payment
	if err := query.Order("date_paid").Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}
