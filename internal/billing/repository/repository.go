package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/classbridge/feeledger/internal/billing/domain"
	"gorm.io/gorm"
)

type repositoryImpl struct{}

// Provide constructs the gorm-backed billing record repository.
func Provide() domain.Repository {
	return &repositoryImpl{}
}

func (r *repositoryImpl) Insert(ctx context.Context, db *gorm.DB, record *domain.BillingRecord) error {
	if err := db.WithContext(ctx).Create(record).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateRecord
		}
		return err
	}
	return nil
}

func (r *repositoryImpl) Update(ctx context.Context, db *gorm.DB, record *domain.BillingRecord) error {
	return db.WithContext(ctx).Save(record).Error
}

func (r *repositoryImpl) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	result := db.WithContext(ctx).Delete(&domain.BillingRecord{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrRecordNotFound
	}
	return nil
}

func (r *repositoryImpl) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.BillingRecord, error) {
	var record domain.BillingRecord
	err := db.WithContext(ctx).First(&record, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrRecordNotFound
		}
		return nil, err
	}
	return &record, nil
}

func (r *repositoryImpl) FindByPeriodKey(ctx context.Context, db *gorm.DB, key domain.PeriodKey) (*domain.BillingRecord, error) {
	var record domain.BillingRecord
	err := db.WithContext(ctx).
		Where("student_id = ? AND school_site_id = ? AND academic_year = ? AND period_type = ? AND period_number = ?",
			key.StudentID, key.SchoolSiteID, key.AcademicYear, key.PeriodType, key.PeriodNumber).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrRecordNotFound
		}
		return nil, err
	}
	return &record, nil
}

func (r *repositoryImpl) FindCurrent(ctx context.Context, db *gorm.DB, studentID, siteID snowflake.ID) (*domain.BillingRecord, error) {
	var record domain.BillingRecord
	err := db.WithContext(ctx).
		Where("student_id = ? AND school_site_id = ? AND is_current = ?", studentID, siteID, true).
		Order("created_at DESC").
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

func (r *repositoryImpl) ListByScope(ctx context.Context, db *gorm.DB, scope domain.Scope) ([]domain.BillingRecord, error) {
	query := db.WithContext(ctx).
		Where("school_site_id = ? AND academic_year = ? AND period_type = ? AND period_number = ?",
			scope.SchoolSiteID, scope.AcademicYear, scope.PeriodType, scope.PeriodNumber)
	if scope.ClassID != nil {
		query = query.Where("class_id = ?", *scope.ClassID)
	}

	var records []domain.BillingRecord
	if err := query.Order("student_id").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}
