package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/classbridge/feeledger/internal/student/domain"
	"gorm.io/gorm"
)

type repositoryImpl struct{}

// Provide constructs the gorm-backed student directory.
func Provide() domain.Repository {
	return &repositoryImpl{}
}

func (r *repositoryImpl) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Student, error) {
	var student domain.Student
	err := db.WithContext(ctx).First(&student, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrStudentNotFound
		}
		return nil, err
	}
	return &student, nil
}

func (r *repositoryImpl) Exists(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error) {
	var count int64
	if err := db.WithContext(ctx).Model(&domain.Student{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repositoryImpl) ListActiveByClass(ctx context.Context, db *gorm.DB, siteID, classID snowflake.ID) ([]domain.Student, error) {
	var students []domain.Student
	err := db.WithContext(ctx).
		Where("school_site_id = ? AND class_id = ? AND status = ?", siteID, classID, domain.StatusActive).
		Order("full_name").
		Find(&students).Error
	if err != nil {
		return nil, err
	}
	return students, nil
}

func (r *repositoryImpl) ListActiveClasses(ctx context.Context, db *gorm.DB, siteID snowflake.ID) ([]domain.SchoolClass, error) {
	var classes []domain.SchoolClass
	err := db.WithContext(ctx).
		Where("school_site_id = ? AND is_active = ?", siteID, true).
		Order("name").
		Find(&classes).Error
	if err != nil {
		return nil, err
	}
	return classes, nil
}

func (r *repositoryImpl) ListActiveClassesByDepartment(ctx context.Context, db *gorm.DB, siteID, departmentID snowflake.ID) ([]domain.SchoolClass, error) {
	var classes []domain.SchoolClass
	err := db.WithContext(ctx).
		Where("school_site_id = ? AND department_id = ? AND is_active = ?", siteID, departmentID, true).
		Order("name").
		Find(&classes).Error
	if err != nil {
		return nil, err
	}
	return classes, nil
}

func (r *repositoryImpl) FindClasses(ctx context.Context, db *gorm.DB, siteID snowflake.ID, classIDs []snowflake.ID) ([]domain.SchoolClass, error) {
	if len(classIDs) == 0 {
		return nil, nil
	}
	var classes []domain.SchoolClass
	err := db.WithContext(ctx).
		Where("school_site_id = ? AND id IN ?", siteID, classIDs).
		Find(&classes).Error
	if err != nil {
		return nil, err
	}
	return classes, nil
}
