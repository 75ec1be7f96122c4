// Package domain models the read-only student directory the ledger consults.
package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

const (
	StatusActive    = "active"
	StatusInactive  = "inactive"
	StatusGraduated = "graduated"
)

// Student is a directory entry. OnboardingBalance is the one-time arrears
// amount captured at admission, used only when no prior billing record exists
// to carry a balance forward from.
type Student struct {
	ID                snowflake.ID    `gorm:"primaryKey"`
	SchoolID          snowflake.ID    `gorm:"not null;index"`
	SchoolSiteID      snowflake.ID    `gorm:"not null;index"`
	ClassID           snowflake.ID    `gorm:"index"`
	FullName          string          `gorm:"type:text;not null"`
	Status            string          `gorm:"type:text;not null;default:active;index"`
	OnboardingBalance decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	CreatedAt         time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Student) TableName() string { return "students" }

// SchoolClass is one teaching class at a site.
type SchoolClass struct {
	ID           snowflake.ID  `gorm:"primaryKey"`
	SchoolSiteID snowflake.ID  `gorm:"not null;index"`
	DepartmentID *snowflake.ID `gorm:"index"`
	Name         string        `gorm:"type:text;not null"`
	IsActive     bool          `gorm:"not null;default:true;index"`
	CreatedAt    time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (SchoolClass) TableName() string { return "school_classes" }

var (
	ErrStudentNotFound = errors.New("student_not_found")
	ErrClassNotFound   = errors.New("class_not_found")
)
