// Package domain models the read-only fee configuration catalog.
package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	billingdomain "github.com/classbridge/feeledger/internal/billing/domain"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// FeeConfiguration specifies the expected bill for one class and period.
type FeeConfiguration struct {
	ID           snowflake.ID                                   `gorm:"primaryKey"`
	SchoolSiteID snowflake.ID                                   `gorm:"not null;index;uniqueIndex:ux_fee_config_key,priority:1"`
	ClassID      snowflake.ID                                   `gorm:"not null;uniqueIndex:ux_fee_config_key,priority:2"`
	AcademicYear string                                         `gorm:"type:text;not null;uniqueIndex:ux_fee_config_key,priority:3"`
	PeriodType   billingdomain.PeriodType                       `gorm:"type:text;not null;uniqueIndex:ux_fee_config_key,priority:4"`
	PeriodNumber int                                            `gorm:"not null;uniqueIndex:ux_fee_config_key,priority:5"`
	LineItems    datatypes.JSONSlice[billingdomain.FeeLineItem] `gorm:"type:jsonb"`
	Total        decimal.Decimal                                `gorm:"type:decimal(18,4);not null"`
	DueDate      *time.Time                                     `gorm:""`
	Currency     string                                         `gorm:"type:text;not null"`
	CreatedAt    time.Time                                      `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt    time.Time                                      `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (FeeConfiguration) TableName() string { return "fee_configurations" }

// LookupKey identifies one configuration.
type LookupKey struct {
	SchoolSiteID snowflake.ID
	ClassID      snowflake.ID
	AcademicYear string
	PeriodType   billingdomain.PeriodType
	PeriodNumber int
}

var ErrConfigNotFound = errors.New("fee_configuration_not_found")
