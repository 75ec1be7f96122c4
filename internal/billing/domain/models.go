// Package domain contains the billing record aggregate and its invariant
// recomputation logic.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// PeriodType distinguishes term-based from semester-based academic calendars.
type PeriodType string

const (
	PeriodTypeTerm     PeriodType = "term"
	PeriodTypeSemester PeriodType = "semester"
)

// BillingStatus reflects the sign of the current balance.
type BillingStatus string

const (
	StatusPending  BillingStatus = "pending"
	StatusClear    BillingStatus = "clear"
	StatusOwing    BillingStatus = "owing"
	StatusOverpaid BillingStatus = "overpaid"
)

// FeeLineItem is one line of the fee breakdown copied from the fee
// configuration at generation time.
type FeeLineItem struct {
	Determinant string          `json:"determinant"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
}

// AdditionalCharge is an ad-hoc charge added on top of the period bill.
type AdditionalCharge struct {
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
}

// PaymentSnapshot is a point-in-time copy of an external payment record. A
// payment mutated externally after linking does not change the ledger until
// re-linked.
type PaymentSnapshot struct {
	PaymentID     snowflake.ID    `json:"payment_id"`
	Amount        decimal.Decimal `json:"amount"`
	DatePaid      time.Time       `json:"date_paid"`
	ReceiptNumber string          `json:"receipt_number"`
	Method        string          `json:"method"`
}

// TrailEntry is one append-only audit trail item embedded in the record.
type TrailEntry struct {
	Action        string    `json:"action"`
	PerformedBy   string    `json:"performed_by"`
	PerformedAt   time.Time `json:"performed_at"`
	Details       string    `json:"details,omitempty"`
	PreviousValue string    `json:"previous_value,omitempty"`
	NewValue      string    `json:"new_value,omitempty"`
}

// BillingRecord is the per-student, per-period financial statement. The
// unique index on the period key closes the duplicate-generation race at the
// storage layer.
type BillingRecord struct {
	ID           snowflake.ID `gorm:"primaryKey"`
	StudentID    snowflake.ID `gorm:"not null;index;uniqueIndex:ux_billing_period,priority:1"`
	SchoolID     snowflake.ID `gorm:"not null;index"`
	SchoolSiteID snowflake.ID `gorm:"not null;index;uniqueIndex:ux_billing_period,priority:2"`
	ClassID      snowflake.ID `gorm:"not null;index"`
	AcademicYear string       `gorm:"type:text;not null;uniqueIndex:ux_billing_period,priority:3"`
	PeriodType   PeriodType   `gorm:"type:text;not null;uniqueIndex:ux_billing_period,priority:4"`
	PeriodNumber int          `gorm:"not null;uniqueIndex:ux_billing_period,priority:5"`

	BalanceBroughtForward decimal.Decimal                       `gorm:"type:decimal(18,4);not null"`
	PeriodBill            decimal.Decimal                       `gorm:"type:decimal(18,4);not null"`
	FeeBreakdown          datatypes.JSONSlice[FeeLineItem]      `gorm:"type:jsonb"`
	AdditionalCharges     datatypes.JSONSlice[AdditionalCharge] `gorm:"type:jsonb"`
	AddedChargesTotal     decimal.Decimal                       `gorm:"type:decimal(18,4);not null"`

	TotalBilled    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	TotalPaid      decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	CurrentBalance decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Status         BillingStatus   `gorm:"type:text;not null;default:pending"`

	LinkedPayments datatypes.JSONSlice[PaymentSnapshot] `gorm:"type:jsonb"`

	CarriedForwardFrom *snowflake.ID `gorm:"index"`
	CarriedForwardTo   *snowflake.ID `gorm:"index"`
	IsCurrent          bool          `gorm:"not null;default:false;index"`
	IsLocked           bool          `gorm:"not null;default:false"`

	FeeConfigID    snowflake.ID                    `gorm:"index"`
	PaymentDueDate *time.Time                      `gorm:""`
	Currency       string                          `gorm:"type:text;not null"`
	CreatedBy      string                          `gorm:"type:text"`
	LastModifiedBy string                          `gorm:"type:text"`
	AuditTrail     datatypes.JSONSlice[TrailEntry] `gorm:"type:jsonb"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (BillingRecord) TableName() string { return "billing_records" }

// PeriodKey identifies the one record a student may hold per period and site.
type PeriodKey struct {
	StudentID    snowflake.ID
	SchoolSiteID snowflake.ID
	AcademicYear string
	PeriodType   PeriodType
	PeriodNumber int
}

// Key returns the record's period key.
func (r *BillingRecord) Key() PeriodKey {
	return PeriodKey{
		StudentID:    r.StudentID,
		SchoolSiteID: r.SchoolSiteID,
		AcademicYear: r.AcademicYear,
		PeriodType:   r.PeriodType,
		PeriodNumber: r.PeriodNumber,
	}
}

// Scope selects the records of one site and period, optionally narrowed to a
// class.
type Scope struct {
	SchoolSiteID snowflake.ID
	AcademicYear string
	PeriodType   PeriodType
	PeriodNumber int
	ClassID      *snowflake.ID
}
