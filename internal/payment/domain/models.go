// Package domain models the immutable payment records the ledger references.
// Payments are captured elsewhere; the ledger only reads them and stores
// snapshots.
package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	billingdomain "github.com/classbridge/feeledger/internal/billing/domain"
	"github.com/shopspring/decimal"
)

// Payment is one captured payment.
type Payment struct {
	ID            snowflake.ID             `gorm:"primaryKey"`
	StudentID     snowflake.ID             `gorm:"not null;index"`
	SchoolSiteID  snowflake.ID             `gorm:"not null;index"`
	AcademicYear  string                   `gorm:"type:text;not null;index"`
	PeriodType    billingdomain.PeriodType `gorm:"type:text;not null"`
	PeriodNumber  int                      `gorm:"not null"`
	Amount        decimal.Decimal          `gorm:"type:decimal(18,4);not null"`
	DatePaid      time.Time                `gorm:"not null"`
	ReceiptNumber string                   `gorm:"type:text;not null"`
	Method        string                   `gorm:"type:text;not null"`
	Currency      string                   `gorm:"type:text;not null"`
	CreatedAt     time.Time                `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Payment) TableName() string { return "payments" }

// Snapshot freezes the payment's state for embedding in a billing record.
func (p *Payment) Snapshot() billingdomain.PaymentSnapshot {
	return billingdomain.PaymentSnapshot{
		PaymentID:     p.ID,
		Amount:        p.Amount,
		DatePaid:      p.DatePaid,
		ReceiptNumber: p.ReceiptNumber,
		Method:        p.Method,
	}
}

var ErrPaymentNotFound = errors.New("payment_not_found")
