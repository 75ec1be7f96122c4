// Package domain defines the guarded bulk deletion contract.
package domain

import (
	"context"
	"errors"

	billingdomain "github.com/classbridge/feeledger/internal/billing/domain"
	"github.com/classbridge/feeledger/internal/chain"
	"github.com/shopspring/decimal"
)

// Request scopes one bulk deletion. Force must be set to delete records that
// carry payments.
type Request struct {
	SchoolSiteID string                   `json:"school_site_id"`
	AcademicYear string                   `json:"academic_year"`
	PeriodType   billingdomain.PeriodType `json:"period_type"`
	PeriodNumber int                      `json:"period_number"`
	ClassID      string                   `json:"class_id,omitempty"`
	Force        bool                     `json:"force"`
	DeletedBy    string                   `json:"deleted_by"`
}

// AtRiskRecord names a record whose deletion would orphan money.
type AtRiskRecord struct {
	BillingID      string          `json:"billing_id"`
	StudentID      string          `json:"student_id"`
	TotalPaid      decimal.Decimal `json:"total_paid"`
	LinkedPayments int             `json:"linked_payments"`
}

// ItemError records one record that failed to delete without aborting the
// batch.
type ItemError struct {
	BillingID string `json:"billing_id"`
	Reason    string `json:"reason"`
}

// Result is the outcome of a bulk deletion run.
type Result struct {
	Deleted     int                `json:"deleted"`
	Blocked     bool               `json:"blocked"`
	AtRisk      []AtRiskRecord     `json:"at_risk,omitempty"`
	Errors      []ItemError        `json:"errors"`
	Warnings    []string           `json:"warnings"`
	ChainRepair chain.RepairReport `json:"chain_repair"`
}

// Service deletes billing records in bulk behind the payment safeguard.
type Service interface {
	BulkDelete(ctx context.Context, req Request) (*Result, error)
}

var (
	ErrInvalidSite   = errors.New("invalid_site")
	ErrInvalidYear   = errors.New("invalid_academic_year")
	ErrInvalidPeriod = errors.New("invalid_period")
	ErrInvalidClass  = errors.New("invalid_class")
)
