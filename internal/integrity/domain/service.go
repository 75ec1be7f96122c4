// Package domain defines the read-only diagnostic sweep over billing records.
package domain

import (
	"context"

	billingdomain "github.com/classbridge/feeledger/internal/billing/domain"
	"github.com/shopspring/decimal"
)

type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Overall statuses. A failing error-severity check fails the sweep; a failing
// warning-severity check degrades it.
const (
	StatusPassed   = "PASSED"
	StatusWarnings = "WARNINGS"
	StatusFailed   = "FAILED"
)

// Check names.
const (
	CheckCalculationIntegrity = "calculation_integrity"
	CheckOrphanedRecords      = "orphaned_billing_records"
	CheckDuplicateRecords     = "duplicate_billing_records"
	CheckNegativeTotalBilled  = "negative_total_billed"
	CheckNegativeTotalPaid    = "negative_total_paid"
	CheckStatusConsistency    = "status_consistency"
	CheckUnlinkedPayments     = "unlinked_payments"
	CheckStudentsWithoutBills = "students_without_billing"
	CheckFeeConfigDrift       = "fee_configuration_drift"
)

// Check is one named diagnostic result. A failing check is a result, never an
// error.
type Check struct {
	Name     string         `json:"name"`
	IsValid  bool           `json:"is_valid"`
	Severity Severity       `json:"severity"`
	Details  map[string]any `json:"details,omitempty"`
}

// Summary aggregates the scope's money regardless of pass/fail.
type Summary struct {
	Records          int             `json:"records"`
	TotalBilled      decimal.Decimal `json:"total_billed"`
	TotalPaid        decimal.Decimal `json:"total_paid"`
	TotalOutstanding decimal.Decimal `json:"total_outstanding"`
}

// Report is the outcome of one sweep.
type Report struct {
	OverallStatus string  `json:"overall_status"`
	Checks        []Check `json:"checks"`
	Summary       Summary `json:"summary"`
}

// Service runs the diagnostic sweep. It never mutates state.
type Service interface {
	Validate(ctx context.Context, scope billingdomain.Scope) (*Report, error)
}
