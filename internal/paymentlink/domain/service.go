// Package domain defines payment linking against billing records.
package domain

import (
	"context"
	"errors"

	billingdomain "github.com/classbridge/feeledger/internal/billing/domain"
	paymentdomain "github.com/classbridge/feeledger/internal/payment/domain"
	"github.com/shopspring/decimal"
)

// LinkedPayment pairs the ledger's snapshot with the live payment row. The
// live row may be nil when the payment was deleted externally.
type LinkedPayment struct {
	Snapshot billingdomain.PaymentSnapshot `json:"snapshot"`
	Payment  *paymentdomain.Payment        `json:"payment,omitempty"`
}

// ListLinkedResponse joins the record's snapshots with full payment detail.
type ListLinkedResponse struct {
	BillingID string          `json:"billing_id"`
	Payments  []LinkedPayment `json:"payments"`
	TotalPaid decimal.Decimal `json:"total_paid"`
	Currency  string          `json:"currency"`
}

// Service attaches and detaches payment snapshots on billing records.
type Service interface {
	Link(ctx context.Context, billingID, paymentID, actorID string) (*billingdomain.BillingRecord, error)
	Unlink(ctx context.Context, billingID, paymentID, actorID string) error
	ListLinked(ctx context.Context, billingID string) (*ListLinkedResponse, error)
}

var (
	ErrAlreadyLinked   = errors.New("payment_already_linked")
	ErrNotLinked       = errors.New("payment_not_linked")
	ErrStudentMismatch = errors.New("payment_student_mismatch")
)
