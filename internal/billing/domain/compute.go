package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Recompute re-derives every dependent field from the record's inputs, in
// dependency order: added charges total, total billed, total paid, current
// balance, status. Every component that touches balanceBroughtForward, the
// period bill, additional charges or linked payments must call it before
// persisting; nothing else may set these fields.
func (r *BillingRecord) Recompute() {
	charges := decimal.Zero
	for _, charge := range r.AdditionalCharges {
		charges = charges.Add(charge.Amount)
	}
	r.AddedChargesTotal = charges

	r.TotalBilled = r.BalanceBroughtForward.Add(r.PeriodBill).Add(charges)

	paid := decimal.Zero
	for _, snapshot := range r.LinkedPayments {
		paid = paid.Add(snapshot.Amount)
	}
	r.TotalPaid = paid

	r.CurrentBalance = r.TotalBilled.Sub(paid)

	switch r.CurrentBalance.Sign() {
	case 0:
		r.Status = StatusClear
	case 1:
		r.Status = StatusOwing
	default:
		r.Status = StatusOverpaid
	}
}

// Validate rejects states that must never be persisted. The current balance
// may legitimately be negative (overpayment); the totals may not.
func (r *BillingRecord) Validate() error {
	if r.StudentID == 0 {
		return ErrInvalidStudent
	}
	if r.SchoolSiteID == 0 {
		return ErrInvalidSite
	}
	if r.AcademicYear == "" {
		return ErrInvalidYear
	}
	if r.PeriodType != PeriodTypeTerm && r.PeriodType != PeriodTypeSemester {
		return ErrInvalidPeriod
	}
	if r.PeriodNumber <= 0 {
		return ErrInvalidPeriod
	}
	if r.TotalBilled.IsNegative() {
		return ErrNegativeTotalBilled
	}
	if r.TotalPaid.IsNegative() {
		return ErrNegativeTotalPaid
	}
	return nil
}

// AppendTrail appends one audit trail entry to the embedded log.
func (r *BillingRecord) AppendTrail(action, performedBy string, at time.Time, details, previous, next string) {
	r.AuditTrail = append(r.AuditTrail, TrailEntry{
		Action:        action,
		PerformedBy:   performedBy,
		PerformedAt:   at,
		Details:       details,
		PreviousValue: previous,
		NewValue:      next,
	})
	r.LastModifiedBy = performedBy
}

// SnapshotFor returns the linked snapshot for a payment, if present.
func (r *BillingRecord) SnapshotFor(paymentID int64) (PaymentSnapshot, bool) {
	for _, snapshot := range r.LinkedPayments {
		if int64(snapshot.PaymentID) == paymentID {
			return snapshot, true
		}
	}
	return PaymentSnapshot{}, false
}

// HasPayments reports whether the record carries any money, which blocks
// unforced bulk deletion.
func (r *BillingRecord) HasPayments() bool {
	return r.TotalPaid.IsPositive() || len(r.LinkedPayments) > 0
}
