package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// CreateRecordRequest is a direct single-record creation, used outside the
// bulk generation path.
type CreateRecordRequest struct {
	StudentID             string             `json:"student_id"`
	SchoolSiteID          string             `json:"school_site_id"`
	ClassID               string             `json:"class_id"`
	AcademicYear          string             `json:"academic_year"`
	PeriodType            PeriodType         `json:"period_type"`
	PeriodNumber          int                `json:"period_number"`
	BalanceBroughtForward decimal.Decimal    `json:"balance_brought_forward"`
	PeriodBill            decimal.Decimal    `json:"period_bill"`
	FeeBreakdown          []FeeLineItem      `json:"fee_breakdown"`
	AdditionalCharges     []AdditionalCharge `json:"additional_charges"`
	PaymentDueDate        *time.Time         `json:"payment_due_date"`
	Currency              string             `json:"currency"`
	CreatedBy             string             `json:"created_by"`
}

// Service exposes single-record operations.
type Service interface {
	Create(ctx context.Context, req CreateRecordRequest) (*BillingRecord, error)
	GetByID(ctx context.Context, id string) (*BillingRecord, error)
	ListByScope(ctx context.Context, scope Scope) ([]BillingRecord, error)
}
