// Package domain defines the bulk generation contract.
package domain

import (
	"context"
	"errors"

	billingdomain "github.com/classbridge/feeledger/internal/billing/domain"
)

// Request scopes one generation run. Exactly one of ClassIDs, DepartmentID or
// neither (all active classes) narrows the class set.
type Request struct {
	SchoolSiteID string                   `json:"school_site_id"`
	AcademicYear string                   `json:"academic_year"`
	PeriodType   billingdomain.PeriodType `json:"period_type"`
	PeriodNumber int                      `json:"period_number"`
	ClassIDs     []string                 `json:"class_ids,omitempty"`
	DepartmentID string                   `json:"department_id,omitempty"`
	CreatedBy    string                   `json:"created_by"`
}

// ClassResult is the per-class breakdown of a run.
type ClassResult struct {
	ClassID    string `json:"class_id"`
	ClassName  string `json:"class_name"`
	Generated  int    `json:"generated"`
	Skipped    int    `json:"skipped"`
	SkipReason string `json:"skip_reason,omitempty"`
}

// StudentError records one student whose record could not be generated. It
// never aborts the run.
type StudentError struct {
	StudentID string `json:"student_id"`
	ClassID   string `json:"class_id"`
	Reason    string `json:"reason"`
}

// Report is the outcome of a generation run.
type Report struct {
	Generated int            `json:"generated"`
	Skipped   int            `json:"skipped"`
	Classes   []ClassResult  `json:"classes_processed"`
	Errors    []StudentError `json:"errors"`
}

// Service bulk-creates billing records for a cohort.
type Service interface {
	Generate(ctx context.Context, req Request) (*Report, error)
}

const SkipReasonNoFeeConfig = "no fee configuration"

var (
	ErrInvalidSite       = errors.New("invalid_site")
	ErrInvalidYear       = errors.New("invalid_academic_year")
	ErrInvalidPeriod     = errors.New("invalid_period")
	ErrInvalidClass      = errors.New("invalid_class")
	ErrInvalidDepartment = errors.New("invalid_department")
	ErrNoClasses         = errors.New("no_classes_in_scope")
)
