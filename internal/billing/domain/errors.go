package domain

import "errors"

var (
	ErrInvalidStudent      = errors.New("invalid_student")
	ErrInvalidSite         = errors.New("invalid_site")
	ErrInvalidYear         = errors.New("invalid_academic_year")
	ErrInvalidPeriod       = errors.New("invalid_period")
	ErrInvalidScope        = errors.New("invalid_scope")
	ErrNegativeTotalBilled = errors.New("negative_total_billed")
	ErrNegativeTotalPaid   = errors.New("negative_total_paid")
	ErrRecordNotFound      = errors.New("billing_record_not_found")
	ErrDuplicateRecord     = errors.New("duplicate_billing_record")
	ErrRecordLocked        = errors.New("billing_record_locked")
)
