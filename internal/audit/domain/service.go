package domain

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// Entry is the caller-facing shape of an audit record. Actor, IP and user
// agent are resolved from the request context by the service.
type Entry struct {
	Action     string
	TargetType string
	TargetID   string
	Metadata   map[string]any
}

// Service writes audit log rows for sensitive operations.
type Service interface {
	Record(ctx context.Context, entry Entry) error
	// RecordTx writes through an existing transaction so the audit row
	// commits with the mutation it describes.
	RecordTx(ctx context.Context, tx *gorm.DB, entry Entry) error
	List(ctx context.Context, filter ListFilter) ([]*AuditLog, error)
}

var (
	ErrInvalidAction = errors.New("invalid_action")
	ErrInvalidTarget = errors.New("invalid_target")
)
