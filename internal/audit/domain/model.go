package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Actions recorded for sensitive ledger operations.
const (
	ActionBillingCreated     = "billing.created"
	ActionBillingGenerated   = "billing.generated"
	ActionPaymentLinked      = "payment.linked"
	ActionPaymentUnlinked    = "payment.unlinked"
	ActionBulkDeleteBlocked  = "billing.bulk_delete_blocked"
	ActionBulkDeleteExecuted = "billing.bulk_delete_executed"
)

const (
	TargetTypeBillingRecord = "billing_record"
	TargetTypeBillingScope  = "billing_scope"
)

// AuditLog captures an immutable record of a sensitive ledger action.
type AuditLog struct {
	ID         snowflake.ID      `gorm:"primaryKey"`
	ActorID    string            `gorm:"type:text;not null"`
	Action     string            `gorm:"type:text;not null;index"`
	TargetType string            `gorm:"type:text;not null"`
	TargetID   *string           `gorm:"type:text"`
	Metadata   datatypes.JSONMap `gorm:"type:jsonb"`
	IPAddress  *string           `gorm:"type:text"`
	UserAgent  *string           `gorm:"type:text"`
	CreatedAt  time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (AuditLog) TableName() string { return "audit_logs" }
