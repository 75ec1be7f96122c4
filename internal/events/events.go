// Package events stores billing events in a transactional outbox table.
package events

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Billing event types emitted by ledger mutations.
const (
	EventBillingCreated    = "billing.created"
	EventBillingGenerated  = "billing.generated"
	EventPaymentLinked     = "payment.linked"
	EventPaymentUnlinked   = "payment.unlinked"
	EventBillingBulkDelete = "billing.bulk_deleted"
)

// BillingEvent is one outbox row awaiting downstream publication.
type BillingEvent struct {
	ID        snowflake.ID      `gorm:"primaryKey"`
	EventType string            `gorm:"type:text;not null;index"`
	Payload   datatypes.JSONMap `gorm:"type:jsonb;not null"`
	DedupeKey *string           `gorm:"type:text;uniqueIndex"`
	Published bool              `gorm:"not null;default:false;index"`
	CreatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (BillingEvent) TableName() string { return "billing_events" }
