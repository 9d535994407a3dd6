package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mercadito-dev/mercadito-backend/pkg/enums"
)

// WebhookEvent is the durable record of every inbound gateway notification.
// Rows are never deleted; (provider, event_id) is the dedup key.
type WebhookEvent struct {
	ID          uuid.UUID                `gorm:"column:id;type:uuid;primaryKey"`
	Provider    string                   `gorm:"column:provider;not null;uniqueIndex:idx_webhook_events_provider_event"`
	EventID     string                   `gorm:"column:event_id;not null;uniqueIndex:idx_webhook_events_provider_event"`
	Topic       string                   `gorm:"column:topic;not null"`
	Action      string                   `gorm:"column:action"`
	ResourceID  string                   `gorm:"column:resource_id;not null"`
	Status      enums.WebhookEventStatus `gorm:"column:status;type:text;not null;default:'received'"`
	RetryCount  int                      `gorm:"column:retry_count;not null;default:0"`
	LastError   *string                  `gorm:"column:last_error"`
	RawPayload  string                   `gorm:"column:raw_payload;not null"`
	ProcessedAt *time.Time               `gorm:"column:processed_at"`
	CreatedAt   time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}

func (e *WebhookEvent) BeforeCreate(*gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
