package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Notification is a best-effort outbound message record (order confirmations).
// Failures to persist or deliver never roll back the order that produced them.
type Notification struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Kind           string          `gorm:"column:kind;not null"`
	RecipientEmail string          `gorm:"column:recipient_email;not null"`
	OrderID        *uuid.UUID      `gorm:"column:order_id;type:uuid;index"`
	Payload        json.RawMessage `gorm:"column:payload;type:jsonb"`
	SentAt         *time.Time      `gorm:"column:sent_at"`
	LastError      *string         `gorm:"column:last_error"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (n *Notification) BeforeCreate(*gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}
