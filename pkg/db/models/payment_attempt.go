package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PaymentAttempt is the append-only ledger row recorded the first time a
// gateway payment id is seen. The unique index on payment_id is the
// idempotency fence for order materialization.
type PaymentAttempt struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	CheckoutOrderID uuid.UUID       `gorm:"column:checkout_order_id;type:uuid;not null;index"`
	PaymentID       string          `gorm:"column:payment_id;not null;uniqueIndex"`
	PreferenceID    *string         `gorm:"column:preference_id"`
	MerchantOrderID *string         `gorm:"column:merchant_order_id"`
	Status          string          `gorm:"column:status;not null"`
	Raw             json.RawMessage `gorm:"column:raw;type:jsonb"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (a *PaymentAttempt) BeforeCreate(*gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
