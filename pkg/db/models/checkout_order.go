package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/mercadito-dev/mercadito-backend/pkg/enums"
)

// CheckoutOrder correlates a gateway payment preference with an OrderDraft.
// Its id travels as the gateway transaction's external_reference, which is
// how inbound notifications find their way back to the draft.
type CheckoutOrder struct {
	ID               uuid.UUID                 `gorm:"column:id;type:uuid;primaryKey"`
	DraftID          uuid.UUID                 `gorm:"column:draft_id;type:uuid;not null;index"`
	Status           enums.CheckoutOrderStatus `gorm:"column:status;type:text;not null;default:'CREATED'"`
	PreferenceID     *string                   `gorm:"column:preference_id;index"`
	InitPoint        *string                   `gorm:"column:init_point"`
	ConvertedOrderID *uuid.UUID                `gorm:"column:converted_order_id;type:uuid"`
	OrderNumber      *string                   `gorm:"column:order_number"`
	TotalAmount      decimal.Decimal           `gorm:"column:total_amount;type:numeric(12,2);not null"`
	Currency         enums.Currency            `gorm:"column:currency;type:text;not null;default:'ARS'"`
	CreatedAt        time.Time                 `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time                 `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *CheckoutOrder) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// Converted reports whether materialization already happened for this record.
func (c *CheckoutOrder) Converted() bool {
	return c.ConvertedOrderID != nil
}
