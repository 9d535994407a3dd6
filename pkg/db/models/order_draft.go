package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/mercadito-dev/mercadito-backend/pkg/enums"
)

// OrderDraft is the pre-payment snapshot of a customer's intended purchase.
// Once converted it is immutable and carries a back-reference to the Order.
type OrderDraft struct {
	ID               uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	Status           enums.DraftStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	Subtotal         decimal.Decimal   `gorm:"column:subtotal;type:numeric(12,2);not null"`
	ShippingCost     decimal.Decimal   `gorm:"column:shipping_cost;type:numeric(12,2);not null"`
	Tax              decimal.Decimal   `gorm:"column:tax;type:numeric(12,2);not null"`
	TotalAmount      decimal.Decimal   `gorm:"column:total_amount;type:numeric(12,2);not null"`
	Currency         enums.Currency    `gorm:"column:currency;type:text;not null;default:'ARS'"`
	CustomerName     string            `gorm:"column:customer_name;not null"`
	CustomerEmail    string            `gorm:"column:customer_email;not null"`
	CustomerPhone    *string           `gorm:"column:customer_phone"`
	ShippingAddress  string            `gorm:"column:shipping_address;not null"`
	BillingAddress   *string           `gorm:"column:billing_address"`
	ConvertedOrderID *uuid.UUID        `gorm:"column:converted_order_id;type:uuid"`
	OrderNumber      *string           `gorm:"column:order_number"`
	ExpiresAt        time.Time         `gorm:"column:expires_at;not null"`
	Items            []OrderDraftItem  `gorm:"foreignKey:DraftID;constraint:OnDelete:CASCADE"`
	CreatedAt        time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (d *OrderDraft) BeforeCreate(*gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

// OrderDraftItem is a single requested line on a draft.
type OrderDraftItem struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	DraftID     uuid.UUID       `gorm:"column:draft_id;type:uuid;not null;index"`
	ProductID   uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	ProductName string          `gorm:"column:product_name;not null"`
	Quantity    int             `gorm:"column:quantity;not null"`
	UnitPrice   decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	TotalPrice  decimal.Decimal `gorm:"column:total_price;type:numeric(12,2);not null"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (i *OrderDraftItem) BeforeCreate(*gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
