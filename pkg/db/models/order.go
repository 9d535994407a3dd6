package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/mercadito-dev/mercadito-backend/pkg/enums"
)

// Order is the final, customer-facing order created exactly once per draft.
type Order struct {
	ID              uuid.UUID                `gorm:"column:id;type:uuid;primaryKey"`
	OrderNumber     string                   `gorm:"column:order_number;not null;index"`
	DraftID         uuid.UUID                `gorm:"column:draft_id;type:uuid;not null;index"`
	Status          enums.OrderStatus        `gorm:"column:status;type:text;not null;default:'processing'"`
	PaymentStatus   enums.OrderPaymentStatus `gorm:"column:payment_status;type:text;not null;default:'paid'"`
	PaymentID       string                   `gorm:"column:payment_id;not null"`
	PreferenceID    *string                  `gorm:"column:preference_id"`
	Subtotal        decimal.Decimal          `gorm:"column:subtotal;type:numeric(12,2);not null"`
	ShippingCost    decimal.Decimal          `gorm:"column:shipping_cost;type:numeric(12,2);not null"`
	Tax             decimal.Decimal          `gorm:"column:tax;type:numeric(12,2);not null"`
	TotalAmount     decimal.Decimal          `gorm:"column:total_amount;type:numeric(12,2);not null"`
	Currency        enums.Currency           `gorm:"column:currency;type:text;not null;default:'ARS'"`
	CustomerName    string                   `gorm:"column:customer_name;not null"`
	CustomerEmail   string                   `gorm:"column:customer_email;not null"`
	CustomerPhone   *string                  `gorm:"column:customer_phone"`
	ShippingAddress string                   `gorm:"column:shipping_address;not null"`
	BillingAddress  *string                  `gorm:"column:billing_address"`
	Items           []OrderItem              `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// OrderItem is one purchased line on a materialized order.
type OrderItem struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OrderID     uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID   uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	ProductName string          `gorm:"column:product_name;not null"`
	Quantity    int             `gorm:"column:quantity;not null"`
	UnitPrice   decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	TotalPrice  decimal.Decimal `gorm:"column:total_price;type:numeric(12,2);not null"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (i *OrderItem) BeforeCreate(*gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
