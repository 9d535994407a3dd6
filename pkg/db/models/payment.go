package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/mercadito-dev/mercadito-backend/pkg/enums"
)

// Payment mirrors the gateway's current view of a payment, independent of
// order conversion. Upserted by the gateway payment id.
type Payment struct {
	ID                uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	MPPaymentID       string              `gorm:"column:mp_payment_id;not null;uniqueIndex"`
	Status            enums.PaymentStatus `gorm:"column:status;type:text;not null"`
	Amount            decimal.Decimal     `gorm:"column:amount;type:numeric(12,2);not null"`
	Currency          enums.Currency      `gorm:"column:currency;type:text;not null;default:'ARS'"`
	PayerEmail        *string             `gorm:"column:payer_email"`
	ExternalReference *string             `gorm:"column:external_reference;index"`
	AccessActive      bool                `gorm:"column:access_active;not null;default:false"`
	RiskFlagged       *bool               `gorm:"column:risk_flagged"`
	LastMPStatus      string              `gorm:"column:last_mp_status;not null"`
	LastSyncedAt      time.Time           `gorm:"column:last_synced_at;not null"`
	CreatedAt         time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Payment) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
