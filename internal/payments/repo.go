package payments

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mercadito-dev/mercadito-backend/pkg/db/models"
)

// Repository owns the gateway-payment mirror rows, keyed by the gateway id.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	// Upsert inserts or refreshes the mirror row for payment.MPPaymentID.
	// Access and risk columns are never touched here; those belong to the
	// access router.
	Upsert(ctx context.Context, payment *models.Payment) (*models.Payment, error)
	FindByMPPaymentID(ctx context.Context, mpPaymentID string) (*models.Payment, error)
	SetAccess(ctx context.Context, mpPaymentID string, active bool) error
	FlagRisk(ctx context.Context, mpPaymentID string) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Upsert(ctx context.Context, payment *models.Payment) (*models.Payment, error) {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "mp_payment_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"status",
				"amount",
				"currency",
				"payer_email",
				"external_reference",
				"last_mp_status",
				"last_synced_at",
				"updated_at",
			}),
		}).
		Create(payment).Error
	if err != nil {
		return nil, err
	}
	return r.FindByMPPaymentID(ctx, payment.MPPaymentID)
}

func (r *repository) FindByMPPaymentID(ctx context.Context, mpPaymentID string) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).
		Where("mp_payment_id = ?", mpPaymentID).
		First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repository) SetAccess(ctx context.Context, mpPaymentID string, active bool) error {
	return r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("mp_payment_id = ?", mpPaymentID).
		Update("access_active", active).Error
}

func (r *repository) FlagRisk(ctx context.Context, mpPaymentID string) error {
	flagged := true
	return r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("mp_payment_id = ?", mpPaymentID).
		Updates(map[string]any{
			"access_active": false,
			"risk_flagged":  &flagged,
		}).Error
}
