package paymentattempts

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/mercadito-dev/mercadito-backend/pkg/db/models"
)

// Repository is the append-only payment attempt ledger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	// Record inserts the attempt and reports whether this call created it.
	// A duplicate payment id loads and returns the existing row instead,
	// which is how repeat webhook deliveries collapse into one attempt.
	Record(ctx context.Context, attempt *models.PaymentAttempt) (*models.PaymentAttempt, bool, error)
	FindByPaymentID(ctx context.Context, paymentID string) (*models.PaymentAttempt, error)
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

func (r *repository) Record(ctx context.Context, attempt *models.PaymentAttempt) (*models.PaymentAttempt, bool, error) {
	err := r.db.WithContext(ctx).Create(attempt).Error
	if err == nil {
		return attempt, true, nil
	}
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, false, err
	}

	existing, ferr := r.FindByPaymentID(ctx, attempt.PaymentID)
	if ferr != nil {
		return nil, false, ferr
	}
	return existing, false, nil
}

func (r *repository) FindByPaymentID(ctx context.Context, paymentID string) (*models.PaymentAttempt, error) {
	var attempt models.PaymentAttempt
	err := r.db.WithContext(ctx).
		Where("payment_id = ?", paymentID).
		First(&attempt).Error
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}
