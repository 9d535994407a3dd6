package checkoutorders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mercadito-dev/mercadito-backend/pkg/db/models"
	"github.com/mercadito-dev/mercadito-backend/pkg/enums"
)

// Repository persists checkout orders, the correlation records between
// drafts and gateway preferences.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, co *models.CheckoutOrder) (*models.CheckoutOrder, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.CheckoutOrder, error)
	FindByPreferenceID(ctx context.Context, preferenceID string) (*models.CheckoutOrder, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.CheckoutOrderStatus) error
	SetPreference(ctx context.Context, id uuid.UUID, preferenceID, initPoint string) error
	// SetConverted stamps the materialized order exactly once. Returns false
	// when another conversion already won the race.
	SetConverted(ctx context.Context, id, orderID uuid.UUID, orderNumber string, status enums.CheckoutOrderStatus) (bool, error)
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

func (r *repository) Create(ctx context.Context, co *models.CheckoutOrder) (*models.CheckoutOrder, error) {
	if err := r.db.WithContext(ctx).Create(co).Error; err != nil {
		return nil, err
	}
	return co, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.CheckoutOrder, error) {
	var co models.CheckoutOrder
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&co).Error; err != nil {
		return nil, err
	}
	return &co, nil
}

func (r *repository) FindByPreferenceID(ctx context.Context, preferenceID string) (*models.CheckoutOrder, error) {
	var co models.CheckoutOrder
	err := r.db.WithContext(ctx).
		Where("preference_id = ?", preferenceID).
		First(&co).Error
	if err != nil {
		return nil, err
	}
	return &co, nil
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.CheckoutOrderStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.CheckoutOrder{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (r *repository) SetPreference(ctx context.Context, id uuid.UUID, preferenceID, initPoint string) error {
	return r.db.WithContext(ctx).
		Model(&models.CheckoutOrder{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"preference_id": preferenceID,
			"init_point":    initPoint,
			"status":        enums.CheckoutOrderStatusCheckoutStarted,
		}).Error
}

func (r *repository) SetConverted(ctx context.Context, id, orderID uuid.UUID, orderNumber string, status enums.CheckoutOrderStatus) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.CheckoutOrder{}).
		Where("id = ? AND converted_order_id IS NULL", id).
		Updates(map[string]any{
			"converted_order_id": orderID,
			"order_number":       orderNumber,
			"status":             status,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
