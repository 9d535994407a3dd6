package drafts

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mercadito-dev/mercadito-backend/pkg/db/models"
	"github.com/mercadito-dev/mercadito-backend/pkg/enums"
)

// Repository persists order drafts and their lines.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, draft *models.OrderDraft) (*models.OrderDraft, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.OrderDraft, error)
	// MarkConverted flips a pending draft to converted and stamps the order
	// back-reference. Returns false when the draft was not pending anymore,
	// which callers treat as "someone else already converted it".
	MarkConverted(ctx context.Context, draftID, orderID uuid.UUID, orderNumber string) (bool, error)
	// ExpireStale marks pending drafts past their deadline as expired and
	// returns how many rows changed.
	ExpireStale(ctx context.Context, now time.Time) (int64, error)
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

func (r *repository) Create(ctx context.Context, draft *models.OrderDraft) (*models.OrderDraft, error) {
	if err := r.db.WithContext(ctx).Create(draft).Error; err != nil {
		return nil, err
	}
	return draft, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.OrderDraft, error) {
	var draft models.OrderDraft
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("id = ?", id).
		First(&draft).Error
	if err != nil {
		return nil, err
	}
	return &draft, nil
}

func (r *repository) MarkConverted(ctx context.Context, draftID, orderID uuid.UUID, orderNumber string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.OrderDraft{}).
		Where("id = ? AND status = ?", draftID, enums.DraftStatusPending).
		Updates(map[string]any{
			"status":             enums.DraftStatusConverted,
			"converted_order_id": orderID,
			"order_number":       orderNumber,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) ExpireStale(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.OrderDraft{}).
		Where("status = ? AND expires_at < ?", enums.DraftStatusPending, now).
		Update("status", enums.DraftStatusExpired)
	return res.RowsAffected, res.Error
}
