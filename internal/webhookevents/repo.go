package webhookevents

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mercadito-dev/mercadito-backend/pkg/db/models"
	"github.com/mercadito-dev/mercadito-backend/pkg/enums"
)

// ListParams filters the admin-facing event listing.
type ListParams struct {
	Provider string
	Status   enums.WebhookEventStatus
	Limit    int
	Offset   int
}

// Repository owns the durable webhook event rows. Rows are append-then-update
// only; nothing ever deletes them.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	// Insert stores a new event. A (provider, event_id) collision surfaces
	// as gorm.ErrDuplicatedKey.
	Insert(ctx context.Context, event *models.WebhookEvent) (*models.WebhookEvent, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.WebhookEvent, error)
	FindByProviderEvent(ctx context.Context, provider, eventID string) (*models.WebhookEvent, error)
	MarkProcessed(ctx context.Context, id uuid.UUID, at time.Time) error
	MarkFailed(ctx context.Context, id uuid.UUID, cause string) error
	List(ctx context.Context, params ListParams) ([]models.WebhookEvent, int64, error)
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

func (r *repository) Insert(ctx context.Context, event *models.WebhookEvent) (*models.WebhookEvent, error) {
	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		return nil, err
	}
	return event, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.WebhookEvent, error) {
	var event models.WebhookEvent
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&event).Error; err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *repository) FindByProviderEvent(ctx context.Context, provider, eventID string) (*models.WebhookEvent, error) {
	var event models.WebhookEvent
	err := r.db.WithContext(ctx).
		Where("provider = ? AND event_id = ?", provider, eventID).
		First(&event).Error
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *repository) MarkProcessed(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.WebhookEvent{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":       enums.WebhookEventStatusProcessed,
			"processed_at": at,
			"last_error":   nil,
			"retry_count":  gorm.Expr("retry_count + 1"),
		}).Error
}

func (r *repository) MarkFailed(ctx context.Context, id uuid.UUID, cause string) error {
	return r.db.WithContext(ctx).
		Model(&models.WebhookEvent{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":      enums.WebhookEventStatusFailed,
			"last_error":  cause,
			"retry_count": gorm.Expr("retry_count + 1"),
		}).Error
}

func (r *repository) List(ctx context.Context, params ListParams) ([]models.WebhookEvent, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.WebhookEvent{})
	if params.Provider != "" {
		query = query.Where("provider = ?", params.Provider)
	}
	if params.Status != "" {
		query = query.Where("status = ?", params.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := params.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	var events []models.WebhookEvent
	err := query.
		Order("created_at DESC").
		Limit(limit).
		Offset(params.Offset).
		Find(&events).Error
	if err != nil {
		return nil, 0, err
	}
	return events, total, nil
}
