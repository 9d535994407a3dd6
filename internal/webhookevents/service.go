package webhookevents

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mercadito-dev/mercadito-backend/pkg/db/models"
	"github.com/mercadito-dev/mercadito-backend/pkg/enums"
	pkgerrors "github.com/mercadito-dev/mercadito-backend/pkg/errors"
	"github.com/mercadito-dev/mercadito-backend/pkg/logger"
)

// RecordInput captures everything we persist about an inbound notification.
type RecordInput struct {
	Provider   string
	EventID    string
	Topic      string
	Action     string
	ResourceID string
	RawPayload []byte
}

// Service is the webhook event ledger. Record deduplicates on
// (provider, event id); the status transitions are idempotent.
type Service interface {
	Record(ctx context.Context, input RecordInput) (*models.WebhookEvent, bool, error)
	MarkProcessed(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, cause error) error
	Get(ctx context.Context, id uuid.UUID) (*models.WebhookEvent, error)
	List(ctx context.Context, params ListParams) ([]models.WebhookEvent, int64, error)
}

// ServiceParams wires ledger dependencies.
type ServiceParams struct {
	Repo            Repository
	Logger          *logger.Logger
	PayloadMaxBytes int
}

type service struct {
	repo     Repository
	logg     *logger.Logger
	maxBytes int
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("webhook events repository required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	maxBytes := params.PayloadMaxBytes
	if maxBytes <= 0 {
		maxBytes = 4096
	}
	return &service{
		repo:     params.Repo,
		logg:     params.Logger,
		maxBytes: maxBytes,
	}, nil
}

func (s *service) Record(ctx context.Context, input RecordInput) (*models.WebhookEvent, bool, error) {
	if input.Provider == "" || input.EventID == "" {
		return nil, false, pkgerrors.New(pkgerrors.CodeValidation, "provider and event id required")
	}
	ctx = s.logg.WithEventID(ctx, input.EventID)

	event := &models.WebhookEvent{
		Provider:   input.Provider,
		EventID:    input.EventID,
		Topic:      input.Topic,
		Action:     input.Action,
		ResourceID: input.ResourceID,
		Status:     enums.WebhookEventStatusReceived,
		RawPayload: SanitizePayload(input.RawPayload, s.maxBytes),
	}

	stored, err := s.repo.Insert(ctx, event)
	if err == nil {
		return stored, false, nil
	}
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store webhook event")
	}

	existing, ferr := s.repo.FindByProviderEvent(ctx, input.Provider, input.EventID)
	if ferr != nil {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, ferr, "load duplicate webhook event")
	}
	s.logg.Info(ctx, "duplicate webhook delivery, short-circuiting")
	return existing, true, nil
}

func (s *service) MarkProcessed(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "event id required")
	}
	return s.repo.MarkProcessed(ctx, id, time.Now().UTC())
}

func (s *service) MarkFailed(ctx context.Context, id uuid.UUID, cause error) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "event id required")
	}
	msg := "unknown failure"
	if cause != nil {
		msg = cause.Error()
	}
	return s.repo.MarkFailed(ctx, id, msg)
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.WebhookEvent, error) {
	event, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "webhook event not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load webhook event")
	}
	return event, nil
}

func (s *service) List(ctx context.Context, params ListParams) ([]models.WebhookEvent, int64, error) {
	events, total, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list webhook events")
	}
	return events, total, nil
}
