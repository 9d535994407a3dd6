package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mercadito-dev/mercadito-backend/pkg/db/models"
	"github.com/mercadito-dev/mercadito-backend/pkg/logger"
)

const kindOrderConfirmation = "order_confirmation"

// OrderConfirmation is the payload stored with a confirmation record.
type OrderConfirmation struct {
	OrderID       string `json:"order_id"`
	OrderNumber   string `json:"order_number"`
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
	TotalAmount   string `json:"total_amount"`
	Currency      string `json:"currency"`
}

// Service records outbound notifications. Everything here is best effort:
// callers log failures and move on, an order must never roll back because
// its confirmation could not be stored or sent.
type Service interface {
	RecordOrderConfirmation(ctx context.Context, order *models.Order) error
}

type service struct {
	repo Repository
	logg *logger.Logger
}

func NewService(repo Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, logg: logg}, nil
}

func (s *service) RecordOrderConfirmation(ctx context.Context, order *models.Order) error {
	if order == nil {
		return fmt.Errorf("order required")
	}

	payload, err := json.Marshal(OrderConfirmation{
		OrderID:       order.ID.String(),
		OrderNumber:   order.OrderNumber,
		CustomerName:  order.CustomerName,
		CustomerEmail: order.CustomerEmail,
		TotalAmount:   order.TotalAmount.StringFixed(2),
		Currency:      order.Currency.String(),
	})
	if err != nil {
		return fmt.Errorf("encode confirmation payload: %w", err)
	}

	now := time.Now().UTC()
	_, err = s.repo.Create(ctx, &models.Notification{
		Kind:           kindOrderConfirmation,
		RecipientEmail: order.CustomerEmail,
		OrderID:        &order.ID,
		Payload:        payload,
		SentAt:         &now,
	})
	if err != nil {
		return fmt.Errorf("store confirmation: %w", err)
	}

	s.logg.Info(ctx, "order confirmation recorded")
	return nil
}
