package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mercadito-dev/mercadito-backend/internal/drafts"
	"github.com/mercadito-dev/mercadito-backend/internal/notifications"
	"github.com/mercadito-dev/mercadito-backend/pkg/db/models"
	"github.com/mercadito-dev/mercadito-backend/pkg/enums"
	"github.com/mercadito-dev/mercadito-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Result carries the identifiers of a freshly materialized order.
type Result struct {
	OrderID     uuid.UUID
	OrderNumber string
}

// Materializer converts a pending draft into a persisted order exactly once.
// A nil result with nil error means materialization was declined: the draft
// was no longer pending, or stock ran short after payment. The latter is
// logged loudly because the customer already paid.
type Materializer interface {
	CreateFromDraft(ctx context.Context, draft *models.OrderDraft, paymentID string, preferenceID *string) (*Result, error)
}

// ServiceParams wires materializer dependencies.
type ServiceParams struct {
	Repo          Repository
	Products      ProductRepository
	Drafts        drafts.Repository
	Notifications notifications.Service
	Tx            txRunner
	Logger        *logger.Logger
	NumberPrefix  string
}

type service struct {
	repo         Repository
	products     ProductRepository
	drafts       drafts.Repository
	notify       notifications.Service
	tx           txRunner
	logg         *logger.Logger
	numberPrefix string
}

var (
	errStockShortfall = errors.New("stock shortfall")
	errDraftTaken     = errors.New("draft already converted")
)

func NewService(params ServiceParams) (Materializer, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("products repository required")
	}
	if params.Drafts == nil {
		return nil, fmt.Errorf("drafts repository required")
	}
	if params.Notifications == nil {
		return nil, fmt.Errorf("notifications service required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	prefix := params.NumberPrefix
	if prefix == "" {
		prefix = "MCD"
	}
	return &service{
		repo:         params.Repo,
		products:     params.Products,
		drafts:       params.Drafts,
		notify:       params.Notifications,
		tx:           params.Tx,
		logg:         params.Logger,
		numberPrefix: prefix,
	}, nil
}

func (s *service) CreateFromDraft(ctx context.Context, draft *models.OrderDraft, paymentID string, preferenceID *string) (*Result, error) {
	if draft == nil {
		return nil, fmt.Errorf("draft required")
	}
	if paymentID == "" {
		return nil, fmt.Errorf("payment id required")
	}
	ctx = s.logg.WithPaymentID(ctx, paymentID)
	ctx = s.logg.WithField(ctx, "draft_id", draft.ID.String())

	if draft.Status != enums.DraftStatusPending {
		s.logg.Warn(ctx, fmt.Sprintf("draft is %s, skipping materialization", draft.Status))
		return nil, nil
	}

	requested := aggregateQuantities(draft.Items)

	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		products := s.products.WithTx(tx)
		draftsRepo := s.drafts.WithTx(tx)

		if err := checkShortfalls(ctx, products, requested); err != nil {
			return err
		}

		number, err := nextOrderNumber(ctx, repo, s.numberPrefix, time.Now().UTC())
		if err != nil {
			return err
		}

		order = buildOrder(draft, paymentID, preferenceID, number)
		if _, err := repo.Create(ctx, order); err != nil {
			return fmt.Errorf("persist order: %w", err)
		}

		for productID, qty := range requested {
			ok, err := products.DecrementStock(ctx, productID, qty)
			if err != nil {
				return fmt.Errorf("decrement stock for %s: %w", productID, err)
			}
			if !ok {
				// a concurrent materialization drained the stock between the
				// shortfall check and this update
				return errStockShortfall
			}
		}

		converted, err := draftsRepo.MarkConverted(ctx, draft.ID, order.ID, number)
		if err != nil {
			return fmt.Errorf("mark draft converted: %w", err)
		}
		if !converted {
			return errDraftTaken
		}
		return nil
	})

	switch {
	case err == nil:
	case errors.Is(err, errStockShortfall):
		s.logg.Error(ctx, "paid draft hit stock shortfall, manual operator review required", err)
		return nil, nil
	case errors.Is(err, errDraftTaken):
		s.logg.Warn(ctx, "draft converted by a concurrent reconciliation, adopting existing order")
		return nil, nil
	default:
		return nil, err
	}

	draft.Status = enums.DraftStatusConverted
	draft.ConvertedOrderID = &order.ID
	draft.OrderNumber = &order.OrderNumber

	if err := s.notify.RecordOrderConfirmation(ctx, order); err != nil {
		s.logg.Warn(ctx, fmt.Sprintf("order confirmation failed: %v", err))
	}

	s.logg.Info(ctx, fmt.Sprintf("order %s materialized", order.OrderNumber))
	return &Result{OrderID: order.ID, OrderNumber: order.OrderNumber}, nil
}

// aggregateQuantities merges duplicate draft lines into per-product totals.
func aggregateQuantities(items []models.OrderDraftItem) map[uuid.UUID]int {
	totals := make(map[uuid.UUID]int, len(items))
	for _, item := range items {
		totals[item.ProductID] += item.Quantity
	}
	return totals
}

func checkShortfalls(ctx context.Context, products ProductRepository, requested map[uuid.UUID]int) error {
	ids := make([]uuid.UUID, 0, len(requested))
	for id := range requested {
		ids = append(ids, id)
	}

	rows, err := products.FindByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("load products: %w", err)
	}

	available := make(map[uuid.UUID]int, len(rows))
	for _, p := range rows {
		available[p.ID] = p.Stock
	}

	for id, qty := range requested {
		stock, found := available[id]
		if !found || stock < qty {
			return errStockShortfall
		}
	}
	return nil
}

func buildOrder(draft *models.OrderDraft, paymentID string, preferenceID *string, number string) *models.Order {
	items := make([]models.OrderItem, 0, len(draft.Items))
	for _, line := range draft.Items {
		items = append(items, models.OrderItem{
			ProductID:   line.ProductID,
			ProductName: line.ProductName,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			TotalPrice:  line.TotalPrice,
		})
	}

	return &models.Order{
		OrderNumber:     number,
		DraftID:         draft.ID,
		Status:          enums.OrderStatusProcessing,
		PaymentStatus:   enums.OrderPaymentStatusPaid,
		PaymentID:       paymentID,
		PreferenceID:    preferenceID,
		Subtotal:        draft.Subtotal,
		ShippingCost:    draft.ShippingCost,
		Tax:             draft.Tax,
		TotalAmount:     draft.TotalAmount,
		Currency:        draft.Currency,
		CustomerName:    draft.CustomerName,
		CustomerEmail:   draft.CustomerEmail,
		CustomerPhone:   draft.CustomerPhone,
		ShippingAddress: draft.ShippingAddress,
		BillingAddress:  draft.BillingAddress,
		Items:           items,
	}
}
