package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/mercadito-dev/mercadito-backend/internal/checkoutorders"
	"github.com/mercadito-dev/mercadito-backend/internal/drafts"
	"github.com/mercadito-dev/mercadito-backend/internal/orders"
	"github.com/mercadito-dev/mercadito-backend/pkg/config"
	"github.com/mercadito-dev/mercadito-backend/pkg/db/models"
	"github.com/mercadito-dev/mercadito-backend/pkg/enums"
	pkgerrors "github.com/mercadito-dev/mercadito-backend/pkg/errors"
	"github.com/mercadito-dev/mercadito-backend/pkg/logger"
	"github.com/mercadito-dev/mercadito-backend/pkg/mercadopago"
)

// PreferenceCreator is the slice of the gateway client checkout needs.
type PreferenceCreator interface {
	CreatePreference(ctx context.Context, req mercadopago.PreferenceRequest) (*mercadopago.Preference, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ItemInput is one requested product line. Prices always come from the
// catalog, never from the client.
type ItemInput struct {
	ProductID uuid.UUID `json:"productId" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,gt=0"`
}

// Input is the storefront checkout request.
type Input struct {
	Items           []ItemInput `json:"items" validate:"required,min=1,dive"`
	CustomerName    string      `json:"customerName" validate:"required"`
	CustomerEmail   string      `json:"customerEmail" validate:"required,email"`
	CustomerPhone   *string     `json:"customerPhone"`
	ShippingAddress string      `json:"shippingAddress" validate:"required"`
	BillingAddress  *string     `json:"billingAddress"`
}

// Result is what the storefront needs to hand the customer to the gateway.
type Result struct {
	CheckoutOrderID uuid.UUID `json:"checkoutOrderId"`
	DraftID         uuid.UUID `json:"draftId"`
	PreferenceID    string    `json:"preferenceId"`
	InitPoint       string    `json:"initPoint"`
	TotalAmount     string    `json:"totalAmount"`
	Currency        string    `json:"currency"`
}

// Service starts a checkout: snapshot the purchase as a draft, open a
// correlation record, and create the gateway preference the customer pays at.
type Service interface {
	Execute(ctx context.Context, input Input) (*Result, error)
}

// ServiceParams wires checkout dependencies.
type ServiceParams struct {
	Gateway        PreferenceCreator
	Drafts         drafts.Repository
	CheckoutOrders checkoutorders.Repository
	Products       orders.ProductRepository
	Tx             txRunner
	Logger         *logger.Logger
	Orders         config.OrdersConfig
	ReturnURLs     config.MercadoPagoConfig
}

type service struct {
	gateway  PreferenceCreator
	drafts   drafts.Repository
	cos      checkoutorders.Repository
	products orders.ProductRepository
	tx       txRunner
	logg     *logger.Logger
	cfg      config.OrdersConfig
	urls     config.MercadoPagoConfig
}

func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Gateway == nil:
		return nil, fmt.Errorf("gateway client required")
	case params.Drafts == nil:
		return nil, fmt.Errorf("drafts repository required")
	case params.CheckoutOrders == nil:
		return nil, fmt.Errorf("checkout orders repository required")
	case params.Products == nil:
		return nil, fmt.Errorf("products repository required")
	case params.Tx == nil:
		return nil, fmt.Errorf("transaction runner required")
	case params.Logger == nil:
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		gateway:  params.Gateway,
		drafts:   params.Drafts,
		cos:      params.CheckoutOrders,
		products: params.Products,
		tx:       params.Tx,
		logg:     params.Logger,
		cfg:      params.Orders,
		urls:     params.ReturnURLs,
	}, nil
}

func (s *service) Execute(ctx context.Context, input Input) (*Result, error) {
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one item is required")
	}

	lines, subtotal, err := s.priceItems(ctx, input.Items)
	if err != nil {
		return nil, err
	}

	currency := enums.CurrencyARS
	if parsed, perr := enums.ParseCurrency(s.cfg.Currency); perr == nil {
		currency = parsed
	}

	ttl := s.cfg.DraftTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	draft := &models.OrderDraft{
		Status:          enums.DraftStatusPending,
		Subtotal:        subtotal,
		ShippingCost:    decimal.Zero,
		Tax:             decimal.Zero,
		TotalAmount:     subtotal,
		Currency:        currency,
		CustomerName:    input.CustomerName,
		CustomerEmail:   input.CustomerEmail,
		CustomerPhone:   input.CustomerPhone,
		ShippingAddress: input.ShippingAddress,
		BillingAddress:  input.BillingAddress,
		ExpiresAt:       time.Now().UTC().Add(ttl),
		Items:           lines,
	}

	var co *models.CheckoutOrder
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.drafts.WithTx(tx).Create(ctx, draft); err != nil {
			return fmt.Errorf("persist draft: %w", err)
		}
		co = &models.CheckoutOrder{
			DraftID:     draft.ID,
			Status:      enums.CheckoutOrderStatusCreated,
			TotalAmount: draft.TotalAmount,
			Currency:    currency,
		}
		if _, err := s.cos.WithTx(tx).Create(ctx, co); err != nil {
			return fmt.Errorf("persist checkout order: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "open checkout")
	}
	ctx = s.logg.WithCheckoutOrderID(ctx, co.ID.String())

	pref, err := s.gateway.CreatePreference(ctx, s.buildPreference(co, draft))
	if err != nil {
		if uerr := s.cos.UpdateStatus(ctx, co.ID, enums.CheckoutOrderStatusFailed); uerr != nil {
			s.logg.Error(ctx, "marking checkout order failed after preference error", uerr)
		}
		return nil, err
	}

	if err := s.cos.SetPreference(ctx, co.ID, pref.ID, pref.InitPoint); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "attach preference")
	}

	s.logg.Info(ctx, "checkout started")
	return &Result{
		CheckoutOrderID: co.ID,
		DraftID:         draft.ID,
		PreferenceID:    pref.ID,
		InitPoint:       pref.InitPoint,
		TotalAmount:     draft.TotalAmount.StringFixed(2),
		Currency:        currency.String(),
	}, nil
}

// priceItems resolves catalog prices and checks availability up front. The
// hard stock fence stays in materialization; this check only fails fast.
func (s *service) priceItems(ctx context.Context, items []ItemInput) ([]models.OrderDraftItem, decimal.Decimal, error) {
	ids := make([]uuid.UUID, 0, len(items))
	requested := make(map[uuid.UUID]int, len(items))
	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
		}
		if _, seen := requested[item.ProductID]; !seen {
			ids = append(ids, item.ProductID)
		}
		requested[item.ProductID] += item.Quantity
	}

	products, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
	}

	byID := make(map[uuid.UUID]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	lines := make([]models.OrderDraftItem, 0, len(items))
	subtotal := decimal.Zero
	for _, item := range items {
		product, found := byID[item.ProductID]
		if !found {
			return nil, decimal.Zero, pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
				WithDetails(map[string]string{"productId": item.ProductID.String()})
		}
		if !product.Active {
			return nil, decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "product is not available").
				WithDetails(map[string]string{"productId": item.ProductID.String()})
		}
		if product.Stock < requested[item.ProductID] {
			return nil, decimal.Zero, pkgerrors.New(pkgerrors.CodeStateConflict, "insufficient stock").
				WithDetails(map[string]any{"productId": item.ProductID.String(), "available": product.Stock})
		}

		lineTotal := product.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		lines = append(lines, models.OrderDraftItem{
			ProductID:   product.ID,
			ProductName: product.Name,
			Quantity:    item.Quantity,
			UnitPrice:   product.Price,
			TotalPrice:  lineTotal,
		})
		subtotal = subtotal.Add(lineTotal)
	}
	return lines, subtotal, nil
}

func (s *service) buildPreference(co *models.CheckoutOrder, draft *models.OrderDraft) mercadopago.PreferenceRequest {
	items := make([]mercadopago.PreferenceItem, 0, len(draft.Items))
	for _, line := range draft.Items {
		items = append(items, mercadopago.PreferenceItem{
			Title:      line.ProductName,
			Quantity:   line.Quantity,
			UnitPrice:  line.UnitPrice,
			CurrencyID: draft.Currency.String(),
		})
	}

	req := mercadopago.PreferenceRequest{
		ExternalReference: co.ID.String(),
		Items:             items,
	}
	if s.urls.SuccessURL != "" || s.urls.FailureURL != "" || s.urls.PendingURL != "" {
		req.BackURLs = &mercadopago.BackURLs{
			Success: s.urls.SuccessURL,
			Failure: s.urls.FailureURL,
			Pending: s.urls.PendingURL,
		}
		req.AutoReturn = "approved"
	}
	return req
}
