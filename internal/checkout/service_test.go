package checkout

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
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

type stubPreferenceCreator struct {
	lastRequest *mercadopago.PreferenceRequest
	err         error
}

func (s *stubPreferenceCreator) CreatePreference(_ context.Context, req mercadopago.PreferenceRequest) (*mercadopago.Preference, error) {
	s.lastRequest = &req
	if s.err != nil {
		return nil, s.err
	}
	return &mercadopago.Preference{
		ID:        "pref-" + req.ExternalReference,
		InitPoint: "https://mp.example/init/" + req.ExternalReference,
	}, nil
}

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

type checkoutFixture struct {
	db      *gorm.DB
	svc     Service
	gateway *stubPreferenceCreator
	drafts  drafts.Repository
	cos     checkoutorders.Repository
}

func setupCheckout(t *testing.T) *checkoutFixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Product{},
		&models.OrderDraft{},
		&models.OrderDraftItem{},
		&models.CheckoutOrder{},
	))

	logg := logger.New(logger.Options{
		ServiceName: "checkout-test",
		Level:       zerolog.Disabled,
		Output:      io.Discard,
	})

	f := &checkoutFixture{
		db:      db,
		gateway: &stubPreferenceCreator{},
		drafts:  drafts.NewRepository(db),
		cos:     checkoutorders.NewRepository(db),
	}

	svc, err := NewService(ServiceParams{
		Gateway:        f.gateway,
		Drafts:         f.drafts,
		CheckoutOrders: f.cos,
		Products:       orders.NewProductRepository(db),
		Tx:             gormTxRunner{db: db},
		Logger:         logg,
		Orders: config.OrdersConfig{
			NumberPrefix: "MCD",
			DraftTTL:     24 * time.Hour,
			Currency:     "ARS",
		},
		ReturnURLs: config.MercadoPagoConfig{
			SuccessURL: "https://shop.example/checkout/success",
			FailureURL: "https://shop.example/checkout/failure",
			PendingURL: "https://shop.example/checkout/pending",
		},
	})
	require.NoError(t, err)
	f.svc = svc
	return f
}

func (f *checkoutFixture) seedProduct(t *testing.T, price string, stock int, active bool) *models.Product {
	t.Helper()
	product := &models.Product{
		Name:   "Yerba 1kg",
		Price:  decimal.RequireFromString(price),
		Stock:  stock,
		Active: active,
	}
	require.NoError(t, f.db.Create(product).Error)
	// gorm drops zero-valued fields with a column default on insert, so
	// Active=false would otherwise be stored as the default:true.
	require.NoError(t, f.db.Model(product).UpdateColumn("active", active).Error)
	return product
}

func validInput(productID uuid.UUID, qty int) Input {
	return Input{
		Items:           []ItemInput{{ProductID: productID, Quantity: qty}},
		CustomerName:    "Ana Perez",
		CustomerEmail:   "ana@example.com",
		ShippingAddress: "Av. Siempre Viva 742",
	}
}

func TestExecuteCreatesDraftOrderAndPreference(t *testing.T) {
	f := setupCheckout(t)
	ctx := context.Background()

	product := f.seedProduct(t, "1500", 10, true)
	result, err := f.svc.Execute(ctx, validInput(product.ID, 2))
	require.NoError(t, err)

	assert.Equal(t, "3000.00", result.TotalAmount)
	assert.Equal(t, "ARS", result.Currency)
	assert.NotEmpty(t, result.InitPoint)

	draft, err := f.drafts.FindByID(ctx, result.DraftID)
	require.NoError(t, err)
	assert.Equal(t, enums.DraftStatusPending, draft.Status)
	require.Len(t, draft.Items, 1)
	// price comes from the catalog
	assert.True(t, draft.Items[0].UnitPrice.Equal(decimal.RequireFromString("1500")))

	co, err := f.cos.FindByID(ctx, result.CheckoutOrderID)
	require.NoError(t, err)
	assert.Equal(t, enums.CheckoutOrderStatusCheckoutStarted, co.Status)
	require.NotNil(t, co.PreferenceID)
	assert.Equal(t, result.PreferenceID, *co.PreferenceID)

	require.NotNil(t, f.gateway.lastRequest)
	assert.Equal(t, co.ID.String(), f.gateway.lastRequest.ExternalReference)
	require.NotNil(t, f.gateway.lastRequest.BackURLs)
	assert.Equal(t, "https://shop.example/checkout/success", f.gateway.lastRequest.BackURLs.Success)
}

func TestExecuteRejectsUnknownProduct(t *testing.T) {
	f := setupCheckout(t)

	_, err := f.svc.Execute(context.Background(), validInput(uuid.New(), 1))
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestExecuteRejectsInactiveProduct(t *testing.T) {
	f := setupCheckout(t)

	product := f.seedProduct(t, "1500", 10, false)
	_, err := f.svc.Execute(context.Background(), validInput(product.ID, 1))
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestExecuteRejectsInsufficientStock(t *testing.T) {
	f := setupCheckout(t)

	product := f.seedProduct(t, "1500", 1, true)
	_, err := f.svc.Execute(context.Background(), validInput(product.ID, 3))
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
}

func TestExecuteMarksCheckoutFailedOnGatewayError(t *testing.T) {
	f := setupCheckout(t)
	ctx := context.Background()

	product := f.seedProduct(t, "1500", 10, true)
	f.gateway.err = pkgerrors.New(pkgerrors.CodeDependency, "gateway down")

	_, err := f.svc.Execute(ctx, validInput(product.ID, 1))
	require.Error(t, err)

	var cos []models.CheckoutOrder
	require.NoError(t, f.db.Find(&cos).Error)
	require.Len(t, cos, 1)
	assert.Equal(t, enums.CheckoutOrderStatusFailed, cos[0].Status)
}

func TestExecuteMergedQuantityChecksStock(t *testing.T) {
	f := setupCheckout(t)

	product := f.seedProduct(t, "1500", 4, true)
	input := Input{
		Items: []ItemInput{
			{ProductID: product.ID, Quantity: 3},
			{ProductID: product.ID, Quantity: 3},
		},
		CustomerName:    "Ana Perez",
		CustomerEmail:   "ana@example.com",
		ShippingAddress: "Av. Siempre Viva 742",
	}

	_, err := f.svc.Execute(context.Background(), input)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
}
