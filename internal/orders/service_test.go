package orders

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mercadito-dev/mercadito-backend/internal/drafts"
	"github.com/mercadito-dev/mercadito-backend/internal/notifications"
	"github.com/mercadito-dev/mercadito-backend/pkg/db/models"
	"github.com/mercadito-dev/mercadito-backend/pkg/enums"
	"github.com/mercadito-dev/mercadito-backend/pkg/logger"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

type fixture struct {
	db       *gorm.DB
	svc      Materializer
	drafts   drafts.Repository
	products ProductRepository
	orders   Repository
	notifs   notifications.Repository
}

func setupMaterializer(t *testing.T) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Product{},
		&models.OrderDraft{},
		&models.OrderDraftItem{},
		&models.Order{},
		&models.OrderItem{},
		&models.Notification{},
	))

	logg := logger.New(logger.Options{
		ServiceName: "orders-test",
		Level:       zerolog.Disabled,
		Output:      io.Discard,
	})

	notifRepo := notifications.NewRepository(db)
	notifSvc, err := notifications.NewService(notifRepo, logg)
	require.NoError(t, err)

	f := &fixture{
		db:       db,
		drafts:   drafts.NewRepository(db),
		products: NewProductRepository(db),
		orders:   NewRepository(db),
		notifs:   notifRepo,
	}

	svc, err := NewService(ServiceParams{
		Repo:          f.orders,
		Products:      f.products,
		Drafts:        f.drafts,
		Notifications: notifSvc,
		Tx:            gormTxRunner{db: db},
		Logger:        logg,
		NumberPrefix:  "MCD",
	})
	require.NoError(t, err)
	f.svc = svc
	return f
}

func (f *fixture) seedProduct(t *testing.T, stock int) *models.Product {
	t.Helper()
	product := &models.Product{
		Name:   "Yerba 1kg",
		Price:  decimal.RequireFromString("100"),
		Stock:  stock,
		Active: true,
	}
	require.NoError(t, f.db.Create(product).Error)
	return product
}

func (f *fixture) seedDraft(t *testing.T, lines []models.OrderDraftItem) *models.OrderDraft {
	t.Helper()

	total := decimal.Zero
	for i := range lines {
		lines[i].TotalPrice = lines[i].UnitPrice.Mul(decimal.NewFromInt(int64(lines[i].Quantity)))
		total = total.Add(lines[i].TotalPrice)
	}

	draft := &models.OrderDraft{
		Status:          enums.DraftStatusPending,
		Subtotal:        total,
		ShippingCost:    decimal.Zero,
		Tax:             decimal.Zero,
		TotalAmount:     total,
		Currency:        enums.CurrencyARS,
		CustomerName:    "Ana Perez",
		CustomerEmail:   "ana@example.com",
		ShippingAddress: "Av. Siempre Viva 742",
		ExpiresAt:       time.Now().Add(24 * time.Hour),
		Items:           lines,
	}
	require.NoError(t, f.db.Create(draft).Error)

	loaded, err := f.drafts.FindByID(context.Background(), draft.ID)
	require.NoError(t, err)
	return loaded
}

func TestCreateFromDraftHappyPath(t *testing.T) {
	f := setupMaterializer(t)
	ctx := context.Background()

	product := f.seedProduct(t, 10)
	draft := f.seedDraft(t, []models.OrderDraftItem{{
		ProductID:   product.ID,
		ProductName: product.Name,
		Quantity:    2,
		UnitPrice:   decimal.RequireFromString("100"),
	}})

	result, err := f.svc.CreateFromDraft(ctx, draft, "pay-1", nil)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Regexp(t, regexp.MustCompile(`^MCD-\d{8}-\d{4}$`), result.OrderNumber)

	order, err := f.orders.FindByID(ctx, result.OrderID)
	require.NoError(t, err)
	assert.True(t, order.TotalAmount.Equal(decimal.RequireFromString("200")))
	require.Len(t, order.Items, 1)
	assert.Equal(t, 2, order.Items[0].Quantity)
	assert.Equal(t, enums.OrderStatusProcessing, order.Status)
	assert.Equal(t, enums.OrderPaymentStatusPaid, order.PaymentStatus)

	var stored models.Product
	require.NoError(t, f.db.First(&stored, "id = ?", product.ID).Error)
	assert.Equal(t, 8, stored.Stock)

	refreshed, err := f.drafts.FindByID(ctx, draft.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.DraftStatusConverted, refreshed.Status)
	require.NotNil(t, refreshed.ConvertedOrderID)
	assert.Equal(t, result.OrderID, *refreshed.ConvertedOrderID)

	notifs, err := f.notifs.FindByOrderID(ctx, result.OrderID)
	require.NoError(t, err)
	assert.Len(t, notifs, 1)
}

func TestCreateFromDraftStockShortfall(t *testing.T) {
	f := setupMaterializer(t)
	ctx := context.Background()

	product := f.seedProduct(t, 3)
	draft := f.seedDraft(t, []models.OrderDraftItem{{
		ProductID:   product.ID,
		ProductName: product.Name,
		Quantity:    5,
		UnitPrice:   decimal.RequireFromString("100"),
	}})

	result, err := f.svc.CreateFromDraft(ctx, draft, "pay-2", nil)
	require.NoError(t, err)
	assert.Nil(t, result)

	var stored models.Product
	require.NoError(t, f.db.First(&stored, "id = ?", product.ID).Error)
	assert.Equal(t, 3, stored.Stock)

	refreshed, err := f.drafts.FindByID(ctx, draft.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.DraftStatusPending, refreshed.Status)
}

func TestCreateFromDraftMergesDuplicateLines(t *testing.T) {
	f := setupMaterializer(t)
	ctx := context.Background()

	product := f.seedProduct(t, 5)
	draft := f.seedDraft(t, []models.OrderDraftItem{
		{ProductID: product.ID, ProductName: product.Name, Quantity: 2, UnitPrice: decimal.RequireFromString("100")},
		{ProductID: product.ID, ProductName: product.Name, Quantity: 3, UnitPrice: decimal.RequireFromString("100")},
	})

	result, err := f.svc.CreateFromDraft(ctx, draft, "pay-3", nil)
	require.NoError(t, err)
	require.NotNil(t, result)

	order, err := f.orders.FindByID(ctx, result.OrderID)
	require.NoError(t, err)
	// one item per draft line, stock decremented once with the merged total
	assert.Len(t, order.Items, 2)

	var stored models.Product
	require.NoError(t, f.db.First(&stored, "id = ?", product.ID).Error)
	assert.Equal(t, 0, stored.Stock)
}

func TestCreateFromDraftMergedShortfall(t *testing.T) {
	f := setupMaterializer(t)
	ctx := context.Background()

	// each line fits individually, the merged total does not
	product := f.seedProduct(t, 4)
	draft := f.seedDraft(t, []models.OrderDraftItem{
		{ProductID: product.ID, ProductName: product.Name, Quantity: 3, UnitPrice: decimal.RequireFromString("100")},
		{ProductID: product.ID, ProductName: product.Name, Quantity: 3, UnitPrice: decimal.RequireFromString("100")},
	})

	result, err := f.svc.CreateFromDraft(ctx, draft, "pay-4", nil)
	require.NoError(t, err)
	assert.Nil(t, result)

	var stored models.Product
	require.NoError(t, f.db.First(&stored, "id = ?", product.ID).Error)
	assert.Equal(t, 4, stored.Stock)
}

func TestCreateFromDraftSkipsConvertedDraft(t *testing.T) {
	f := setupMaterializer(t)
	ctx := context.Background()

	product := f.seedProduct(t, 10)
	draft := f.seedDraft(t, []models.OrderDraftItem{{
		ProductID:   product.ID,
		ProductName: product.Name,
		Quantity:    1,
		UnitPrice:   decimal.RequireFromString("100"),
	}})

	first, err := f.svc.CreateFromDraft(ctx, draft, "pay-5", nil)
	require.NoError(t, err)
	require.NotNil(t, first)

	reloaded, err := f.drafts.FindByID(ctx, draft.ID)
	require.NoError(t, err)

	second, err := f.svc.CreateFromDraft(ctx, reloaded, "pay-5", nil)
	require.NoError(t, err)
	assert.Nil(t, second)

	var stored models.Product
	require.NoError(t, f.db.First(&stored, "id = ?", product.ID).Error)
	assert.Equal(t, 9, stored.Stock)
}

func TestFormatOrderNumber(t *testing.T) {
	day := time.Date(2026, 3, 9, 15, 0, 0, 0, time.UTC)
	assert.Equal(t, "MCD-20260309-0042", FormatOrderNumber("MCD", day, 42))
}
