package paymentattempts

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mercadito-dev/mercadito-backend/pkg/db/models"
)

func setupAttemptsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.PaymentAttempt{}))
	return db
}

func TestRecordFirstSeenCreates(t *testing.T) {
	db := setupAttemptsTestDB(t)
	repo := NewRepository(db)

	attempt := &models.PaymentAttempt{
		CheckoutOrderID: uuid.New(),
		PaymentID:       "111222333",
		Status:          "approved",
		Raw:             json.RawMessage(`{"status":"approved"}`),
	}

	stored, created, err := repo.Record(context.Background(), attempt)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, uuid.Nil, stored.ID)
}

func TestRecordDuplicatePaymentIDReturnsExisting(t *testing.T) {
	db := setupAttemptsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	coID := uuid.New()

	first, created, err := repo.Record(ctx, &models.PaymentAttempt{
		CheckoutOrderID: coID,
		PaymentID:       "111222333",
		Status:          "pending",
	})
	require.NoError(t, err)
	require.True(t, created)

	second, created, err := repo.Record(ctx, &models.PaymentAttempt{
		CheckoutOrderID: coID,
		PaymentID:       "111222333",
		Status:          "approved",
	})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	// the ledger keeps the first row untouched
	assert.Equal(t, "pending", second.Status)
}

func TestFindByPaymentIDMissing(t *testing.T) {
	db := setupAttemptsTestDB(t)
	repo := NewRepository(db)

	_, err := repo.FindByPaymentID(context.Background(), "nope")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
