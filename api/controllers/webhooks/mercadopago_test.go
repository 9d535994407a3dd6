package webhooks

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mercadito-dev/mercadito-backend/internal/reconcile"
	"github.com/mercadito-dev/mercadito-backend/internal/webhookevents"
	"github.com/mercadito-dev/mercadito-backend/pkg/config"
	"github.com/mercadito-dev/mercadito-backend/pkg/db/models"
	"github.com/mercadito-dev/mercadito-backend/pkg/enums"
	"github.com/mercadito-dev/mercadito-backend/pkg/logger"
	"github.com/mercadito-dev/mercadito-backend/pkg/mercadopago"
	"github.com/mercadito-dev/mercadito-backend/pkg/metrics"
)

const testSecret = "super-secret-webhook-key"

type stubReconciler struct {
	processed []*models.WebhookEvent
	outcome   *reconcile.Outcome
	err       error
}

func (s *stubReconciler) Reconcile(ctx context.Context, view *mercadopago.PaymentView) (*reconcile.Outcome, error) {
	return s.outcome, s.err
}

func (s *stubReconciler) ProcessWebhook(ctx context.Context, event *models.WebhookEvent) (*reconcile.Outcome, error) {
	s.processed = append(s.processed, event)
	if s.err != nil {
		return nil, s.err
	}
	if s.outcome != nil {
		return s.outcome, nil
	}
	return &reconcile.Outcome{Status: string(enums.CheckoutOrderStatusApproved)}, nil
}

func (s *stubReconciler) VerifyPull(ctx context.Context, input reconcile.VerifyInput) (*reconcile.VerifyResult, error) {
	return nil, nil
}

func (s *stubReconciler) RetryEvent(ctx context.Context, eventID uuid.UUID) (*reconcile.Outcome, error) {
	return nil, nil
}

type webhookFixture struct {
	handler http.HandlerFunc
	events  webhookevents.Service
	svc     *stubReconciler
	db      *gorm.DB
}

func setupWebhook(t *testing.T) *webhookFixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.WebhookEvent{}))

	logg := logger.New(logger.Options{
		ServiceName: "webhook-test",
		Level:       zerolog.Disabled,
		Output:      io.Discard,
	})

	events, err := webhookevents.NewService(webhookevents.ServiceParams{
		Repo:   webhookevents.NewRepository(db),
		Logger: logg,
	})
	require.NoError(t, err)

	svc := &stubReconciler{}
	handler := MercadoPago(svc, events, config.MercadoPagoConfig{
		WebhookSecret: testSecret,
	}, metrics.NewWebhookMetrics(nil), logg)

	return &webhookFixture{handler: handler, events: events, svc: svc, db: db}
}

func signedHeaders(resourceID, requestID string) http.Header {
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	digest := mercadopago.SignManifest(resourceID, requestID, ts, testSecret)

	headers := http.Header{}
	headers.Set("Content-Type", "application/json")
	headers.Set("x-request-id", requestID)
	headers.Set("x-signature", fmt.Sprintf("ts=%s,v1=%s", ts, digest))
	return headers
}

func deliver(fx *webhookFixture, method, target, body string, headers http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	for key, values := range headers {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	rec := httptest.NewRecorder()
	fx.handler(rec, req)
	return rec
}

func storedEvent(t *testing.T, db *gorm.DB, eventID string) *models.WebhookEvent {
	t.Helper()
	var event models.WebhookEvent
	require.NoError(t, db.Where("provider = ? AND event_id = ?", mercadopago.Provider, eventID).First(&event).Error)
	return &event
}

func TestWebhookProcessesSignedPaymentNotification(t *testing.T) {
	fx := setupWebhook(t)

	body := `{"id": 9001, "type": "payment", "action": "payment.updated", "data": {"id": "111222333"}}`
	rec := deliver(fx, http.MethodPost, "/webhooks/mercadopago", body, signedHeaders("111222333", "req-1"))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"received":true}`, rec.Body.String())

	require.Len(t, fx.svc.processed, 1)
	assert.Equal(t, "111222333", fx.svc.processed[0].ResourceID)
	assert.Equal(t, "9001", fx.svc.processed[0].EventID)

	event := storedEvent(t, fx.db, "9001")
	assert.Equal(t, "payment", event.Topic)
	assert.Equal(t, "payment.updated", event.Action)
}

func TestWebhookDuplicateDeliveryShortCircuits(t *testing.T) {
	fx := setupWebhook(t)

	body := `{"id": 9002, "type": "payment", "data": {"id": "111222333"}}`
	headers := signedHeaders("111222333", "req-2")

	first := deliver(fx, http.MethodPost, "/webhooks/mercadopago", body, headers)
	second := deliver(fx, http.MethodPost, "/webhooks/mercadopago", body, headers)

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusOK, second.Code)
	assert.Len(t, fx.svc.processed, 1, "redelivery must not reach the orchestrator")

	var count int64
	require.NoError(t, fx.db.Model(&models.WebhookEvent{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestWebhookInvalidSignatureStoredAndFailed(t *testing.T) {
	fx := setupWebhook(t)

	headers := signedHeaders("111222333", "req-3")
	headers.Set("x-signature", "ts=123,v1=deadbeef")

	body := `{"id": 9003, "type": "payment", "data": {"id": "111222333"}}`
	rec := deliver(fx, http.MethodPost, "/webhooks/mercadopago", body, headers)

	assert.Equal(t, http.StatusOK, rec.Code, "gateway always gets 200")
	assert.Empty(t, fx.svc.processed)

	event := storedEvent(t, fx.db, "9003")
	assert.Equal(t, enums.WebhookEventStatusFailed, event.Status)
	require.NotNil(t, event.LastError)
	assert.Contains(t, *event.LastError, "invalid signature")
}

func TestWebhookNonPaymentTopicIsNoOp(t *testing.T) {
	fx := setupWebhook(t)

	body := `{"id": 9004, "type": "merchant_order", "data": {"id": "555"}}`
	rec := deliver(fx, http.MethodPost, "/webhooks/mercadopago", body, signedHeaders("555", "req-4"))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, fx.svc.processed)

	event := storedEvent(t, fx.db, "9004")
	assert.Equal(t, enums.WebhookEventStatusProcessed, event.Status)
}

func TestWebhookFormEncodedNotification(t *testing.T) {
	fx := setupWebhook(t)

	headers := signedHeaders("444555666", "req-5")
	headers.Set("Content-Type", "application/x-www-form-urlencoded")

	body := `id=9005&type=payment&data=` + `{"id":"444555666"}`
	rec := deliver(fx, http.MethodPost, "/webhooks/mercadopago", body, headers)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, fx.svc.processed, 1)
	assert.Equal(t, "444555666", fx.svc.processed[0].ResourceID)
}

func TestWebhookQueryParamNotification(t *testing.T) {
	fx := setupWebhook(t)

	target := "/webhooks/mercadopago?id=9006&type=payment&data.id=777888999"
	rec := deliver(fx, http.MethodPost, target, "", signedHeaders("777888999", "req-6"))

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, fx.svc.processed, 1)
	assert.Equal(t, "777888999", fx.svc.processed[0].ResourceID)
	assert.Equal(t, "9006", fx.svc.processed[0].EventID)
}

func TestWebhookWithoutIdentityIsIgnored(t *testing.T) {
	fx := setupWebhook(t)

	rec := deliver(fx, http.MethodPost, "/webhooks/mercadopago", `{}`, http.Header{})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, fx.svc.processed)

	var count int64
	require.NoError(t, fx.db.Model(&models.WebhookEvent{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestWebhookReconcileFailureStillAcks(t *testing.T) {
	fx := setupWebhook(t)
	fx.svc.err = fmt.Errorf("gateway unreachable")

	body := `{"id": 9007, "type": "payment", "data": {"id": "111222333"}}`
	rec := deliver(fx, http.MethodPost, "/webhooks/mercadopago", body, signedHeaders("111222333", "req-7"))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"received":true}`, rec.Body.String())
	assert.Len(t, fx.svc.processed, 1)
}
