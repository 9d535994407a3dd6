package mercadopago

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mercadito-dev/mercadito-backend/pkg/config"
	pkgerrors "github.com/mercadito-dev/mercadito-backend/pkg/errors"
)

func testClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(config.MercadoPagoConfig{
		AccessToken: "TEST-token",
		BaseURL:     srv.URL,
		Timeout:     2 * time.Second,
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client, srv
}

func TestGetPaymentDecodesView(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/payments/123456789" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer TEST-token" {
			t.Fatalf("unexpected auth header %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": 123456789,
			"status": "approved",
			"status_detail": "accredited",
			"transaction_amount": 1250.50,
			"currency_id": "ARS",
			"external_reference": "co-abc",
			"payer": {"email": "buyer@example.com"}
		}`))
	}))

	view, err := client.GetPayment(context.Background(), "123456789")
	if err != nil {
		t.Fatalf("get payment: %v", err)
	}
	if view.PaymentID() != "123456789" {
		t.Fatalf("unexpected payment id %q", view.PaymentID())
	}
	if view.Status != "approved" || view.StatusDetail != "accredited" {
		t.Fatalf("unexpected status %q / %q", view.Status, view.StatusDetail)
	}
	if !view.TransactionAmount.Equal(decimal.RequireFromString("1250.50")) {
		t.Fatalf("unexpected amount %s", view.TransactionAmount)
	}
	if view.ExternalReference != "co-abc" {
		t.Fatalf("unexpected external reference %q", view.ExternalReference)
	}
	if view.Payer.Email != "buyer@example.com" {
		t.Fatalf("unexpected payer email %q", view.Payer.Email)
	}
	if len(view.Raw) == 0 {
		t.Fatalf("raw payload must be retained")
	}
}

func TestGetPaymentNotFound(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"not found"}`, http.StatusNotFound)
	}))

	_, err := client.GetPayment(context.Background(), "999")
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not-found error, got %v", err)
	}
	if typed.Retryable() {
		t.Fatalf("not-found must not be retryable")
	}
}

func TestGetPaymentServerErrorIsRetryable(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	_, err := client.GetPayment(context.Background(), "123")
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
	if !typed.Retryable() {
		t.Fatalf("5xx must be retryable")
	}
}

func TestGetPaymentRejectsEmptyID(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("no request expected")
	}))

	_, err := client.GetPayment(context.Background(), "  ")
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestGetMerchantOrderDecodesPayments(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/merchant_orders/778899" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": 778899,
			"preference_id": "pref-1",
			"external_reference": "co-abc",
			"payments": [
				{"id": 555020, "status": "rejected"},
				{"id": 555021, "status": "approved"}
			]
		}`))
	}))

	order, err := client.GetMerchantOrder(context.Background(), "778899")
	if err != nil {
		t.Fatalf("get merchant order: %v", err)
	}
	if order.PreferenceID != "pref-1" || order.ExternalReference != "co-abc" {
		t.Fatalf("unexpected merchant order %+v", order)
	}
	if len(order.Payments) != 2 || order.Payments[1].ID.String() != "555021" {
		t.Fatalf("unexpected payments %+v", order.Payments)
	}
}

func TestGetMerchantOrderRejectsEmptyID(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("no request expected")
	}))

	_, err := client.GetMerchantOrder(context.Background(), "")
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreatePreference(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/checkout/preferences" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"pref-1","init_point":"https://mp.example/init/pref-1"}`))
	}))

	pref, err := client.CreatePreference(context.Background(), PreferenceRequest{
		ExternalReference: "co-abc",
		Items: []PreferenceItem{{
			Title:      "Yerba 1kg",
			Quantity:   2,
			UnitPrice:  decimal.RequireFromString("1500"),
			CurrencyID: "ARS",
		}},
	})
	if err != nil {
		t.Fatalf("create preference: %v", err)
	}
	if pref.ID != "pref-1" || pref.InitPoint == "" {
		t.Fatalf("unexpected preference %+v", pref)
	}
}

func TestCreatePreferenceValidatesInput(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("no request expected")
	}))

	if _, err := client.CreatePreference(context.Background(), PreferenceRequest{}); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestNewClientRequiresToken(t *testing.T) {
	if _, err := NewClient(config.MercadoPagoConfig{}); err == nil {
		t.Fatalf("expected missing token to fail")
	}
}
