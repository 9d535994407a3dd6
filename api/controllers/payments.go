package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/mercadito-dev/mercadito-backend/api/responses"
	"github.com/mercadito-dev/mercadito-backend/internal/reconcile"
	"github.com/mercadito-dev/mercadito-backend/pkg/logger"
	"github.com/mercadito-dev/mercadito-backend/pkg/metrics"
)

// VerifyPayment is the customer-facing pull endpoint the storefront polls
// after the gateway redirects the browser back.
func VerifyPayment(svc reconcile.Service, m *metrics.WebhookMetrics, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		query := r.URL.Query()

		input := reconcile.VerifyInput{
			PaymentID:       strings.TrimSpace(query.Get("payment_id")),
			PreferenceID:    strings.TrimSpace(query.Get("preference_id")),
			MerchantOrderID: strings.TrimSpace(query.Get("merchant_order_id")),
		}

		start := time.Now()
		result, err := svc.VerifyPull(ctx, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		m.ObserveDuration("pull", time.Since(start))
		m.IncOutcome(result.Status)

		responses.WriteSuccess(w, result)
	}
}
