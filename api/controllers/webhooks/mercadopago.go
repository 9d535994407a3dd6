package webhooks

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mercadito-dev/mercadito-backend/internal/reconcile"
	"github.com/mercadito-dev/mercadito-backend/internal/webhookevents"
	"github.com/mercadito-dev/mercadito-backend/pkg/config"
	"github.com/mercadito-dev/mercadito-backend/pkg/logger"
	"github.com/mercadito-dev/mercadito-backend/pkg/mercadopago"
	"github.com/mercadito-dev/mercadito-backend/pkg/metrics"
)

const (
	maxBodyBytes = 64 << 10

	signatureHeader = "x-signature"
	requestIDHeader = "x-request-id"

	topicPayment = "payment"
)

// notification is the normalized shape of an inbound push, regardless of
// whether it arrived as JSON or form-urlencoded.
type notification struct {
	EventID    string
	Topic      string
	Action     string
	ResourceID string
}

type jsonPayload struct {
	ID     json.Number `json:"id"`
	Type   string      `json:"type"`
	Topic  string      `json:"topic"`
	Action string      `json:"action"`
	Data   struct {
		ID json.Number `json:"id"`
	} `json:"data"`
}

// MercadoPago receives gateway push notifications. The response is always
// HTTP 200 with {received:true}: anything else triggers the gateway's retry
// storm. Internal failures land in the event ledger instead.
func MercadoPago(
	svc reconcile.Service,
	events webhookevents.Service,
	cfg config.MercadoPagoConfig,
	m *metrics.WebhookMetrics,
	logg *logger.Logger,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		defer acknowledge(w)

		body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
		if err != nil {
			logg.Warn(ctx, fmt.Sprintf("webhook body read failed: %v", err))
			return
		}

		note := parseNotification(r, body)
		if note.EventID == "" {
			logg.Warn(ctx, "webhook without any event identity, ignoring")
			return
		}
		ctx = logg.WithEventID(ctx, note.EventID)
		m.IncReceived(mercadopago.Provider)

		event, duplicate, err := events.Record(ctx, webhookevents.RecordInput{
			Provider:   mercadopago.Provider,
			EventID:    note.EventID,
			Topic:      note.Topic,
			Action:     note.Action,
			ResourceID: note.ResourceID,
			RawPayload: body,
		})
		if err != nil {
			logg.Error(ctx, "webhook event could not be ledgered", err)
			return
		}
		if duplicate {
			m.IncDuplicate(mercadopago.Provider)
			return
		}

		signature := r.Header.Get(signatureHeader)
		requestID := r.Header.Get(requestIDHeader)
		if !mercadopago.VerifySignature(signature, requestID, strings.ToLower(note.ResourceID), cfg.WebhookSecret, mercadopago.SignatureOptions{}) {
			logg.Warn(ctx, "webhook signature rejected, stored for audit only")
			if ferr := events.MarkFailed(ctx, event.ID, fmt.Errorf("invalid signature")); ferr != nil {
				logg.Error(ctx, "marking unsigned event failed", ferr)
			}
			return
		}

		if note.Topic != topicPayment {
			logg.Info(ctx, fmt.Sprintf("topic %q is not reconciled, acknowledging", note.Topic))
			if perr := events.MarkProcessed(ctx, event.ID); perr != nil {
				logg.Error(ctx, "marking non-payment event processed", perr)
			}
			return
		}

		start := time.Now()
		outcome, err := svc.ProcessWebhook(ctx, event)
		m.ObserveDuration("push", time.Since(start))
		if err != nil {
			// persisted on the event by the orchestrator, gateway still gets 200
			logg.Error(ctx, "webhook reconciliation failed", err)
			return
		}
		m.IncOutcome(outcome.Status)
	}
}

func acknowledge(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"received":true}`))
}

// parseNotification extracts the event identity from the three delivery
// shapes the gateway uses: a JSON body, a form-urlencoded body with a JSON
// `data` field, and query parameters (`data.id`, `type`, `id`).
func parseNotification(r *http.Request, body []byte) notification {
	note := notification{}

	contentType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch contentType {
	case "application/x-www-form-urlencoded":
		if values, err := url.ParseQuery(string(body)); err == nil {
			note = fromValues(values)
		}
	default:
		var payload jsonPayload
		if err := json.Unmarshal(body, &payload); err == nil {
			note = notification{
				EventID:    payload.ID.String(),
				Topic:      firstNonEmpty(payload.Type, payload.Topic),
				Action:     payload.Action,
				ResourceID: payload.Data.ID.String(),
			}
		}
	}

	query := r.URL.Query()
	note.EventID = firstNonEmpty(note.EventID, query.Get("id"))
	note.Topic = firstNonEmpty(note.Topic, query.Get("type"), query.Get("topic"))
	note.ResourceID = firstNonEmpty(note.ResourceID, query.Get("data.id"))

	// last resort: dedup on the request id the gateway attached
	note.EventID = firstNonEmpty(note.EventID, r.Header.Get(requestIDHeader))
	return note
}

func fromValues(values url.Values) notification {
	note := notification{
		EventID: values.Get("id"),
		Topic:   firstNonEmpty(values.Get("type"), values.Get("topic")),
		Action:  values.Get("action"),
	}
	if data := values.Get("data"); data != "" {
		var parsed struct {
			ID json.Number `json:"id"`
		}
		if err := json.Unmarshal([]byte(data), &parsed); err == nil {
			note.ResourceID = parsed.ID.String()
		}
	}
	note.ResourceID = firstNonEmpty(note.ResourceID, values.Get("data.id"))
	return note
}

func firstNonEmpty(candidates ...string) string {
	for _, c := range candidates {
		if c != "" {
			return c
		}
	}
	return ""
}
