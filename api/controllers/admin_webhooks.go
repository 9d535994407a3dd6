package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mercadito-dev/mercadito-backend/api/responses"
	"github.com/mercadito-dev/mercadito-backend/api/validators"
	"github.com/mercadito-dev/mercadito-backend/internal/reconcile"
	"github.com/mercadito-dev/mercadito-backend/internal/webhookevents"
	"github.com/mercadito-dev/mercadito-backend/pkg/enums"
	pkgerrors "github.com/mercadito-dev/mercadito-backend/pkg/errors"
	"github.com/mercadito-dev/mercadito-backend/pkg/logger"
)

// AdminListWebhookEvents pages through the audit ledger for the admin UI.
func AdminListWebhookEvents(events webhookevents.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 100)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		offset, err := validators.ParseQueryInt(r, "offset", 0, 0, 1_000_000)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		params := webhookevents.ListParams{
			Provider: strings.TrimSpace(r.URL.Query().Get("provider")),
			Limit:    limit,
			Offset:   offset,
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, perr := enums.ParseWebhookEventStatus(raw)
			if perr != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, perr, "invalid status filter"))
				return
			}
			params.Status = status
		}

		rows, total, err := events.List(ctx, params)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"items": rows,
			"total": total,
		})
	}
}

// AdminRetryWebhookEvent replays a failed event through the orchestrator.
func AdminRetryWebhookEvent(svc reconcile.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		id, err := validators.ParsePathUUID(chi.URLParam(r, "id"), "id")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		outcome, err := svc.RetryEvent(ctx, id)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"success": true,
			"status":  outcome.Status,
		})
	}
}
