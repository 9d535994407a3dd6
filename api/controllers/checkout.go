package controllers

import (
	"net/http"

	"github.com/mercadito-dev/mercadito-backend/api/responses"
	"github.com/mercadito-dev/mercadito-backend/api/validators"
	"github.com/mercadito-dev/mercadito-backend/internal/checkout"
	"github.com/mercadito-dev/mercadito-backend/pkg/logger"
)

// Checkout opens a draft and returns the gateway redirect for payment.
func Checkout(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var input checkout.Input
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.Execute(ctx, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}
