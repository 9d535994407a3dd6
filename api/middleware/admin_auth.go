package middleware

import (
	"net/http"
	"strings"

	"github.com/mercadito-dev/mercadito-backend/api/responses"
	"github.com/mercadito-dev/mercadito-backend/pkg/auth"
	"github.com/mercadito-dev/mercadito-backend/pkg/config"
	pkgerrors "github.com/mercadito-dev/mercadito-backend/pkg/errors"
	"github.com/mercadito-dev/mercadito-backend/pkg/logger"
)

// AdminAuth guards the administrative surface with a bearer JWT carrying the
// admin role.
func AdminAuth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			header := r.Header.Get("Authorization")
			token, found := strings.CutPrefix(header, "Bearer ")
			if !found || strings.TrimSpace(token) == "" {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing bearer token"))
				return
			}

			claims, err := auth.ParseAccessToken(cfg, strings.TrimSpace(token))
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}
			if claims.Role != auth.RoleAdmin {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required"))
				return
			}

			if logg != nil {
				ctx = logg.WithField(ctx, "admin_subject", claims.Subject)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
