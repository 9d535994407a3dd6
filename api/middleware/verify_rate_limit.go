package middleware

import (
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/mercadito-dev/mercadito-backend/api/responses"
	"github.com/mercadito-dev/mercadito-backend/pkg/config"
	pkgerrors "github.com/mercadito-dev/mercadito-backend/pkg/errors"
	"github.com/mercadito-dev/mercadito-backend/pkg/logger"
	"github.com/mercadito-dev/mercadito-backend/pkg/redis"
)

// VerifyRateLimit caps per-client calls to the pull-verification endpoint.
// The storefront polls it after checkout, so the limit is per IP and fails
// open when the counter store is down: verification is how customers learn
// their payment landed, blocking it on a redis outage would be worse.
func VerifyRateLimit(cfg config.RateLimitConfig, client *redis.Client, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			scope := fmt.Sprintf("verify:%s", clientIP(r))
			allowed, count, err := client.FixedWindowAllow(ctx, scope, cfg.VerifyLimit, cfg.VerifyWindow)
			if err != nil {
				if logg != nil {
					logg.Warn(ctx, fmt.Sprintf("verify rate limit check failed, allowing request: %v", err))
				}
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				if logg != nil {
					ctx = logg.WithField(ctx, "rate_limit_count", count)
					logg.Warn(ctx, "verify rate limit exceeded")
				}
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many verification attempts"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		parts := strings.Split(fwd, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
