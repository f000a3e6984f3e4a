package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"shopprotect/internal/logger"
	"shopprotect/internal/session"
	"shopprotect/pkg/config"
	"shopprotect/pkg/shopify"
)

// ReauthorizeHeader tells App Bridge to restart OAuth for the shop.
const ReauthorizeHeader = "X-Shopify-API-Request-Failure-Reauthorize"

// SessionAuth validates embedded app session tokens.
//
// Expected header:
// - Authorization: Bearer <JWT>
//
// The token names the shop; the shop's offline session is loaded from storage and
// attached to the request context. A missing or inactive session answers 401 with
// the reauthorize header so the frontend restarts install.
func SessionAuth(cfg config.Config, sessions session.Storage, now func() time.Time) func(http.Handler) http.Handler {
	if now == nil {
		now = time.Now
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authz := strings.TrimSpace(r.Header.Get("Authorization"))
			if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
				WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing session token")
				return
			}

			vs, err := shopify.VerifySessionToken(strings.TrimSpace(authz[7:]), cfg.Shopify.APIKey, cfg.Shopify.APISecret, now())
			if err != nil {
				WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid session token")
				return
			}

			log := logger.From(r.Context(), nil).With(zap.String("shop", vs.ShopDomain))
			s, err := sessions.LoadSession(r.Context(), session.OfflineID(vs.ShopDomain))
			if err != nil && !errors.Is(err, session.ErrNotFound) {
				log.Error("load session failed", zap.Error(err))
				WriteError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
				return
			}
			if err != nil || !s.IsActive(cfg.Shopify.Scopes, now()) {
				w.Header().Set(ReauthorizeHeader, "1")
				WriteError(w, http.StatusUnauthorized, "REAUTHORIZE", "app needs to be installed")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), &s)))
		})
	}
}
