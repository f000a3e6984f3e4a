package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"shopprotect/internal/logger"
	"shopprotect/pkg/shopify"
)

// DocumentHeaders lets the admin frame embedded documents for the shop named in
// ?shop=. Without a valid shop only the admin itself may frame the page.
func DocumentHeaders(customDomains []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ancestors := []string{"https://admin.shopify.com"}
			if shop := shopify.SanitizeShopDomain(r.URL.Query().Get("shop"), customDomains); shop != "" {
				ancestors = append([]string{"https://" + shop}, ancestors...)
			}
			w.Header().Set("Content-Security-Policy", "frame-ancestors "+strings.Join(ancestors, " ")+";")
			next.ServeHTTP(w, r)
		})
	}
}

// RequestLogger attaches a request-scoped logger (with request id) to the
// context and logs one line per request.
func RequestLogger(base *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := r.Header.Get("X-Request-Id")
			if reqID == "" {
				reqID = uuid.NewString()
			}
			w.Header().Set("X-Request-Id", reqID)

			log := base.With(zap.String("request_id", reqID))
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r.WithContext(logger.ToContext(r.Context(), log)))

			log.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("took", time.Since(start)),
			)
		})
	}
}
