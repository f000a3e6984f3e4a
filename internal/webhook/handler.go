package webhook

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"shopprotect/internal/api"
	"shopprotect/internal/audit"
	"shopprotect/internal/logger"
	"shopprotect/internal/metrics"
	"shopprotect/internal/session"
	"shopprotect/pkg/shopify"
)

// Deliveries are retried by Shopify for up to 48h; ids seen within a day are
// treated as already handled.
const dedupeTTL = 24 * time.Hour

type Handler struct {
	APISecret string
	Cleanup   Cleanup
	Metrics   *metrics.Set
	Logger    *zap.Logger

	seen *gocache.Cache
}

func NewHandler(apiSecret string, sessions session.Storage, rec audit.Recorder, m *metrics.Set, log *zap.Logger) *Handler {
	return &Handler{
		APISecret: apiSecret,
		Cleanup:   StoreCleanup{Sessions: sessions, Audit: rec, Logger: log},
		Metrics:   m,
		Logger:    log,
		seen:      gocache.New(dedupeTTL, time.Hour),
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	topic := NormalizeTopic(r.Header.Get("X-Shopify-Topic"))
	shopDomain := strings.TrimSpace(r.Header.Get("X-Shopify-Shop-Domain"))
	hmacHeader := strings.TrimSpace(r.Header.Get("X-Shopify-Hmac-Sha256"))
	eventID := strings.TrimSpace(r.Header.Get("X-Shopify-Webhook-Id"))

	body, err := io.ReadAll(r.Body)
	if err != nil {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid body")
		return
	}

	if !shopify.VerifyWebhookHMAC(body, hmacHeader, h.APISecret) {
		api.WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid webhook signature")
		return
	}

	log := logger.From(r.Context(), h.Logger).With(zap.String("shop", shopDomain), zap.String("topic", topic))

	if eventID == "" {
		eventID = sha256Hex(body)
	}
	// Add fails when the key is already present.
	if err := h.seen.Add(eventID, struct{}{}, gocache.DefaultExpiration); err != nil {
		log.Debug("webhook already processed", zap.String("event_id", eventID))
		h.Metrics.ObserveWebhook(topic, "duplicate")
		w.WriteHeader(http.StatusOK)
		return
	}

	outcome := "ignored"
	switch topic {
	case "app_uninstalled":
		outcome = "handled"
		if err := h.uninstall(logger.ToContext(r.Context(), log), shopDomain); err != nil {
			outcome = "failed"
			// Let Shopify retry this delivery.
			h.seen.Delete(eventID)
			log.Error("uninstall cleanup failed", zap.Error(err))
		} else {
			log.Info("shop uninstalled")
		}
	}
	h.Metrics.ObserveWebhook(topic, outcome)

	if outcome == "failed" {
		api.WriteError(w, http.StatusInternalServerError, "INTERNAL", "webhook processing failed")
		return
	}
	// Shopify expects a 200 quickly.
	w.WriteHeader(http.StatusOK)
}

// uninstall drops every session of the shop. The webhook can arrive after the
// sessions are already gone, which is fine.
func (h *Handler) uninstall(ctx context.Context, shopDomain string) error {
	if shopDomain == "" {
		return nil
	}
	return h.Cleanup.Uninstall(ctx, shopDomain)
}

func sha256Hex(b []byte) string {
	h := sha256.Sum256(b)
	return hex.EncodeToString(h[:])
}
