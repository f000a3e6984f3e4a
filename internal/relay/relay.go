// Package relay forwards a freshly installed shop's profile to the protection
// service. It runs once per completed OAuth install and is best-effort: every
// failure is logged and swallowed so the install itself always completes.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"shopprotect/internal/metrics"
	"shopprotect/internal/upsert"
	"shopprotect/pkg/config"
	"shopprotect/pkg/shopify"
)

const upsertTimeout = 15 * time.Second

type ShopFetcher interface {
	FetchShop(ctx context.Context, domain, accessToken string) (map[string]any, error)
}

type Upserter interface {
	Upsert(ctx context.Context, payload any) error
}

// Settings are the protection defaults attached to every forwarded shop.
type Settings struct {
	ProtectionPercentage  decimal.Decimal
	MinimumProtectionCost decimal.Decimal
}

func DefaultSettings() Settings {
	return Settings{
		ProtectionPercentage:  decimal.NewFromInt(5),
		MinimumProtectionCost: decimal.NewFromInt(3),
	}
}

type Relay struct {
	Shops    ShopFetcher
	Upsert   Upserter
	Settings Settings
	Logger   *zap.Logger
	Metrics  *metrics.Set
}

// New wires a relay against the Admin API and the configured upsert endpoint.
func New(cfg config.Config, log *zap.Logger, m *metrics.Set) *Relay {
	return &Relay{
		Shops:  AdminAPI{APIVersion: cfg.Shopify.APIVersion},
		Upsert: upsert.NewClient(cfg.Relay.UpsertURL, upsertTimeout),
		Settings: Settings{
			ProtectionPercentage:  cfg.Relay.ProtectionPercentage,
			MinimumProtectionCost: cfg.Relay.MinimumProtectionCost,
		},
		Logger:  log,
		Metrics: m,
	}
}

// Run fetches the shop and posts the decorated copy. It never returns an error
// and never panics.
func (r *Relay) Run(ctx context.Context, domain, accessToken string) {
	log := r.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("shop", domain), zap.String("access_token", Redact(accessToken)))

	start := time.Now()
	result := metrics.ResultPanic
	defer func() {
		if p := recover(); p != nil {
			log.Error("relay panicked", zap.Any("panic", p))
		}
		r.Metrics.ObserveRelay(result, time.Since(start))
	}()

	shop, err := r.Shops.FetchShop(ctx, domain, accessToken)
	switch {
	case errors.Is(err, shopify.ErrShopMissing):
		result = metrics.ResultMissingShop
		log.Error("Failed to retrieve shop data")
		return
	case err != nil:
		result = metrics.ResultFetchFailed
		log.Error("Error fetching shop data", zap.Error(err))
		return
	}
	log.Debug("shop data fetched", zap.Int("fields", len(shop)))

	payload := Decorate(shop, accessToken, r.Settings)
	if err := r.Upsert.Upsert(ctx, payload); err != nil {
		result = metrics.ResultUpsertFailed
		log.Error("There was an error sending the request", zap.Error(err))
		return
	}

	result = metrics.ResultSent
	log.Info("Shop data sent successfully", zap.Duration("took", time.Since(start)))
}

// Decorate returns a copy of shop with the access token, the installation flag
// and the protection settings set. shop is not modified.
func Decorate(shop map[string]any, accessToken string, s Settings) map[string]any {
	out := make(map[string]any, len(shop)+4)
	for k, v := range shop {
		out[k] = v
	}
	out["access_token"] = accessToken
	out["installation_status"] = true
	out["protection_percentage"] = json.Number(s.ProtectionPercentage.String())
	out["minimum_protection_cost"] = json.Number(s.MinimumProtectionCost.String())
	return out
}

// Redact keeps enough of a token to correlate log lines: "shpat_...9f3a". The
// tail is shown only when more than 8 characters follow the prefix.
func Redact(token string) string {
	prefix := ""
	if len(token) > 6 && token[5] == '_' {
		prefix = token[:6]
	}
	rest := token[len(prefix):]
	if len(rest) <= 8 {
		return "***"
	}
	return fmt.Sprintf("%s...%s", prefix, rest[len(rest)-4:])
}

// AdminAPI fetches shops from the Shopify Admin REST API.
type AdminAPI struct {
	HTTPClient *http.Client
	APIVersion string
	// BaseURL overrides https://{shop}; see shopify.Client.
	BaseURL string
}

func (a AdminAPI) FetchShop(ctx context.Context, domain, accessToken string) (map[string]any, error) {
	c := shopify.Client{
		HTTPClient:  a.HTTPClient,
		ShopDomain:  domain,
		AccessToken: accessToken,
		APIVersion:  a.APIVersion,
		BaseURL:     a.BaseURL,
	}
	return c.GetShop(ctx)
}
