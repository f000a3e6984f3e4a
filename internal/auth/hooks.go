package auth

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"shopprotect/internal/session"
	"shopprotect/pkg/shopify"
)

// Webhooks are the subscriptions every installed shop gets.
var Webhooks = []shopify.WebhookSubscription{
	{Topic: "APP_UNINSTALLED", CallbackURL: "/webhooks"},
}

type ShopRelay interface {
	Run(ctx context.Context, domain, accessToken string)
}

// Hooks is the post-install work: register webhooks, then relay the shop.
type Hooks struct {
	Webhooks   []shopify.WebhookSubscription
	AppURL     string
	APIVersion string
	HTTPClient *http.Client
	// AdminBaseURL overrides https://{shop} for Admin API calls.
	AdminBaseURL string

	Relay  ShopRelay
	Logger *zap.Logger
}

func (h Hooks) AfterAuth(ctx context.Context, s session.Session) {
	log := h.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("shop", s.Shop))

	if len(h.Webhooks) > 0 {
		c := shopify.Client{
			HTTPClient:  h.HTTPClient,
			ShopDomain:  s.Shop,
			AccessToken: s.AccessToken,
			APIVersion:  h.APIVersion,
			BaseURL:     h.AdminBaseURL,
		}
		if err := c.RegisterWebhooks(ctx, h.Webhooks, h.AppURL); err != nil {
			log.Warn("webhook registration failed", zap.Error(err))
		}
	}

	if h.Relay != nil {
		h.Relay.Run(ctx, s.Shop, s.AccessToken)
	}
}
