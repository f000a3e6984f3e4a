package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"HTTP_ADDR", "PORT", "SCOPES", "UPSERT_URL", "PROTECTION_PERCENTAGE", "MINIMUM_PROTECTION_COST", "SHOP_CUSTOM_DOMAIN", "SHOPIFY_API_VERSION"} {
		t.Setenv(k, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8081", cfg.HTTPAddr)
	assert.Equal(t, DefaultAPIVersion, cfg.Shopify.APIVersion)
	assert.Equal(t, DefaultUpsertURL, cfg.Relay.UpsertURL)
	assert.Equal(t, "5", cfg.Relay.ProtectionPercentage.String())
	assert.Equal(t, "3", cfg.Relay.MinimumProtectionCost.String())
	assert.Empty(t, cfg.Shopify.CustomShopDomains)
}

func TestLoad_ScopesAndCustomDomain(t *testing.T) {
	t.Setenv("SCOPES", "read_orders, write_products,,")
	t.Setenv("SHOP_CUSTOM_DOMAIN", "shops.example.com")
	t.Setenv("PORT", "9000")
	t.Setenv("HTTP_ADDR", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"read_orders", "write_products"}, cfg.Shopify.Scopes)
	assert.Equal(t, []string{"shops.example.com"}, cfg.Shopify.CustomShopDomains)
	assert.Equal(t, ":9000", cfg.HTTPAddr)
}

func TestLoad_RejectsBadProtectionSettings(t *testing.T) {
	t.Setenv("PROTECTION_PERCENTAGE", "five")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("PROTECTION_PERCENTAGE", "-1")
	_, err = Load()
	assert.Error(t, err)
}

func TestWarnings(t *testing.T) {
	cfg := Config{}
	assert.Len(t, cfg.Warnings(), 4)

	cfg.Shopify = ShopifyConfig{APIKey: "k", APISecret: "s", AppURL: "https://app.example.com", Scopes: []string{"read_orders"}}
	assert.Empty(t, cfg.Warnings())
}
