package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

const (
	DefaultAPIVersion = "2024-01"
	DefaultUpsertURL  = "http://localhost:7071/api/upsert"
)

type Config struct {
	AppEnv         string
	HTTPAddr       string
	LogLevel       string
	MigrationsPath string

	// DATABASE_URL is the runtime connection (may be a pooler);
	// DIRECT_URL is preferred for migrations.
	DatabaseURL string
	DirectURL   string

	DB DBConfig

	Shopify ShopifyConfig

	Sessions SessionConfig

	Relay RelayConfig
}

type DBConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	SSLMode  string
}

type ShopifyConfig struct {
	APIKey    string
	APISecret string
	Scopes    []string

	// AppURL is the externally reachable URL of this app. OAuth redirects and
	// relative webhook callback paths are resolved against it.
	AppURL string

	APIVersion string

	// CustomShopDomains are accepted as shop hosts in addition to *.myshopify.com.
	CustomShopDomains []string
}

type SessionConfig struct {
	// Store is one of postgres, redis, memory.
	Store    string
	RedisURL string
}

type RelayConfig struct {
	UpsertURL             string
	ProtectionPercentage  decimal.Decimal
	MinimumProtectionCost decimal.Decimal
}

func Load() (Config, error) {
	// Convenience for local dev: load variables from .env if present.
	_ = godotenv.Load()

	// Cloud Run sets PORT. Prefer it when HTTP_ADDR isn't explicitly set.
	httpAddr := os.Getenv("HTTP_ADDR")
	if httpAddr == "" {
		if port := os.Getenv("PORT"); port != "" {
			httpAddr = ":" + port
		} else {
			httpAddr = ":8081"
		}
	}

	pct, err := envDecimal("PROTECTION_PERCENTAGE", "5")
	if err != nil {
		return Config{}, err
	}
	minCost, err := envDecimal("MINIMUM_PROTECTION_COST", "3")
	if err != nil {
		return Config{}, err
	}

	var customDomains []string
	if d := strings.TrimSpace(os.Getenv("SHOP_CUSTOM_DOMAIN")); d != "" {
		customDomains = []string{d}
	}

	return Config{
		AppEnv:         env("APP_ENV", "dev"),
		HTTPAddr:       httpAddr,
		LogLevel:       env("LOG_LEVEL", "info"),
		MigrationsPath: os.Getenv("MIGRATIONS_PATH"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		DirectURL:      os.Getenv("DIRECT_URL"),
		DB: DBConfig{
			Host:     env("DB_HOST", "localhost"),
			Port:     env("DB_PORT", "5432"),
			Name:     env("DB_NAME", "shopprotect"),
			User:     env("DB_USER", "shopprotect"),
			Password: env("DB_PASSWORD", "shopprotect"),
			SSLMode:  env("DB_SSLMODE", "disable"),
		},
		Shopify: ShopifyConfig{
			APIKey:            os.Getenv("SHOPIFY_API_KEY"),
			APISecret:         os.Getenv("SHOPIFY_API_SECRET"),
			Scopes:            envList("SCOPES", ""),
			AppURL:            strings.TrimRight(os.Getenv("SHOPIFY_APP_URL"), "/"),
			APIVersion:        env("SHOPIFY_API_VERSION", DefaultAPIVersion),
			CustomShopDomains: customDomains,
		},
		Sessions: SessionConfig{
			Store:    env("SESSION_STORE", "postgres"),
			RedisURL: env("REDIS_URL", "redis://localhost:6379/0"),
		},
		Relay: RelayConfig{
			UpsertURL:             env("UPSERT_URL", DefaultUpsertURL),
			ProtectionPercentage:  pct,
			MinimumProtectionCost: minCost,
		},
	}, nil
}

// Warnings lists settings that are empty but needed for a working install flow.
// Values are passed through to Shopify unvalidated; these are hints for the operator.
func (c Config) Warnings() []string {
	var out []string
	if c.Shopify.APIKey == "" {
		out = append(out, "SHOPIFY_API_KEY is empty")
	}
	if c.Shopify.APISecret == "" {
		out = append(out, "SHOPIFY_API_SECRET is empty")
	}
	if c.Shopify.AppURL == "" {
		out = append(out, "SHOPIFY_APP_URL is empty; webhooks will not be registered")
	}
	if len(c.Shopify.Scopes) == 0 {
		out = append(out, "SCOPES is empty")
	}
	return out
}

func (c Config) IsProd() bool {
	return c.AppEnv == "prod"
}

func env(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func envList(key, fallbackCSV string) []string {
	v := os.Getenv(key)
	if v == "" {
		v = fallbackCSV
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func envDecimal(key, fallback string) (decimal.Decimal, error) {
	raw := env(key, fallback)
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, fmt.Errorf("config: %s: %w", key, err)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("config: %s must not be negative", key)
	}
	return d, nil
}
