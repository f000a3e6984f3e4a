package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"shopprotect/internal/logger"
	"shopprotect/internal/relay"
	"shopprotect/pkg/config"
	"shopprotect/pkg/db"
	"shopprotect/pkg/shopify"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfg config.Config

	root := &cobra.Command{
		Use:          "appctl",
		Short:        "Operator tasks for the shopprotect app",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			c, err := config.Load()
			if err != nil {
				return err
			}
			cfg = c
			return nil
		},
	}

	root.AddCommand(
		newMigrateCmd(&cfg),
		newSimWebhookCmd(&cfg),
		newRelayCmd(&cfg),
	)
	return root
}

func newMigrateCmd(cfg *config.Config) *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations (uses DIRECT_URL when set)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if path == "" {
				path = cfg.MigrationsPath
			}
			if err := db.Migrate(path, *cfg); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}

			// Make sure the runtime connection (DATABASE_URL) works too.
			pool, err := db.Open(cmd.Context(), *cfg)
			if err != nil {
				return fmt.Errorf("runtime db open: %w", err)
			}
			pool.Close()

			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "path", "", "migrations source url (default MIGRATIONS_PATH or file://migrations)")
	return cmd
}

func newSimWebhookCmd(cfg *config.Config) *cobra.Command {
	var url, topic, shop, payload, webhookID string
	cmd := &cobra.Command{
		Use:   "simwebhook",
		Short: "Send a signed webhook delivery to a running server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.Shopify.APISecret == "" {
				return fmt.Errorf("SHOPIFY_API_SECRET is not set")
			}
			if url == "" {
				url = localURL(cfg.HTTPAddr) + "/webhooks"
			}

			body := []byte("{}")
			if payload != "" {
				b, err := os.ReadFile(payload)
				if err != nil {
					return fmt.Errorf("read payload: %w", err)
				}
				body = b
			}

			req, err := http.NewRequestWithContext(cmd.Context(), http.MethodPost, url, bytes.NewReader(body))
			if err != nil {
				return err
			}
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("X-Shopify-Topic", topic)
			req.Header.Set("X-Shopify-Shop-Domain", shop)
			req.Header.Set("X-Shopify-Hmac-Sha256", shopify.SignWebhook(body, cfg.Shopify.APISecret))
			if webhookID != "" {
				req.Header.Set("X-Shopify-Webhook-Id", webhookID)
			}

			resp, err := (&http.Client{Timeout: 10 * time.Second}).Do(req)
			if err != nil {
				return fmt.Errorf("post: %w", err)
			}
			defer resp.Body.Close()
			b, _ := io.ReadAll(resp.Body)
			fmt.Fprintf(cmd.OutOrStdout(), "status=%d\n%s\n", resp.StatusCode, string(b))
			return nil
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "webhook endpoint (default http://localhost<HTTP_ADDR>/webhooks)")
	cmd.Flags().StringVar(&topic, "topic", "app/uninstalled", "X-Shopify-Topic")
	cmd.Flags().StringVar(&shop, "shop", "example.myshopify.com", "X-Shopify-Shop-Domain")
	cmd.Flags().StringVar(&payload, "payload", "", "path to a json payload file")
	cmd.Flags().StringVar(&webhookID, "id", "", "X-Shopify-Webhook-Id")
	return cmd
}

func newRelayCmd(cfg *config.Config) *cobra.Command {
	var shop, token string
	cmd := &cobra.Command{
		Use:   "relay",
		Short: "Run the post-install shop relay once for a shop",
		RunE: func(cmd *cobra.Command, args []string) error {
			domain := shopify.SanitizeShopDomain(shop, cfg.Shopify.CustomShopDomains)
			if domain == "" {
				return fmt.Errorf("invalid shop domain %q", shop)
			}
			if token == "" {
				token = os.Getenv("SHOPIFY_ACCESS_TOKEN")
			}
			if token == "" {
				return fmt.Errorf("missing --token (or SHOPIFY_ACCESS_TOKEN)")
			}

			log := logger.New(logger.Config{Env: cfg.AppEnv, Level: cfg.LogLevel})
			defer func() { _ = log.Sync() }()

			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()
			relay.New(*cfg, log.Named("relay"), nil).Run(ctx, domain, token)
			log.Info("relay finished", zap.String("shop", domain))
			return nil
		},
	}
	cmd.Flags().StringVar(&shop, "shop", "", "shop domain, e.g. acme.myshopify.com")
	cmd.Flags().StringVar(&token, "token", "", "offline access token (default SHOPIFY_ACCESS_TOKEN)")
	_ = cmd.MarkFlagRequired("shop")
	return cmd
}

func localURL(httpAddr string) string {
	if strings.HasPrefix(httpAddr, ":") {
		return "http://localhost" + httpAddr
	}
	if httpAddr == "" {
		return "http://localhost:8081"
	}
	return "http://" + httpAddr
}
