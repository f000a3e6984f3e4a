package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"shopprotect/internal/api"
	"shopprotect/internal/audit"
	"shopprotect/internal/auth"
	"shopprotect/internal/metrics"
	"shopprotect/internal/session"
	"shopprotect/internal/webhook"
	"shopprotect/pkg/config"
	"shopprotect/pkg/shopify"
)

type Dependencies struct {
	Cfg       config.Config
	Sessions  session.Storage
	Audit     audit.Recorder
	AfterAuth auth.AfterAuthFunc
	Exchanger shopify.OAuthExchanger
	// Cleanup overrides the uninstall cleanup built from Sessions and Audit.
	Cleanup   webhook.Cleanup
	Metrics   *metrics.Set
	Logger    *zap.Logger
}

func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(api.RequestLogger(deps.Logger))
	r.Use(deps.Metrics.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", deps.Metrics.Handler())

	authHandlers := auth.Handlers{
		Cfg:       deps.Cfg,
		Sessions:  deps.Sessions,
		Exchanger: deps.Exchanger,
		Audit:     deps.Audit,
		AfterAuth: deps.AfterAuth,
		Logger:    deps.Logger,
	}
	r.Route("/auth", func(r chi.Router) {
		r.Use(api.DocumentHeaders(deps.Cfg.Shopify.CustomShopDomains))
		r.Get("/", authHandlers.Begin)
		r.Get("/login", authHandlers.Login)
		r.Post("/login", authHandlers.Login)
		r.Get("/callback", authHandlers.Callback)
	})

	webhooks := webhook.NewHandler(deps.Cfg.Shopify.APISecret, deps.Sessions, deps.Audit, deps.Metrics, deps.Logger)
	if deps.Cleanup != nil {
		webhooks.Cleanup = deps.Cleanup
	}
	r.Method(http.MethodPost, "/webhooks", webhooks)

	r.Route("/app", func(r chi.Router) {
		r.Use(api.DocumentHeaders(deps.Cfg.Shopify.CustomShopDomains))
		r.Use(api.SessionAuth(deps.Cfg, deps.Sessions, nil))
		r.Get("/session", sessionInfo)
	})

	return r
}

func sessionInfo(w http.ResponseWriter, r *http.Request) {
	s := api.SessionFromContext(r.Context())
	if s == nil {
		api.WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing session")
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{
		"shop":      s.Shop,
		"scope":     s.Scope,
		"installed": true,
	})
}
