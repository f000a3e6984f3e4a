package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"shopprotect/internal/api"
	"shopprotect/internal/audit"
	"shopprotect/internal/logger"
	"shopprotect/internal/session"
	"shopprotect/pkg/config"
	"shopprotect/pkg/shopify"
)

const stateCookie = "shopify_oauth_state"

// AfterAuthFunc runs once per completed install, after the offline session is
// stored. It must not fail the install; implementations log their own errors.
type AfterAuthFunc func(ctx context.Context, s session.Session)

type Handlers struct {
	Cfg       config.Config
	Sessions  session.Storage
	Exchanger shopify.OAuthExchanger
	Audit     audit.Recorder
	AfterAuth AfterAuthFunc
	Logger    *zap.Logger
}

// Begin starts OAuth for ?shop=. Served at /auth.
func (h Handlers) Begin(w http.ResponseWriter, r *http.Request) {
	shopDomain := shopify.SanitizeShopDomain(r.URL.Query().Get("shop"), h.Cfg.Shopify.CustomShopDomains)
	if shopDomain == "" {
		api.WriteError(w, http.StatusBadRequest, "INVALID_SHOP", "missing or invalid shop")
		return
	}
	h.redirectToAuthorize(w, r, shopDomain)
}

// Login accepts a bare store name ("acme") as well as a full domain. Served at /auth/login.
func (h Handlers) Login(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimSpace(r.URL.Query().Get("shop"))
	if raw == "" {
		_ = r.ParseForm()
		raw = strings.TrimSpace(r.PostForm.Get("shop"))
	}
	if raw == "" {
		api.WriteError(w, http.StatusBadRequest, "MISSING_SHOP", "missing shop")
		return
	}
	if !strings.Contains(raw, ".") {
		raw += ".myshopify.com"
	}
	shopDomain := shopify.SanitizeShopDomain(raw, h.Cfg.Shopify.CustomShopDomains)
	if shopDomain == "" {
		api.WriteError(w, http.StatusBadRequest, "INVALID_SHOP", "invalid shop")
		return
	}
	h.redirectToAuthorize(w, r, shopDomain)
}

func (h Handlers) redirectToAuthorize(w http.ResponseWriter, r *http.Request, shopDomain string) {
	state := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/auth",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.Cfg.IsProd(),
		MaxAge:   600,
	})

	redirect := h.Cfg.Shopify.AppURL + "/auth/callback"
	http.Redirect(w, r, shopify.AuthorizeURL(shopDomain, h.Cfg.Shopify.APIKey, h.Cfg.Shopify.Scopes, redirect, state), http.StatusFound)
}

// Callback completes OAuth: verifies state and hmac, exchanges the code, stores
// the offline session and fires AfterAuth. Served at /auth/callback.
func (h Handlers) Callback(w http.ResponseWriter, r *http.Request) {
	qs := r.URL.Query()
	shopDomain := shopify.SanitizeShopDomain(qs.Get("shop"), h.Cfg.Shopify.CustomShopDomains)
	code := strings.TrimSpace(qs.Get("code"))
	if shopDomain == "" || code == "" {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "missing shop or code")
		return
	}

	c, err := r.Cookie(stateCookie)
	if err != nil || c.Value == "" || c.Value != qs.Get("state") {
		api.WriteError(w, http.StatusBadRequest, "INVALID_STATE", "invalid oauth state")
		return
	}

	if !shopify.VerifyOAuthHMAC(qs, h.Cfg.Shopify.APISecret) {
		api.WriteError(w, http.StatusUnauthorized, "INVALID_HMAC", "invalid hmac")
		return
	}

	log := logger.From(r.Context(), h.Logger).With(zap.String("shop", shopDomain))

	ex := h.Exchanger
	ex.APIKey = h.Cfg.Shopify.APIKey
	ex.APISecret = h.Cfg.Shopify.APISecret
	tok, err := ex.ExchangeCodeForToken(r.Context(), shopDomain, code)
	if err != nil {
		log.Error("token exchange failed", zap.Error(err))
		api.WriteError(w, http.StatusBadGateway, "TOKEN_EXCHANGE_FAILED", "token exchange failed")
		return
	}

	s := session.Session{
		ID:          session.OfflineID(shopDomain),
		Shop:        shopDomain,
		State:       c.Value,
		Scope:       tok.Scope,
		AccessToken: tok.AccessToken,
	}
	if err := h.Sessions.StoreSession(r.Context(), s); err != nil {
		log.Error("store session failed", zap.Error(err))
		api.WriteError(w, http.StatusInternalServerError, "INTERNAL", "failed to save session")
		return
	}
	http.SetCookie(w, &http.Cookie{Name: stateCookie, Value: "", Path: "/auth", MaxAge: -1})

	if h.Audit != nil {
		if err := h.Audit.Record(r.Context(), shopDomain, audit.ActionAppInstalled, "oauth", map[string]any{"scope": tok.Scope}); err != nil {
			log.Warn("audit insert failed", zap.Error(err))
		}
	}
	log.Info("shop authenticated", zap.String("scope", tok.Scope))

	if h.AfterAuth != nil {
		// The merchant's browser may go away; the hook still runs to completion.
		h.AfterAuth(context.WithoutCancel(r.Context()), s)
	}

	http.Redirect(w, r, "https://"+shopDomain+"/admin/apps/"+h.Cfg.Shopify.APIKey, http.StatusFound)
}
