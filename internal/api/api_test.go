package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"shopprotect/internal/session"
	"shopprotect/pkg/config"
	"shopprotect/pkg/shopify"
)

var now = time.Unix(1700000000, 0)

func testConfig() config.Config {
	return config.Config{Shopify: config.ShopifyConfig{APIKey: "key", APISecret: "secret", Scopes: []string{"read_orders"}}}
}

func bearer(t *testing.T, shop string) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, shopify.SessionTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Audience:  []string{"key"},
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
		},
		Dest: "https://" + shop,
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	return "Bearer " + tok
}

func serveAuth(t *testing.T, st session.Storage, authz string) (*httptest.ResponseRecorder, *session.Session) {
	var got *session.Session
	h := SessionAuth(testConfig(), st, func() time.Time { return now })(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = SessionFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))
	req := httptest.NewRequest(http.MethodGet, "/app/session", nil)
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec, got
}

func TestSessionAuth_AttachesOfflineSession(t *testing.T) {
	st := session.NewMemoryStorage()
	require.NoError(t, st.StoreSession(context.Background(), session.Session{
		ID: session.OfflineID("acme.myshopify.com"), Shop: "acme.myshopify.com", AccessToken: "tok", Scope: "read_orders",
	}))

	rec, got := serveAuth(t, st, bearer(t, "acme.myshopify.com"))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	require.NotNil(t, got)
	assert.Equal(t, "acme.myshopify.com", got.Shop)
}

func TestSessionAuth_Rejects(t *testing.T) {
	st := session.NewMemoryStorage()
	require.NoError(t, st.StoreSession(context.Background(), session.Session{
		ID: session.OfflineID("narrow.myshopify.com"), Shop: "narrow.myshopify.com", AccessToken: "tok", Scope: "read_products",
	}))

	rec, _ := serveAuth(t, st, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = serveAuth(t, st, "Bearer nope")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, rec.Header().Get(ReauthorizeHeader))

	rec, _ = serveAuth(t, st, bearer(t, "unknown.myshopify.com"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "1", rec.Header().Get(ReauthorizeHeader))

	// Granted scopes no longer cover what the app needs.
	rec, _ = serveAuth(t, st, bearer(t, "narrow.myshopify.com"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "1", rec.Header().Get(ReauthorizeHeader))
}

func TestDocumentHeaders(t *testing.T) {
	h := DocumentHeaders(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/app?shop=acme.myshopify.com", nil))
	assert.Equal(t, "frame-ancestors https://acme.myshopify.com https://admin.shopify.com;", rec.Header().Get("Content-Security-Policy"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/app?shop=evil.com", nil))
	assert.Equal(t, "frame-ancestors https://admin.shopify.com;", rec.Header().Get("Content-Security-Policy"))
}

func TestRequestLogger_SetsRequestID(t *testing.T) {
	h := RequestLogger(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-Id", "abc")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc", rec.Header().Get("X-Request-Id"))
}
