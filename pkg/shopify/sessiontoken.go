package shopify

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type SessionTokenClaims struct {
	jwt.RegisteredClaims

	// Dest is the shop URL, e.g. https://{shop}.
	Dest string `json:"dest,omitempty"`
	SID  string `json:"sid,omitempty"`
}

type VerifiedSession struct {
	ShopDomain string
	// UserID is the admin user the token was issued for (the sub claim).
	UserID    string
	ExpiresAt time.Time
}

// VerifySessionToken verifies an embedded app session token (JWT, HS256) signed
// with the app API secret and returns the shop it was issued for.
func VerifySessionToken(tokenString string, apiKey string, apiSecret string, now time.Time) (*VerifiedSession, error) {
	if tokenString == "" {
		return nil, errors.New("missing token")
	}
	if apiSecret == "" {
		return nil, errors.New("missing api secret")
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithExpirationRequired(),
	)
	claims := &SessionTokenClaims{}
	tok, err := parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return []byte(apiSecret), nil
	})
	if err != nil {
		return nil, err
	}
	if !tok.Valid {
		return nil, errors.New("invalid token")
	}

	if apiKey != "" && !slices.Contains([]string(claims.Audience), apiKey) {
		return nil, errors.New("audience mismatch")
	}

	shopDomain := hostOf(claims.Dest)
	if shopDomain == "" {
		shopDomain = hostOf(claims.Issuer)
	}
	if shopDomain == "" {
		return nil, fmt.Errorf("missing shop in token")
	}

	return &VerifiedSession{
		ShopDomain: shopDomain,
		UserID:     claims.Subject,
		ExpiresAt:  claims.ExpiresAt.Time,
	}, nil
}

// hostOf reduces "https://shop.myshopify.com/admin" to "shop.myshopify.com".
func hostOf(v string) string {
	s := strings.TrimSpace(v)
	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "http://")
	if i := strings.Index(s, "/"); i >= 0 {
		s = s[:i]
	}
	return s
}
