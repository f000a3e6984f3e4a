package shopify

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"
)

// VerifyOAuthHMAC verifies the hmac on an OAuth callback query string.
// The message is every other parameter (hmac and signature excluded) in lexicographic order.
func VerifyOAuthHMAC(values url.Values, apiSecret string) bool {
	given := values.Get("hmac")
	if given == "" || apiSecret == "" {
		return false
	}
	expected := SignQuery(values, apiSecret)
	return hmac.Equal([]byte(expected), []byte(given))
}

// SignQuery computes the hex HMAC-SHA256 that VerifyOAuthHMAC expects.
func SignQuery(values url.Values, apiSecret string) string {
	var keys []string
	for k := range values {
		if k == "hmac" || k == "signature" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var parts []string
	for _, k := range keys {
		for _, v := range values[k] {
			parts = append(parts, k+"="+strings.ReplaceAll(v, "&", "%26"))
		}
	}

	mac := hmac.New(sha256.New, []byte(apiSecret))
	_, _ = mac.Write([]byte(strings.Join(parts, "&")))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyWebhookHMAC checks X-Shopify-Hmac-Sha256, which is base64(HMAC_SHA256(body)).
func VerifyWebhookHMAC(body []byte, hmacHeader string, secret string) bool {
	if hmacHeader == "" || secret == "" {
		return false
	}
	return hmac.Equal([]byte(SignWebhook(body, secret)), []byte(hmacHeader))
}

func SignWebhook(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
