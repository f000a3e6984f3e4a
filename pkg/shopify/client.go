package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// LatestAPIVersion is the Admin API version the app is built against.
const LatestAPIVersion = "2024-01"

// ErrShopMissing is returned by GetShop when the response has no usable shop object.
var ErrShopMissing = errors.New("shopify: response has no shop object")

// APIError is a non-2xx Admin API response.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("shopify api error: status=%d body=%s", e.Status, e.Body)
	}
	return fmt.Sprintf("shopify api error: status=%d", e.Status)
}

type Client struct {
	HTTPClient  *http.Client
	ShopDomain  string
	AccessToken string
	APIVersion  string

	// BaseURL replaces https://{ShopDomain} when set. Used for proxies and tests.
	BaseURL string
}

func (c Client) endpoint(path string) string {
	version := c.APIVersion
	if version == "" {
		version = LatestAPIVersion
	}
	return shopBaseURL(c.BaseURL, c.ShopDomain) + "/admin/api/" + version + path
}

func (c Client) do(ctx context.Context, method, path string, reqBody any) (int, []byte, error) {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: 20 * time.Second}
	}
	if c.ShopDomain == "" || c.AccessToken == "" {
		return 0, nil, fmt.Errorf("missing shop domain or access token")
	}

	var body io.Reader
	if reqBody != nil {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(reqBody); err != nil {
			return 0, nil, err
		}
		body = &buf
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path), body)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Shopify-Access-Token", c.AccessToken)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}

	// Surface the error body so callers can see missing scopes, etc.
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, b, &APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	return resp.StatusCode, b, nil
}

func (c Client) doJSON(ctx context.Context, method, path string, reqBody any, respBody any) (int, error) {
	status, b, err := c.do(ctx, method, path, reqBody)
	if err != nil {
		return status, err
	}
	if respBody != nil && len(b) > 0 {
		if err := json.Unmarshal(b, respBody); err != nil {
			return status, fmt.Errorf("decode shopify response failed: %w body=%s", err, string(b))
		}
	}
	return status, nil
}

// GetShop fetches GET /shop.json and returns the shop object untouched.
// Numbers are kept as json.Number so ids survive a re-encode byte for byte.
func (c Client) GetShop(ctx context.Context) (map[string]any, error) {
	_, b, err := c.do(ctx, http.MethodGet, "/shop.json", nil)
	if err != nil {
		return nil, err
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(b, &envelope); err != nil {
		return nil, fmt.Errorf("decode shop response: %w", err)
	}
	raw, ok := envelope["shop"]
	if !ok {
		return nil, ErrShopMissing
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var shop map[string]any
	if err := dec.Decode(&shop); err != nil || len(shop) == 0 {
		// null, a scalar, or {} all count as no shop.
		return nil, ErrShopMissing
	}
	return shop, nil
}

func shopBaseURL(base, shopDomain string) string {
	if base != "" {
		return strings.TrimRight(base, "/")
	}
	return "https://" + shopDomain
}
