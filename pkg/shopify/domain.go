package shopify

import (
	"regexp"
	"strings"
)

var defaultShopHosts = []string{"myshopify.com", "shopify.com", "myshopify.io"}

var shopLabelRe = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9-]*$`)

// SanitizeShopDomain normalizes a ?shop= value and returns it only when it is a
// single subdomain of a Shopify host or of one of customDomains. It returns ""
// for anything else, including values carrying a scheme, path or port.
func SanitizeShopDomain(shop string, customDomains []string) string {
	s := strings.ToLower(strings.TrimSpace(shop))
	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "http://")
	s = strings.TrimSuffix(s, "/")
	if s == "" || strings.ContainsAny(s, "/:?#@ ") {
		return ""
	}

	hosts := append(append([]string{}, defaultShopHosts...), customDomains...)
	for _, h := range hosts {
		h = strings.ToLower(strings.TrimSpace(h))
		if h == "" {
			continue
		}
		label, ok := strings.CutSuffix(s, "."+h)
		if ok && shopLabelRe.MatchString(label) {
			return s
		}
	}
	return ""
}
