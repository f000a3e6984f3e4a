package webhook

import "strings"

// NormalizeTopic maps both header form ("app/uninstalled") and enum form
// ("APP_UNINSTALLED") to "app_uninstalled".
func NormalizeTopic(topic string) string {
	t := strings.TrimSpace(strings.ToLower(topic))
	t = strings.NewReplacer("/", "_", ".", "_", "-", "_").Replace(t)
	for strings.Contains(t, "__") {
		t = strings.ReplaceAll(t, "__", "_")
	}
	return strings.Trim(t, "_")
}
