package shopify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// WebhookSubscription is a topic in GraphQL enum form (APP_UNINSTALLED) and the
// callback it is delivered to. A callback starting with "/" is relative to the app URL.
type WebhookSubscription struct {
	Topic       string
	CallbackURL string
}

type webhookCreateRequest struct {
	Webhook webhookPayload `json:"webhook"`
}

type webhookPayload struct {
	Topic   string `json:"topic"`
	Address string `json:"address"`
	Format  string `json:"format"`
}

type webhookCreateResponse struct {
	Webhook struct {
		ID int64 `json:"id"`
	} `json:"webhook"`
}

func (c Client) CreateWebhook(ctx context.Context, topic string, address string) error {
	topic = strings.TrimSpace(topic)
	address = strings.TrimSpace(address)
	if topic == "" || address == "" {
		return fmt.Errorf("missing topic or address")
	}

	req := webhookCreateRequest{
		Webhook: webhookPayload{
			Topic:   topic,
			Address: address,
			Format:  "json",
		},
	}
	var resp webhookCreateResponse
	if _, err := c.doJSON(ctx, http.MethodPost, "/webhooks.json", req, &resp); err != nil {
		// 422 means "address for this topic has already been taken": already registered.
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnprocessableEntity {
			return nil
		}
		return err
	}
	return nil
}

// RegisterWebhooks creates every subscription for the client's shop. It does not
// stop at the first failure; all failures come back joined.
func (c Client) RegisterWebhooks(ctx context.Context, subs []WebhookSubscription, appURL string) error {
	var errs []error
	for _, s := range subs {
		address := s.CallbackURL
		if strings.HasPrefix(address, "/") {
			if appURL == "" {
				errs = append(errs, fmt.Errorf("webhook %s: relative callback %q needs an app url", s.Topic, address))
				continue
			}
			address = strings.TrimRight(appURL, "/") + address
		}
		if err := c.CreateWebhook(ctx, RESTTopic(s.Topic), address); err != nil {
			errs = append(errs, fmt.Errorf("webhook %s: %w", s.Topic, err))
		}
	}
	return errors.Join(errs...)
}

// RESTTopic converts APP_UNINSTALLED to app/uninstalled. Only the first
// underscore separates resource from event (CUSTOMERS_DATA_REQUEST -> customers/data_request).
func RESTTopic(topic string) string {
	t := strings.ToLower(strings.TrimSpace(topic))
	if strings.Contains(t, "/") {
		return t
	}
	return strings.Replace(t, "_", "/", 1)
}
