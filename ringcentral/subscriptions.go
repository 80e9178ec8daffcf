package ringcentral

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/marcelsud/telephony-gateway/webhook/payload"
)

const (
	SubscriptionPath = "/restapi/v1.0/subscription"

	// DefaultSubscriptionTTL is the platform maximum for webhook subscriptions, in seconds
	DefaultSubscriptionTTL = 604800

	TransportWebHook = "WebHook"
)

// DeliveryMode tells the platform where to post notifications
type DeliveryMode struct {
	TransportType     string `json:"transportType"`
	Address           string `json:"address"`
	VerificationToken string `json:"verificationToken,omitempty"`
}

// SubscriptionRequest creates a webhook subscription
type SubscriptionRequest struct {
	EventFilters []string     `json:"eventFilters"`
	DeliveryMode DeliveryMode `json:"deliveryMode"`
	ExpiresIn    int          `json:"expiresIn"`
}

// Validate validates the request and fills defaults
func (r *SubscriptionRequest) Validate() error {
	if len(r.EventFilters) == 0 {
		return fmt.Errorf("at least one event filter is required")
	}
	for _, f := range r.EventFilters {
		if f == "*" {
			return fmt.Errorf("event filter must be a resource path")
		}
		if err := payload.ValidateEventType(f); err != nil {
			return fmt.Errorf("invalid event filter: %w", err)
		}
	}

	u, err := url.Parse(r.DeliveryMode.Address)
	if err != nil || u.Scheme != "https" || u.Host == "" {
		return fmt.Errorf("delivery address must be an absolute https url (got %q)", r.DeliveryMode.Address)
	}
	if r.DeliveryMode.TransportType == "" {
		r.DeliveryMode.TransportType = TransportWebHook
	}
	if r.ExpiresIn == 0 {
		r.ExpiresIn = DefaultSubscriptionTTL
	}
	if r.ExpiresIn < 0 || r.ExpiresIn > DefaultSubscriptionTTL {
		return fmt.Errorf("expiresIn must be between 1 and %d seconds", DefaultSubscriptionTTL)
	}
	return nil
}

// Subscription is the platform representation of a subscription
type Subscription struct {
	ID             string       `json:"id"`
	URI            string       `json:"uri"`
	EventFilters   []string     `json:"eventFilters"`
	DeliveryMode   DeliveryMode `json:"deliveryMode"`
	Status         string       `json:"status"`
	CreationTime   time.Time    `json:"creationTime"`
	ExpirationTime time.Time    `json:"expirationTime"`
	ExpiresIn      int          `json:"expiresIn,omitempty"`
}

type subscriptionList struct {
	Records []Subscription `json:"records"`
}

func subscriptionPath(id string) string {
	return SubscriptionPath + "/" + url.PathEscape(id)
}

// CreateSubscription registers a new webhook subscription
func (c *Client) CreateSubscription(ctx context.Context, req SubscriptionRequest) (Subscription, error) {
	if err := req.Validate(); err != nil {
		return Subscription{}, fmt.Errorf("validating subscription: %w", err)
	}
	var sub Subscription
	if err := c.DoJSON(ctx, http.MethodPost, SubscriptionPath, req, &sub); err != nil {
		return Subscription{}, fmt.Errorf("creating subscription: %w", err)
	}
	return sub, nil
}

// ListSubscriptions returns every subscription of the app
func (c *Client) ListSubscriptions(ctx context.Context) ([]Subscription, error) {
	var list subscriptionList
	if err := c.DoJSON(ctx, http.MethodGet, SubscriptionPath, nil, &list); err != nil {
		return nil, fmt.Errorf("listing subscriptions: %w", err)
	}
	if list.Records == nil {
		list.Records = []Subscription{}
	}
	return list.Records, nil
}

// GetSubscription returns one subscription
func (c *Client) GetSubscription(ctx context.Context, id string) (Subscription, error) {
	if id == "" {
		return Subscription{}, fmt.Errorf("subscription id cannot be empty")
	}
	var sub Subscription
	if err := c.DoJSON(ctx, http.MethodGet, subscriptionPath(id), nil, &sub); err != nil {
		return Subscription{}, fmt.Errorf("getting subscription %s: %w", id, err)
	}
	return sub, nil
}

// DeleteSubscription cancels a subscription
func (c *Client) DeleteSubscription(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("subscription id cannot be empty")
	}
	if err := c.DoJSON(ctx, http.MethodDelete, subscriptionPath(id), nil, nil); err != nil {
		return fmt.Errorf("deleting subscription %s: %w", id, err)
	}
	return nil
}

// RenewSubscription extends a subscription by its original lifetime
func (c *Client) RenewSubscription(ctx context.Context, id string) (Subscription, error) {
	if id == "" {
		return Subscription{}, fmt.Errorf("subscription id cannot be empty")
	}
	var sub Subscription
	if err := c.DoJSON(ctx, http.MethodPost, subscriptionPath(id)+"/renew", nil, &sub); err != nil {
		return Subscription{}, fmt.Errorf("renewing subscription %s: %w", id, err)
	}
	return sub, nil
}
