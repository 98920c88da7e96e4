package fhir

import (
	"context"
	"net/http"
	"net/url"
)

const (
	resourceTypeSubscription = "Subscription"
	statusActive             = "active"
	channelTypeRESTHook      = "rest-hook"
	// subscriptionEnd is the fixed expiry sent with every registration.
	subscriptionEnd = "2029-12-31T23:59:59Z"
)

type SubscriptionService interface {
	// Create registers a rest-hook subscription delivering matches of
	// criteria to callbackURL. The returned ID may be empty if the remote
	// omitted it.
	Create(ctx context.Context, params CreateSubscriptionParams) (*Subscription, error)

	Delete(ctx context.Context, id string) error
}

type CreateSubscriptionParams struct {
	Criteria    string
	CallbackURL string
}

type Subscription struct {
	ResourceType string  `json:"resourceType"`
	ID           string  `json:"id,omitempty"`
	Status       string  `json:"status"`
	End          string  `json:"end,omitempty"`
	Reason       string  `json:"reason,omitempty"`
	Criteria     string  `json:"criteria"`
	Channel      Channel `json:"channel"`
}

type Channel struct {
	Type     string   `json:"type"`
	Endpoint string   `json:"endpoint,omitempty"`
	Header   []string `json:"header,omitempty"`
}

// channelHeader is sent as a literal string in channel.header. Remotes may
// compare it byte for byte, so keep the spacing.
const channelHeader = `{"Content-Type": "application/json", "Accept": "application/json"}`

// NewSubscriptionResource builds the registration payload. The channel
// header list carries one JSON-encoded object of HTTP headers.
func NewSubscriptionResource(params CreateSubscriptionParams) *Subscription {
	return &Subscription{
		ResourceType: resourceTypeSubscription,
		Status:       statusActive,
		End:          subscriptionEnd,
		Reason:       params.Criteria,
		Criteria:     params.Criteria,
		Channel: Channel{
			Type:     channelTypeRESTHook,
			Endpoint: params.CallbackURL,
			Header:   []string{channelHeader},
		},
	}
}

type subscriptionService struct {
	client *Client
}

func (s *subscriptionService) Create(ctx context.Context, params CreateSubscriptionParams) (*Subscription, error) {
	resource := NewSubscriptionResource(params)

	var created Subscription
	if err := s.client.do(ctx, http.MethodPost, subscriptionPath, resource, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (s *subscriptionService) Delete(ctx context.Context, id string) error {
	route := subscriptionPath + url.PathEscape(id) + "/"
	return s.client.do(ctx, http.MethodDelete, route, nil, nil)
}
