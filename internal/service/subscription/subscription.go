package subscription

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/oauth2"

	"github.com/garrettladley/imisrelay/internal/client/fhir"
	"github.com/garrettladley/imisrelay/internal/storage"
	"github.com/garrettladley/imisrelay/internal/xslog"
)

type Manager struct {
	store storage.Store
	creds fhir.Credentials
	opts  []fhir.Option
}

var _ Service = (*Manager)(nil)

func NewManager(store storage.Store, creds fhir.Credentials, opts ...fhir.Option) *Manager {
	return &Manager{
		store: store,
		creds: creds,
		opts:  opts,
	}
}

func (m *Manager) Subscribe(ctx context.Context, req SubscribeRequest) (*storage.Subscription, error) {
	if fields := req.Validate(); len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	logger := xslog.FromContext(ctx)

	client, err := m.client(ctx, req.OpenIMISURL)
	if err != nil {
		return nil, err
	}

	created, err := client.Subscriptions.Create(ctx, fhir.CreateSubscriptionParams{
		Criteria:    req.Criteria,
		CallbackURL: req.CallbackURL,
	})
	if err != nil {
		return nil, &RemoteError{Op: "create subscription", Err: err}
	}
	if created.ID == "" {
		return nil, ErrMissingSubscriptionID
	}

	sub, err := m.store.UpsertSubscription(ctx, storage.UpsertSubscriptionParams{
		ID:          created.ID,
		Criteria:    req.Criteria,
		Status:      storage.StatusActive,
		OpenIMISURL: req.OpenIMISURL,
	})
	if err != nil {
		// the remote subscription exists but is unknown locally
		logger.ErrorContext(ctx, "failed to record remote subscription",
			xslog.Error(err),
			xslog.SubscriptionID(created.ID),
			xslog.RemoteURL(req.OpenIMISURL),
		)
		return nil, fmt.Errorf("failed to record subscription: %w", err)
	}

	logger.InfoContext(ctx, "subscribed",
		xslog.SubscriptionID(sub.ID),
		xslog.Criteria(sub.Criteria),
		xslog.CallbackURL(req.CallbackURL),
	)

	return sub, nil
}

func (m *Manager) Unsubscribe(ctx context.Context, id string) error {
	sub, err := m.store.GetSubscription(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return ErrSubscriptionNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to get subscription: %w", err)
	}

	client, err := m.client(ctx, sub.OpenIMISURL)
	if err != nil {
		return err
	}

	if err := client.Subscriptions.Delete(ctx, sub.ID); err != nil {
		return &RemoteError{Op: "delete subscription", Err: err}
	}

	if err := m.store.SetSubscriptionStatus(ctx, sub.ID, storage.StatusOff); err != nil {
		return fmt.Errorf("failed to deactivate subscription: %w", err)
	}

	xslog.FromContext(ctx).InfoContext(ctx, "unsubscribed", xslog.SubscriptionID(sub.ID))

	return nil
}

// client logs in against baseURL and returns a client bound to the fresh
// token.
func (m *Manager) client(ctx context.Context, baseURL string) (*fhir.Client, error) {
	opts := append([]fhir.Option{fhir.WithLogger(xslog.FromContext(ctx))}, m.opts...)

	token, err := fhir.Login(ctx, baseURL, m.creds, opts...)
	if err != nil {
		return nil, &RemoteError{Op: "login", Err: err}
	}

	return fhir.New(baseURL, oauth2.StaticTokenSource(token), opts...), nil
}
