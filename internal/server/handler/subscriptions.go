package handler

import (
	"context"
	"errors"
	"net/http"

	go_json "github.com/goccy/go-json"

	"github.com/garrettladley/imisrelay/internal/service/subscription"
	"github.com/garrettladley/imisrelay/internal/storage"
	"github.com/garrettladley/imisrelay/internal/validator"
	"github.com/garrettladley/imisrelay/internal/xerrors"
	"github.com/garrettladley/imisrelay/internal/xhttp"
	"github.com/garrettladley/imisrelay/internal/xslog"
)

const (
	msgSubscriptionNotFound  = "Subscription not found in local DB"
	msgMissingSubscriptionID = "Subscription ID not found in response."
	msgUnsubscribed          = "Unsubscribed successfully"
	msgInvalidRequest        = "invalid request"
)

type Subscriptions struct {
	service subscription.Service
}

func NewSubscriptions(service subscription.Service) *Subscriptions {
	return &Subscriptions{service: service}
}

type subscribeResponse struct {
	Success bool                  `json:"success"`
	Data    *storage.Subscription `json:"data"`
}

type unsubscribeResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// HandleSubscribe handles POST /api/subscribe requests.
func (h *Subscriptions) HandleSubscribe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req subscription.SubscribeRequest
	if err := go_json.NewDecoder(r.Body).Decode(&req); err != nil {
		xerrors.WriteError(ctx, w, xerrors.BadRequest(
			xerrors.WithMessage("invalid JSON body"),
			xerrors.WithCause(err),
		))
		return
	}

	if verr := validator.Validate(req, xerrors.WithMessage(msgInvalidRequest)); verr != nil {
		xerrors.WriteError(ctx, w, verr)
		return
	}

	sub, err := h.service.Subscribe(ctx, req)
	if err != nil {
		writeSubscriptionError(ctx, w, err)
		return
	}

	xhttp.WriteOK(w, subscribeResponse{Success: true, Data: sub})
}

// HandleUnsubscribe handles DELETE /api/unsubscribe/{id} requests.
func (h *Subscriptions) HandleUnsubscribe(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	ctx := xslog.WithAttrs(r.Context(), xslog.SubscriptionID(id))

	if err := h.service.Unsubscribe(ctx, id); err != nil {
		writeSubscriptionError(ctx, w, err)
		return
	}

	xhttp.WriteOK(w, unsubscribeResponse{Success: true, Message: msgUnsubscribed})
}

func writeSubscriptionError(ctx context.Context, w http.ResponseWriter, err error) {
	var (
		validationErr *subscription.ValidationError
		remoteErr     *subscription.RemoteError
	)

	switch {
	case errors.As(err, &validationErr):
		xerrors.WriteError(ctx, w, xerrors.Validation(validationErr.Fields,
			xerrors.WithMessage(msgInvalidRequest),
			xerrors.WithCause(err),
		))
	case errors.Is(err, subscription.ErrSubscriptionNotFound):
		xerrors.WriteError(ctx, w, xerrors.NotFound(xerrors.WithMessage(msgSubscriptionNotFound)))
	case errors.Is(err, subscription.ErrMissingSubscriptionID):
		xerrors.WriteError(ctx, w, xerrors.BadRequest(
			xerrors.WithMessage(msgMissingSubscriptionID),
			xerrors.WithCause(err),
		))
	case errors.As(err, &remoteErr):
		xerrors.WriteError(ctx, w, xerrors.Internal(
			xerrors.WithMessage(remoteErr.Message()),
			xerrors.WithCause(err),
		))
	default:
		xerrors.WriteError(ctx, w, xerrors.Internal(xerrors.WithCause(err)))
	}
}
