package subscription

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/garrettladley/imisrelay/internal/client/fhir"
	"github.com/garrettladley/imisrelay/internal/storage"
	"github.com/garrettladley/imisrelay/internal/validator"
)

var (
	ErrSubscriptionNotFound  = errors.New("subscription not found")
	ErrMissingSubscriptionID = errors.New("subscription id missing from remote response")
)

type SubscribeRequest struct {
	OpenIMISURL string `json:"openimis_url"`
	CallbackURL string `json:"callback_url"`
	Criteria    string `json:"criteria"`
}

func (r SubscribeRequest) Validate() map[string]string {
	fields := make(map[string]string)
	validator.HTTPURL(fields, "openimis_url", r.OpenIMISURL)
	validator.HTTPURL(fields, "callback_url", r.CallbackURL)
	validator.Required(fields, "criteria", r.Criteria)
	return fields
}

// RemoteError wraps a failed call against the remote FHIR API.
type RemoteError struct {
	Op  string
	Err error
}

func (e *RemoteError) Error() string { return fmt.Sprintf("remote %s: %v", e.Op, e.Err) }

func (e *RemoteError) Unwrap() error { return e.Err }

// Message is the text surfaced to API callers: the remote response body
// when there was one.
func (e *RemoteError) Message() string { return fhir.ErrorMessage(e.Err) }

type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return "invalid subscribe request: " + strings.Join(names, ", ")
}

type Service interface {
	// Subscribe registers a rest-hook subscription with the remote instance
	// and records it locally as active.
	// Returns *ValidationError if a request field is empty or malformed.
	// Returns *RemoteError if login or registration fails.
	// Returns ErrMissingSubscriptionID if the remote accepted the request
	// without assigning an id.
	Subscribe(ctx context.Context, req SubscribeRequest) (*storage.Subscription, error)

	// Unsubscribe deletes the remote subscription and marks the local row off.
	// Returns ErrSubscriptionNotFound without contacting the remote if the
	// id is unknown locally.
	Unsubscribe(ctx context.Context, id string) error
}
