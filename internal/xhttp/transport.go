package xhttp

import (
	"fmt"
	"net/http"

	"github.com/garrettladley/imisrelay/internal/version"
)

type relayTransport struct {
	base http.RoundTripper
}

var _ http.RoundTripper = (*relayTransport)(nil)

func (t *relayTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set(UserAgent, "imisrelay/"+version.Get())
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, fmt.Errorf("failed to perform round trip: %w", err)
	}
	return resp, nil
}

// NewTransport returns an http.RoundTripper with standard imisrelay headers.
func NewTransport() http.RoundTripper {
	return &relayTransport{base: http.DefaultTransport}
}
