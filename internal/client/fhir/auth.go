package fhir

import (
	"context"
	"errors"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/garrettladley/imisrelay/internal/xhttp"
)

var ErrMissingToken = errors.New("auth token not found")

type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

// Login exchanges credentials for a bearer token. Every call performs a
// fresh login; tokens are neither cached nor refreshed.
func Login(ctx context.Context, baseURL string, creds Credentials, opts ...Option) (*oauth2.Token, error) {
	cfg := newClientConfig(opts)

	r := requester{
		baseURL:    TrimBaseURL(baseURL),
		httpClient: xhttp.NewHTTPClient(xhttp.WithTimeout(cfg.timeout), xhttp.WithTransport(cfg.transport)),
		logger:     cfg.logger,
	}

	var resp loginResponse
	if err := r.do(ctx, http.MethodPost, loginPath, creds, &resp); err != nil {
		return nil, err
	}

	if resp.Token == "" {
		return nil, ErrMissingToken
	}

	return &oauth2.Token{
		AccessToken: resp.Token,
		TokenType:   "Bearer",
	}, nil
}
