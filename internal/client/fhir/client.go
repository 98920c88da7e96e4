package fhir

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	go_json "github.com/goccy/go-json"
	"golang.org/x/oauth2"

	"github.com/garrettladley/imisrelay/internal/xhttp"
	"github.com/garrettladley/imisrelay/internal/xslog"
)

const (
	apiPrefix        = "/api/api_fhir_r4"
	loginPath        = apiPrefix + "/login/"
	subscriptionPath = apiPrefix + "/Subscription/"
)

// DefaultTimeout bounds every remote call.
const DefaultTimeout = 10 * time.Second

type Client struct {
	Subscriptions SubscriptionService

	requester
}

// New returns a client that authorizes every request with the bearer token
// from tokenSource.
func New(baseURL string, tokenSource oauth2.TokenSource, opts ...Option) *Client {
	cfg := newClientConfig(opts)

	transport := &oauth2.Transport{
		Source: tokenSource,
		Base:   cfg.transport,
	}

	c := &Client{
		requester: requester{
			baseURL:    TrimBaseURL(baseURL),
			httpClient: &http.Client{Transport: transport, Timeout: cfg.timeout},
			logger:     cfg.logger,
		},
	}

	c.Subscriptions = &subscriptionService{client: c}

	return c
}

type clientConfig struct {
	timeout   time.Duration
	logger    *slog.Logger
	transport http.RoundTripper
}

func newClientConfig(opts []Option) *clientConfig {
	cfg := &clientConfig{
		timeout:   DefaultTimeout,
		logger:    slog.Default(),
		transport: xhttp.NewTransport(),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

type Option func(*clientConfig)

func WithTimeout(d time.Duration) Option {
	return func(cfg *clientConfig) {
		if d > 0 {
			cfg.timeout = d
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(cfg *clientConfig) { cfg.logger = logger }
}

func WithTransport(rt http.RoundTripper) Option {
	return func(cfg *clientConfig) { cfg.transport = rt }
}

// TrimBaseURL strips trailing slashes so paths can be appended verbatim.
func TrimBaseURL(baseURL string) string {
	return strings.TrimRight(baseURL, "/")
}

type requester struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

func (r *requester) do(ctx context.Context, method string, path string, body any, result any) error {
	u := r.baseURL + path

	var reader io.Reader
	if body != nil {
		data, err := go_json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	xhttp.SetRequestHeadersJSON(req)

	start := time.Now()
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	r.logger.DebugContext(ctx, "remote call",
		xslog.RemoteGroup(method, u, resp.StatusCode, time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return parseAPIError(resp)
	}

	if result != nil && resp.StatusCode != http.StatusNoContent {
		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("reading response: %w", err)
		}
		if err := go_json.NewDecoder(bytes.NewReader(respBody)).Decode(result); err != nil {
			return fmt.Errorf("decoding response: %w\nbody: %s", err, string(respBody))
		}
	}

	return nil
}
