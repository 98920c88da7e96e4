// Package sse consumes a running relay's notification feed, either as a
// live event stream or by polling.
package sse

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	go_json "github.com/goccy/go-json"

	"github.com/garrettladley/imisrelay/internal/client/fhir"
	"github.com/garrettladley/imisrelay/internal/storage"
	"github.com/garrettladley/imisrelay/internal/xhttp"
	"github.com/garrettladley/imisrelay/internal/xslog"
)

const (
	initialBackoff = 1 * time.Second
	maxBackoff     = 30 * time.Second
	backoffFactor  = 2

	streamPath = "/api/stream"

	// maxEventBytes matches the largest callback the relay accepts.
	maxEventBytes = 16 << 20
)

type Event struct {
	Type string
	Data []byte
}

type Client struct {
	baseURL        string
	httpClient     *http.Client
	logger         *slog.Logger
	initialBackoff time.Duration
}

type Option func(*Client)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

func WithInitialBackoff(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.initialBackoff = d
		}
	}
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:        fhir.TrimBaseURL(baseURL),
		httpClient:     xhttp.NewHTTPClient(), // no timeout for SSE
		logger:         slog.Default(),
		initialBackoff: initialBackoff,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type NotificationHandler func(notification storage.Notification)

// Connect establishes an SSE connection and calls the handler for each notification.
// It automatically reconnects with exponential backoff on disconnection.
// Returns when the context is cancelled.
func (c *Client) Connect(ctx context.Context, handler NotificationHandler) error {
	backoff := c.initialBackoff

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := c.connectOnce(ctx, handler)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			c.logger.WarnContext(ctx, "SSE connection failed, reconnecting",
				xslog.Error(err),
				xslog.Backoff(backoff),
			)

			// wait before reconnecting using timer to avoid memory leak
			timer := time.NewTimer(backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}

			// increase backoff for next attempt
			backoff = min(backoff*backoffFactor, maxBackoff)
		} else {
			// connection closed cleanly, reset backoff
			backoff = c.initialBackoff
		}
	}
}

// connectOnce establishes a single SSE connection and processes events until disconnection.
func (c *Client) connectOnce(ctx context.Context, handler NotificationHandler) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+streamPath, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set(xhttp.Accept, xhttp.TextEventStream)
	req.Header.Set(xhttp.CacheControl, "no-cache")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("connecting: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	c.logger.InfoContext(ctx, "SSE connection established")

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64<<10), maxEventBytes)
	var currentEvent Event

	for scanner.Scan() {
		line := scanner.Text()

		if line == "" {
			// empty line signals end of event
			if currentEvent.Type != "" && len(currentEvent.Data) > 0 {
				c.handleEvent(ctx, currentEvent, handler)
			}
			currentEvent = Event{}
			continue
		}

		if eventType, found := strings.CutPrefix(line, "event:"); found {
			currentEvent.Type = strings.TrimSpace(eventType)
		} else if data, found := strings.CutPrefix(line, "data:"); found {
			currentEvent.Data = []byte(strings.TrimSpace(data))
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading stream: %w", err)
	}

	return nil
}

func (c *Client) handleEvent(ctx context.Context, event Event, handler NotificationHandler) {
	switch event.Type {
	case "notification":
		var notification storage.Notification
		if err := go_json.Unmarshal(event.Data, &notification); err != nil {
			c.logger.WarnContext(ctx, "failed to parse notification",
				xslog.Error(err),
				xslog.Data(string(event.Data)),
			)
			return
		}
		handler(notification)

	case "heartbeat":
		c.logger.DebugContext(ctx, "received heartbeat")

	case "connected":
		c.logger.DebugContext(ctx, "received connected event", xslog.Data(string(event.Data)))

	case "shutdown":
		c.logger.InfoContext(ctx, "relay is shutting down", xslog.Data(string(event.Data)))

	default:
		c.logger.DebugContext(ctx, "received unknown event type", xslog.EventType(event.Type))
	}
}
