package handler

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	go_json "github.com/goccy/go-json"

	"github.com/garrettladley/imisrelay/internal/service/notification"
	"github.com/garrettladley/imisrelay/internal/xcontext"
	"github.com/garrettladley/imisrelay/internal/xhttp"
	"github.com/garrettladley/imisrelay/internal/xslog"
)

const (
	sseHeartbeatInterval = 30 * time.Second
	sseWriteTimeout      = 45 * time.Second
)

type Stream struct {
	service           notification.Service
	heartbeatInterval time.Duration
}

type StreamOption func(*Stream)

func WithHeartbeatInterval(d time.Duration) StreamOption {
	return func(s *Stream) {
		if d > 0 {
			s.heartbeatInterval = d
		}
	}
}

func NewStream(service notification.Service, opts ...StreamOption) *Stream {
	s := &Stream{
		service:           service,
		heartbeatInterval: sseHeartbeatInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// HandleStream handles GET /api/stream requests, pushing each newly stored
// notification as a server-sent event.
func (h *Stream) HandleStream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := xslog.FromContext(ctx)

	flusher, ok := w.(http.Flusher)
	if !ok {
		logger.WarnContext(ctx, "SSE: flusher not supported")
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	notifCh, unsubscribe, err := h.service.Subscribe(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "failed to subscribe to notifications", xslog.Error(err))
		xhttp.Error(w, http.StatusServiceUnavailable)
		return
	}
	defer unsubscribe()

	w.Header().Set(xhttp.ContentType, xhttp.TextEventStream)
	w.Header().Set(xhttp.CacheControl, "no-cache")
	w.Header().Set(xhttp.Connection, "keep-alive")
	w.Header().Set(xhttp.XAccelBuffers, "no")

	logger.InfoContext(ctx, "SSE connection established")

	rc := http.NewResponseController(w)

	if err := writeSSEEvent(rc, w, flusher, "connected", map[string]string{
		"time": time.Now().Format(time.RFC3339),
	}); err != nil {
		logger.ErrorContext(ctx, "failed to send connected event", xslog.Error(err))
		return
	}

	heartbeat := time.NewTicker(h.heartbeatInterval)
	defer heartbeat.Stop()

	for {
		// check if server is shutting down
		if ctx.Err() != nil && xcontext.IsShutdownInProgress(ctx) {
			logger.InfoContext(ctx, "SSE graceful shutdown initiated")

			// best effort: send shutdown event to client
			_ = writeSSEEvent(rc, w, flusher, "shutdown", map[string]string{
				"reason": "server-restart",
				"time":   time.Now().Format(time.RFC3339),
			})

			return
		}

		select {
		case <-ctx.Done():
			if xcontext.IsShutdownInProgress(ctx) {
				continue
			}
			logger.InfoContext(ctx, "SSE connection closed by client")
			return

		case n, ok := <-notifCh:
			if !ok {
				logger.InfoContext(ctx, "notification channel closed")
				return
			}

			if err := writeSSEEvent(rc, w, flusher, "notification", n); err != nil {
				logger.ErrorContext(ctx, "failed to send notification event", xslog.Error(err))
				return
			}

		case t := <-heartbeat.C:
			if err := writeSSEEvent(rc, w, flusher, "heartbeat", map[string]string{
				"time": t.Format(time.RFC3339),
			}); err != nil {
				logger.ErrorContext(ctx, "failed to send heartbeat", xslog.Error(err))
				return
			}
		}
	}
}

func writeSSEEvent(rc *http.ResponseController, w http.ResponseWriter, flusher http.Flusher, event string, data any) error {
	// extend write deadline before each write (ignore if not supported)
	if err := rc.SetWriteDeadline(time.Now().Add(sseWriteTimeout)); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return fmt.Errorf("failed to set write deadline: %w", err)
	}

	jsonData, err := go_json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	if _, err := fmt.Fprintf(w, "event: %s\n", event); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}

	if _, err := fmt.Fprintf(w, "data: %s\n\n", jsonData); err != nil {
		return fmt.Errorf("failed to write data: %w", err)
	}

	flusher.Flush()
	return nil
}
