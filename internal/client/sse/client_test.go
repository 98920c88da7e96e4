package sse

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/garrettladley/imisrelay/internal/storage"
)

func TestConnectReconnectsAndDelivers(t *testing.T) {
	t.Parallel()

	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/stream" {
			http.NotFound(w, r)
			return
		}
		if attempts.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, "event: connected\ndata: {}\n\n")
		_, _ = io.WriteString(w, "event: heartbeat\ndata: {}\n\n")
		_, _ = io.WriteString(w, "event: notification\ndata: not-json\n\n")
		_, _ = fmt.Fprintf(w, "event: notification\ndata: %s\n\n",
			`{"id":5,"received_at":"2026-01-02T03:04:05Z","content":"{\"resourceType\":\"Patient\"}"}`)
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	}))
	t.Cleanup(srv.Close)

	client := NewClient(srv.URL+"/",
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithInitialBackoff(10*time.Millisecond),
	)

	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancel()

	var got []storage.Notification
	err := client.Connect(ctx, func(n storage.Notification) {
		got = append(got, n)
		cancel()
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Connect() error = %v, want %v", err, context.Canceled)
	}

	want := []storage.Notification{{
		ID:         5,
		ReceivedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Content:    `{"resourceType":"Patient"}`,
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("notifications mismatch (-want +got):\n%s", diff)
	}
	if n := attempts.Load(); n < 2 {
		t.Errorf("attempts = %d, want at least 2", n)
	}
}

func TestPollClient(t *testing.T) {
	t.Parallel()

	var gotCount string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/check_updates":
			gotCount = r.URL.Query().Get("count")
			_, _ = io.WriteString(w, `{"has_new_data":true}`)
		case "/api/data":
			_, _ = io.WriteString(w, `{"subscriptions":[{"id":"abc123","criteria":"Patient?","status":"active","openimis_url":"http://imis","created_at":"2026-01-02T03:04:05Z"}],"notifications":[]}`)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	client := NewPollClient(srv.URL)

	hasNew, err := client.HasNewData(t.Context(), 7)
	if err != nil {
		t.Fatalf("HasNewData() error = %v", err)
	}
	if !hasNew {
		t.Error("HasNewData() = false, want true")
	}
	if gotCount != "7" {
		t.Errorf("count = %q, want %q", gotCount, "7")
	}

	snapshot, err := client.Snapshot(t.Context())
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	want := &storage.Snapshot{
		Subscriptions: []storage.Subscription{{
			ID:          "abc123",
			Criteria:    "Patient?",
			Status:      storage.StatusActive,
			OpenIMISURL: "http://imis",
			CreatedAt:   time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		}},
		Notifications: []storage.Notification{},
	}
	if diff := cmp.Diff(want, snapshot); diff != "" {
		t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
	}
}

func TestPollClientStatusError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	if _, err := NewPollClient(srv.URL).Snapshot(t.Context()); err == nil {
		t.Error("Snapshot() error = nil, want status error")
	}
}
