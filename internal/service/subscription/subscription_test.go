package subscription

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/garrettladley/imisrelay/internal/client/fhir"
	"github.com/garrettladley/imisrelay/internal/db"
	"github.com/garrettladley/imisrelay/internal/storage"
)

type fakeRemote struct {
	server  *httptest.Server
	logins  atomic.Int32
	creates atomic.Int32
	deletes atomic.Int32

	createStatus int
	createBody   string
	deleteStatus int
	deleteBody   string
}

func newFakeRemote(t *testing.T) *fakeRemote {
	t.Helper()

	f := &fakeRemote{
		createStatus: http.StatusCreated,
		createBody:   `{"resourceType":"Subscription","id":"abc123","status":"active"}`,
		deleteStatus: http.StatusNoContent,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/api_fhir_r4/login/", func(w http.ResponseWriter, _ *http.Request) {
		f.logins.Add(1)
		_, _ = io.WriteString(w, `{"token":"tok"}`)
	})
	mux.HandleFunc("POST /api/api_fhir_r4/Subscription/", func(w http.ResponseWriter, r *http.Request) {
		f.creates.Add(1)
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(f.createStatus)
		_, _ = io.WriteString(w, f.createBody)
	})
	mux.HandleFunc("DELETE /api/api_fhir_r4/Subscription/{id}/", func(w http.ResponseWriter, _ *http.Request) {
		f.deletes.Add(1)
		w.WriteHeader(f.deleteStatus)
		_, _ = io.WriteString(w, f.deleteBody)
	})

	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func newTestStore(t *testing.T) storage.Store {
	t.Helper()

	sqlDB, err := db.OpenSQLite(t.Context(), filepath.Join(t.TempDir(), "relay.db"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	store := storage.NewSQLiteStore(sqlDB)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSubscribe(t *testing.T) {
	t.Parallel()

	remote := newFakeRemote(t)
	store := newTestStore(t)
	m := NewManager(store, fhir.Credentials{Username: "u", Password: "p"})

	req := SubscribeRequest{
		OpenIMISURL: remote.server.URL,
		CallbackURL: "https://relay.example/callback",
		Criteria:    "Patient?",
	}

	sub, err := m.Subscribe(t.Context(), req)
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	if sub.ID != "abc123" || sub.Status != storage.StatusActive {
		t.Errorf("Subscribe() = %+v, want active abc123", sub)
	}

	// re-subscribing under the same remote id replaces the row
	if _, err := m.Subscribe(t.Context(), req); err != nil {
		t.Fatalf("second Subscribe() error = %v", err)
	}

	snapshot, err := store.FetchSnapshot(t.Context())
	if err != nil {
		t.Fatalf("FetchSnapshot() error = %v", err)
	}
	var ids []string
	for _, s := range snapshot.Subscriptions {
		ids = append(ids, s.ID)
	}
	if diff := cmp.Diff([]string{"abc123"}, ids); diff != "" {
		t.Errorf("active subscriptions mismatch (-want +got):\n%s", diff)
	}
	if got := remote.logins.Load(); got != 2 {
		t.Errorf("logins = %d, want 2", got)
	}
}

func TestSubscribeValidation(t *testing.T) {
	t.Parallel()

	remote := newFakeRemote(t)
	m := NewManager(newTestStore(t), fhir.Credentials{})

	_, err := m.Subscribe(t.Context(), SubscribeRequest{OpenIMISURL: remote.server.URL})

	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("Subscribe() error = %v, want *ValidationError", err)
	}
	want := map[string]string{"callback_url": "required", "criteria": "required"}
	if diff := cmp.Diff(want, vErr.Fields); diff != "" {
		t.Errorf("fields mismatch (-want +got):\n%s", diff)
	}
	if got := remote.logins.Load(); got != 0 {
		t.Errorf("logins = %d, want 0", got)
	}
}

func TestSubscribeRemoteFailure(t *testing.T) {
	t.Parallel()

	remote := newFakeRemote(t)
	remote.createStatus = http.StatusBadRequest
	remote.createBody = "invalid criteria"

	store := newTestStore(t)
	m := NewManager(store, fhir.Credentials{})

	_, err := m.Subscribe(t.Context(), SubscribeRequest{
		OpenIMISURL: remote.server.URL,
		CallbackURL: "http://cb",
		Criteria:    "Bogus?",
	})

	var rErr *RemoteError
	if !errors.As(err, &rErr) {
		t.Fatalf("Subscribe() error = %v, want *RemoteError", err)
	}
	if got := rErr.Message(); got != "invalid criteria" {
		t.Errorf("Message() = %q, want %q", got, "invalid criteria")
	}

	snapshot, err := store.FetchSnapshot(t.Context())
	if err != nil {
		t.Fatalf("FetchSnapshot() error = %v", err)
	}
	if len(snapshot.Subscriptions) != 0 {
		t.Errorf("len(Subscriptions) = %d, want 0", len(snapshot.Subscriptions))
	}
}

func TestSubscribeMissingID(t *testing.T) {
	t.Parallel()

	remote := newFakeRemote(t)
	remote.createBody = `{"resourceType":"Subscription","status":"active"}`

	m := NewManager(newTestStore(t), fhir.Credentials{})

	_, err := m.Subscribe(t.Context(), SubscribeRequest{
		OpenIMISURL: remote.server.URL,
		CallbackURL: "http://cb",
		Criteria:    "Patient?",
	})
	if !errors.Is(err, ErrMissingSubscriptionID) {
		t.Fatalf("Subscribe() error = %v, want %v", err, ErrMissingSubscriptionID)
	}
}

func TestUnsubscribe(t *testing.T) {
	t.Parallel()

	t.Run("unknown id makes no remote call", func(t *testing.T) {
		t.Parallel()

		remote := newFakeRemote(t)
		m := NewManager(newTestStore(t), fhir.Credentials{})

		err := m.Unsubscribe(t.Context(), "missing")
		if !errors.Is(err, ErrSubscriptionNotFound) {
			t.Fatalf("Unsubscribe() error = %v, want %v", err, ErrSubscriptionNotFound)
		}
		if got := remote.logins.Load() + remote.deletes.Load(); got != 0 {
			t.Errorf("remote calls = %d, want 0", got)
		}
	})

	t.Run("known id is deactivated", func(t *testing.T) {
		t.Parallel()

		remote := newFakeRemote(t)
		store := newTestStore(t)
		seedSubscription(t, store, remote.server.URL)
		m := NewManager(store, fhir.Credentials{})

		if err := m.Unsubscribe(t.Context(), "abc123"); err != nil {
			t.Fatalf("Unsubscribe() error = %v", err)
		}

		sub, err := store.GetSubscription(t.Context(), "abc123")
		if err != nil {
			t.Fatalf("GetSubscription() error = %v", err)
		}
		if sub.Status != storage.StatusOff {
			t.Errorf("Status = %q, want %q", sub.Status, storage.StatusOff)
		}

		snapshot, err := store.FetchSnapshot(t.Context())
		if err != nil {
			t.Fatalf("FetchSnapshot() error = %v", err)
		}
		if len(snapshot.Subscriptions) != 0 {
			t.Errorf("len(Subscriptions) = %d, want 0", len(snapshot.Subscriptions))
		}
		if got := remote.deletes.Load(); got != 1 {
			t.Errorf("deletes = %d, want 1", got)
		}
	})

	t.Run("remote failure keeps row active", func(t *testing.T) {
		t.Parallel()

		remote := newFakeRemote(t)
		remote.deleteStatus = http.StatusNotFound
		remote.deleteBody = "gone"
		store := newTestStore(t)
		seedSubscription(t, store, remote.server.URL)
		m := NewManager(store, fhir.Credentials{})

		err := m.Unsubscribe(t.Context(), "abc123")
		var rErr *RemoteError
		if !errors.As(err, &rErr) {
			t.Fatalf("Unsubscribe() error = %v, want *RemoteError", err)
		}
		if got := rErr.Message(); got != "gone" {
			t.Errorf("Message() = %q, want %q", got, "gone")
		}

		sub, err := store.GetSubscription(t.Context(), "abc123")
		if err != nil {
			t.Fatalf("GetSubscription() error = %v", err)
		}
		if sub.Status != storage.StatusActive {
			t.Errorf("Status = %q, want %q", sub.Status, storage.StatusActive)
		}
	})
}

func seedSubscription(t *testing.T, store storage.Store, remoteURL string) {
	t.Helper()

	_, err := store.UpsertSubscription(t.Context(), storage.UpsertSubscriptionParams{
		ID:          "abc123",
		Criteria:    "Patient?",
		Status:      storage.StatusActive,
		OpenIMISURL: remoteURL,
	})
	if err != nil {
		t.Fatalf("failed to seed subscription: %v", err)
	}
}
