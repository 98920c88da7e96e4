package xerrors

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	go_json "github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"
)

func TestWriteError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		err        error
		wantStatus int
		want       Failure
	}{
		{
			name:       "not found with message",
			err:        NotFound(WithMessage("Subscription not found in local DB")),
			wantStatus: http.StatusNotFound,
			want:       Failure{Message: "Subscription not found in local DB"},
		},
		{
			name:       "wrapped app error keeps its status",
			err:        fmt.Errorf("unsubscribe: %w", BadRequest(WithMessage("bad id"))),
			wantStatus: http.StatusBadRequest,
			want:       Failure{Message: "bad id"},
		},
		{
			name:       "validation fields",
			err:        Validation(map[string]string{"criteria": "is required"}, WithMessage("invalid request")),
			wantStatus: http.StatusBadRequest,
			want: Failure{
				Message: "invalid request",
				Fields:  map[string]string{"criteria": "is required"},
			},
		},
		{
			name:       "plain error becomes internal",
			err:        errors.New("disk full"),
			wantStatus: http.StatusInternalServerError,
			want:       Failure{Message: "internal server error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			w := httptest.NewRecorder()
			WriteError(t.Context(), w, tt.err)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if ct := w.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q, want application/json", ct)
			}

			var got Failure
			if err := go_json.Unmarshal(w.Body.Bytes(), &got); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("body mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestErrorUnwrap(t *testing.T) {
	t.Parallel()

	cause := errors.New("boom")
	err := Internal(WithCause(cause))

	if !errors.Is(err, cause) {
		t.Errorf("errors.Is(%v, cause) = false", err)
	}
	if got, want := err.Error(), "internal server error: boom"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
