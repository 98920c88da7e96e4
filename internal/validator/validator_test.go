package validator

import (
	"net/http"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/garrettladley/imisrelay/internal/xerrors"
)

type request struct {
	Endpoint string
	Name     string
}

func (r request) Validate() map[string]string {
	fields := make(map[string]string)
	HTTPURL(fields, "endpoint", r.Endpoint)
	Required(fields, "name", r.Name)
	return fields
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		req  request
		want map[string]string
	}{
		{
			name: "valid",
			req:  request{Endpoint: "https://imis.example/base", Name: "x"},
		},
		{
			name: "blank",
			req:  request{Name: "  "},
			want: map[string]string{"endpoint": "required", "name": "required"},
		},
		{
			name: "relative url",
			req:  request{Endpoint: "/callback", Name: "x"},
			want: map[string]string{"endpoint": "must be an absolute http(s) URL"},
		},
		{
			name: "wrong scheme",
			req:  request{Endpoint: "ftp://imis.example", Name: "x"},
			want: map[string]string{"endpoint": "must be an absolute http(s) URL"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := Validate(tt.req, xerrors.WithMessage("invalid request"))
			if tt.want == nil {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			if err.StatusCode != http.StatusBadRequest {
				t.Errorf("StatusCode = %d, want %d", err.StatusCode, http.StatusBadRequest)
			}
			if err.Message != "invalid request" {
				t.Errorf("Message = %q, want %q", err.Message, "invalid request")
			}
			if diff := cmp.Diff(tt.want, err.Validation.Fields); diff != "" {
				t.Errorf("fields mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
