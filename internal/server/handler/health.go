package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/garrettladley/imisrelay/internal/xerrors"
	"github.com/garrettladley/imisrelay/internal/xhttp"
)

const healthTimeout = 2 * time.Second

type Pinger interface {
	Ping(ctx context.Context) error
}

type Health struct {
	store Pinger
}

func NewHealth(store Pinger) *Health {
	return &Health{store: store}
}

// HandleHealth handles GET /health requests.
func (h *Health) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		xerrors.WriteError(r.Context(), w, xerrors.ServiceUnavailable(
			xerrors.WithMessage("database unavailable"),
			xerrors.WithCause(err),
		))
		return
	}

	xhttp.WriteOK(w, map[string]string{"status": "ok"})
}
