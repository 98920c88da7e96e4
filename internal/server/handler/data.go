package handler

import (
	"net/http"
	"strconv"

	"github.com/garrettladley/imisrelay/internal/service/notification"
	"github.com/garrettladley/imisrelay/internal/xerrors"
	"github.com/garrettladley/imisrelay/internal/xhttp"
	"github.com/garrettladley/imisrelay/internal/xslog"
)

type Data struct {
	service notification.Service
}

func NewData(service notification.Service) *Data {
	return &Data{service: service}
}

// HandleData handles GET /api/data requests.
func (h *Data) HandleData(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := xslog.FromContext(ctx)

	snapshot, err := h.service.Snapshot(ctx)
	if err != nil {
		xerrors.WriteError(ctx, w, xerrors.Internal(
			xerrors.WithMessage("failed to fetch data"),
			xerrors.WithCause(err),
		))
		return
	}

	logger.DebugContext(ctx, "fetched snapshot",
		xslog.Count(len(snapshot.Notifications)),
	)

	xhttp.WriteOK(w, snapshot)
}

type checkUpdatesResponse struct {
	HasNewData bool `json:"has_new_data"`
}

// HandleCheckUpdates handles GET /api/check_updates requests.
// Query params: count (int64 last seen notification count, default 0)
func (h *Data) HandleCheckUpdates(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	hasNew, err := h.service.HasNewData(ctx, parseCount(r.URL.Query().Get("count")))
	if err != nil {
		xerrors.WriteError(ctx, w, xerrors.Internal(
			xerrors.WithMessage("failed to check updates"),
			xerrors.WithCause(err),
		))
		return
	}

	xhttp.WriteOK(w, checkUpdatesResponse{HasNewData: hasNew})
}

// parseCount treats a missing or malformed count as zero.
func parseCount(s string) int64 {
	count, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return count
}
