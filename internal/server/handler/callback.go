package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/garrettladley/imisrelay/internal/service/notification"
	"github.com/garrettladley/imisrelay/internal/xhttp"
	"github.com/garrettladley/imisrelay/internal/xslog"
)

// maxCallbackBytes caps a single delivered resource.
const maxCallbackBytes = 10 << 20

const (
	ackReceived = "received"
	ackError    = "error"
)

type Callback struct {
	service notification.Service
}

func NewCallback(service notification.Service) *Callback {
	return &Callback{service: service}
}

type callbackAck struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// HandleCallback handles POST /callback requests from the remote instance.
// Deliveries that are not JSON are acknowledged and dropped so the remote
// does not retry them.
func (h *Callback) HandleCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := xslog.FromContext(ctx)

	if !xhttp.IsJSON(r) {
		logger.WarnContext(ctx, "ignoring non-JSON callback", xslog.ContentType(r.Header.Get(xhttp.ContentType)))
		xhttp.WriteOK(w, callbackAck{Status: ackReceived})
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxCallbackBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			logger.WarnContext(ctx, "rejecting oversized callback", xslog.Bytes(int(tooLarge.Limit)))
			xhttp.WriteJSON(w, http.StatusRequestEntityTooLarge, callbackAck{
				Status:  ackError,
				Message: "payload too large",
			})
			return
		}
		logger.WarnContext(ctx, "failed to read callback body", xslog.Error(err))
		xhttp.WriteOK(w, callbackAck{Status: ackReceived})
		return
	}

	if _, err := h.service.Receive(ctx, body); err != nil {
		if errors.Is(err, notification.ErrInvalidPayload) {
			logger.WarnContext(ctx, "ignoring unparseable callback", xslog.Bytes(len(body)))
			xhttp.WriteOK(w, callbackAck{Status: ackReceived})
			return
		}

		logger.ErrorContext(ctx, "failed to store callback", xslog.Error(err))
		xhttp.WriteJSON(w, http.StatusInternalServerError, callbackAck{
			Status:  ackError,
			Message: "failed to store notification",
		})
		return
	}

	xhttp.WriteOK(w, callbackAck{Status: ackReceived})
}
