package xhttp

import (
	"mime"
	"net/http"
	"strings"
)

const (
	XForwardedFor    = "X-Forwarded-For"
	XContentTypeOpts = "X-Content-Type-Options"
	XFrameOpts       = "X-Frame-Options"
	XXSSProtection   = "X-Xss-Protection"
	ReferrerPolicy   = "Referrer-Policy"
)

const (
	ContentType   = "Content-Type"
	Accept        = "Accept"
	UserAgent     = "User-Agent"
	CacheControl  = "Cache-Control"
	Connection    = "Connection"
	XAccelBuffers = "X-Accel-Buffering"
)

const (
	ApplicationJSON = "application/json"
	TextEventStream = "text/event-stream"
	TextHTML        = "text/html; charset=utf-8"
)

func SetHeaderRequestID(w http.ResponseWriter, requestID string) {
	const headerName = "X-Request-ID"
	w.Header().Set(headerName, requestID)
}

func SetHeaderContentTypeApplicationJSON(w http.ResponseWriter) {
	w.Header().Set(ContentType, ApplicationJSON)
}

func SetHeaderContentTypeTextHTML(w http.ResponseWriter) {
	w.Header().Set(ContentType, TextHTML)
}

func SetRequestHeadersJSON(req *http.Request) {
	req.Header.Set(ContentType, ApplicationJSON)
	req.Header.Set(Accept, ApplicationJSON)
}

// IsJSON reports whether the request declares a JSON body:
// application/json or any application/*+json media type.
func IsJSON(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get(ContentType))
	if err != nil {
		return false
	}
	if mediaType == ApplicationJSON {
		return true
	}
	return strings.HasPrefix(mediaType, "application/") && strings.HasSuffix(mediaType, "+json")
}
