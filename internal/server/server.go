// Package server assembles the relay's HTTP surface.
package server

import (
	"log/slog"
	"net/http"

	"github.com/garrettladley/imisrelay/internal/server/handler"
	"github.com/garrettladley/imisrelay/internal/service/notification"
	"github.com/garrettladley/imisrelay/internal/service/subscription"
	"github.com/garrettladley/imisrelay/internal/xhttp/middleware"
)

type Deps struct {
	Store         handler.Pinger
	Notifications notification.Service
	Subscriptions subscription.Service
	StreamOptions []handler.StreamOption
}

// NewHandler routes every relay endpoint and wraps them in the shared
// middleware chain.
func NewHandler(logger *slog.Logger, deps Deps) http.Handler {
	indexHandler := handler.NewIndex()
	dataHandler := handler.NewData(deps.Notifications)
	subscriptionsHandler := handler.NewSubscriptions(deps.Subscriptions)
	callbackHandler := handler.NewCallback(deps.Notifications)
	streamHandler := handler.NewStream(deps.Notifications, deps.StreamOptions...)
	healthHandler := handler.NewHealth(deps.Store)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", indexHandler.HandleIndex)
	mux.HandleFunc("GET /api/data", dataHandler.HandleData)
	mux.HandleFunc("GET /api/check_updates", dataHandler.HandleCheckUpdates)
	mux.HandleFunc("POST /api/subscribe", subscriptionsHandler.HandleSubscribe)
	mux.HandleFunc("DELETE /api/unsubscribe/{id}", subscriptionsHandler.HandleUnsubscribe)
	mux.HandleFunc("POST /callback", callbackHandler.HandleCallback)
	mux.HandleFunc("GET /api/stream", streamHandler.HandleStream)
	mux.HandleFunc("GET /health", healthHandler.HandleHealth)

	return middleware.Chain(mux,
		middleware.Recovery,
		middleware.RequestID(),
		middleware.Logger(logger),
		middleware.Logging,
		middleware.ShutdownContext,
		middleware.SecurityHeaders,
	)
}
