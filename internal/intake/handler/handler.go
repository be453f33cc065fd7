package handler

import (
	"net/http"

	"intake-server/internal/clients/notify"
	"intake-server/internal/observability"

	"github.com/gorilla/websocket"
)

type Handler struct {
	openAIAPIKey string
	publicHost   string
	notifier     *notify.Client
	logger       *observability.Logger
}

func New(openAIAPIKey, publicHost string, notifier *notify.Client, logger *observability.Logger) Handler {
	return Handler{
		openAIAPIKey: openAIAPIKey,
		publicHost:   publicHost,
		notifier:     notifier,
		logger:       logger,
	}
}

// upgrader is a shared WebSocket upgrader
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Twilio does not send a browser Origin header
		return true
	},
}
