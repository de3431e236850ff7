package handler

import (
	"net/http"

	"skyvision/internal/logger"
	"skyvision/internal/service/websocket"

	gorilla "github.com/gorilla/websocket"
)

// Upgrader upgrades HTTP connections to WebSocket; CheckOrigin allows all origins.
var Upgrader = gorilla.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// EventsWebsocketHandler registers viewers in the hub so they receive an event
// after every successful prediction.
func EventsWebsocketHandler(hub *websocket.HubService, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		connection, err := Upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error("WebSocket upgrade error: %v", err)
			return
		}

		hub.Register(connection)
		defer hub.Unregister(connection)

		// Viewers only listen; reading detects the close.
		for {
			if _, _, err := connection.ReadMessage(); err != nil {
				if !gorilla.IsCloseError(err, gorilla.CloseNormalClosure, gorilla.CloseGoingAway) {
					logger.Warning("Viewer disconnected with error: %v", err)
				}
				break
			}
		}
	}
}
