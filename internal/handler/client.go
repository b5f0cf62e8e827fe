package handler

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/samber/lo"

	"potholewatch/internal/config"
	"potholewatch/internal/logger"
	"potholewatch/internal/service"
)

// NewUpgrader returns a websocket upgrader that accepts the configured
// origins. "*" accepts any origin; requests without an Origin header are not
// from a browser and are accepted.
func NewUpgrader(allowedOrigins []string) *websocket.Upgrader {
	return &websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || lo.Contains(allowedOrigins, "*") || lo.Contains(allowedOrigins, origin)
		},
	}
}

// LiveWebsocketHandler registers a client in the HubService to receive report
// events until it disconnects.
func LiveWebsocketHandler(manager *service.Manager, cfg *config.Config, logger *logger.Logger) http.HandlerFunc {
	upgrader := NewUpgrader(cfg.AllowedOrigins)
	return func(w http.ResponseWriter, r *http.Request) {
		connection, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warning("WebSocket upgrade error: %v", err)
			return
		}

		manager.GetWebsocketService().Register(connection)
		defer manager.GetWebsocketService().Unregister(connection)

		for {
			if _, _, err := connection.ReadMessage(); err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					logger.Info("Live client disconnected normally")
				} else {
					logger.Warning("Live client disconnected with error: %v", err)
				}
				break
			}
		}
	}
}
