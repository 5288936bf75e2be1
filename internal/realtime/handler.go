package realtime

import (
	"net/http"

	"github.com/buddy-ya/chat-engine/pkg/log"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// Handler upgrades HTTP → WS after handshake authentication and hands the
// connection to the hub and registry.
func Handler(
	hub *Hub,
	reg *Registry,
	events RoomEvents,
	whoAmI func(*http.Request) (int64, error),
) http.HandlerFunc {

	return func(w http.ResponseWriter, r *http.Request) {
		memberID, err := whoAmI(r)
		if err != nil {
			http.Error(w, "unauthenticated", http.StatusUnauthorized)
			return
		}

		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Logger.Warn().Err(err).Msg("ws upgrade failed")
			return
		}

		NewConn(memberID, ws, hub, reg, events) // goroutines start inside NewConn
	}
}
