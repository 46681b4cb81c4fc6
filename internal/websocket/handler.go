package websocket

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"bevops-backend/internal/middleware"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// HandleWebSocket upgrades HTTP connection to WebSocket. Browsers cannot set
// headers on the upgrade request, so a token query parameter is accepted too.
func HandleWebSocket(hub *Hub, jwtSecret string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userClaims, ok := middleware.GetUserFromContext(r)
		if !ok {
			tokenString := r.URL.Query().Get("token")
			if tokenString == "" {
				log.Println("❌ [WEBSOCKET] No token for connection")
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			claims, err := middleware.ParseToken(tokenString, jwtSecret)
			if err != nil {
				log.Printf("❌ [WEBSOCKET] Invalid token in query parameter: %v", err)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			userClaims = claims
		}

		// Upgrade HTTP connection to WebSocket
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("❌ [WEBSOCKET] upgrade failed: %v", err)
			return
		}

		client := NewClient(userClaims.UserID, userClaims.Role, conn, hub)
		hub.register <- client

		go client.WritePump()
		go client.ReadPump()
	}
}
