package ws

import (
	"net/http"
	"os"
	"slices"

	"github.com/gorilla/websocket"
)

var Upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")

		allowedOrigins := []string{
			"http://localhost:3000",
			"http://localhost:8080",
		}

		// Anything goes during development
		if os.Getenv("ENVIRONMENT") == "development" {
			return true
		}

		return slices.Contains(allowedOrigins, origin)
	},
}
