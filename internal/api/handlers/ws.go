package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	gorilla "github.com/gorilla/websocket"
	"github.com/google/uuid"

	"github.com/warden-panel/warden/internal/websocket"
)

var upgrader = gorilla.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Auth happens via the JWT middleware before the upgrade.
		return true
	},
}

// WebSocketHandler upgrades client connections onto the event hub.
type WebSocketHandler struct {
	hub *websocket.Hub
}

// NewWebSocketHandler creates a new websocket handler
func NewWebSocketHandler(hub *websocket.Hub) *WebSocketHandler {
	return &WebSocketHandler{hub: hub}
}

// Subscribe attaches the caller to a server's event stream
func (h *WebSocketHandler) Subscribe(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[WebSocket] Upgrade failed: %v", err)
		return
	}

	client := &websocket.Client{
		ID:       uuid.New().String(),
		UserID:   c.GetInt64("user_id"),
		ServerID: c.Param("server"),
		Conn:     conn,
		Send:     make(chan *websocket.Message, 64),
		Hub:      h.hub,
	}

	h.hub.Register <- client

	go client.WritePump()
	go client.ReadPump()
}
