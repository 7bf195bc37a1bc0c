package websocket

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Event types pushed to subscribed clients. Each server is a room;
// clients subscribe to the servers they are watching.
const (
	EventBackupStarted   = "backup.started"
	EventBackupCompleted = "backup.completed"
	EventBackupDeleted   = "backup.deleted"
	EventRestoreStarted  = "backup.restore_started"
	EventStatusChanged   = "server.status_changed"
)

// Message is one event frame on the wire.
type Message struct {
	Type      string      `json:"type"`
	ServerID  string      `json:"server_id"`
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

// Client is a single WebSocket subscriber bound to one server room.
type Client struct {
	ID       string
	UserID   int64
	ServerID string
	Conn     *websocket.Conn
	Send     chan *Message
	Hub      *Hub
}

// Hub fans server events out to subscribed WebSocket clients.
type Hub struct {
	// Registered clients grouped by server id
	rooms map[string]map[*Client]bool

	Register   chan *Client
	Unregister chan *Client
	broadcast  chan *Message

	mu sync.RWMutex
}

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		broadcast:  make(chan *Message, 256),
	}
}

// Run starts the hub's main loop
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case client := <-h.Register:
			h.registerClient(client)

		case client := <-h.Unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.broadcastToRoom(message)

		case <-ctx.Done():
			log.Println("[WebSocket] Hub shutting down")
			h.shutdown()
			return
		}
	}
}

// Publish queues an event for every client watching serverID. Publishing
// never blocks the caller; slow subscribers drop frames instead.
func (h *Hub) Publish(eventType, serverID string, payload interface{}) {
	msg := &Message{
		Type:      eventType,
		ServerID:  serverID,
		Payload:   payload,
		Timestamp: time.Now(),
	}

	select {
	case h.broadcast <- msg:
	default:
		log.Printf("[WebSocket] Broadcast queue full, dropping %s for server %s", eventType, serverID)
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.rooms[client.ServerID] == nil {
		h.rooms[client.ServerID] = make(map[*Client]bool)
	}
	h.rooms[client.ServerID][client] = true

	log.Printf("[WebSocket] Client %s watching server %s. Room size: %d",
		client.ID, client.ServerID, len(h.rooms[client.ServerID]))
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.rooms[client.ServerID]
	if !ok {
		return
	}

	if _, ok := clients[client]; ok {
		delete(clients, client)
		close(client.Send)

		if len(clients) == 0 {
			delete(h.rooms, client.ServerID)
		}
	}
}

func (h *Hub) broadcastToRoom(msg *Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.rooms[msg.ServerID] {
		select {
		case client.Send <- msg:
		default:
			// Client's send channel is full, drop message to avoid disconnecting
			log.Printf("[WebSocket] Client %s send channel full, dropping message", client.ID)
		}
	}
}

// RoomSize returns the number of clients watching a server.
func (h *Hub) RoomSize(serverID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.rooms[serverID])
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, clients := range h.rooms {
		for client := range clients {
			close(client.Send)
			client.Conn.Close()
		}
	}

	h.rooms = make(map[string]map[*Client]bool)
}

// ReadPump drains the connection so pings and close frames are handled.
// Clients do not send application messages; the stream is one-way.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister <- c
		c.Conn.Close()
	}()

	c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[WebSocket] Read error: %v", err)
			}
			break
		}
	}
}

// WritePump pumps events from the hub to the WebSocket connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				// Hub closed the channel
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			data, err := json.Marshal(message)
			if err != nil {
				log.Printf("[WebSocket] Failed to marshal message: %v", err)
				continue
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
