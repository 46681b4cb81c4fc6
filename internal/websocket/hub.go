package websocket

import (
	"encoding/json"
	"log"
	"sync"
	"time"
)

// Event types pushed to connected operators
const (
	EventContainerUpdated   = "container.updated"
	EventTruckUpdated       = "truck.updated"
	EventAlertsUpdated      = "alerts.updated"
	EventCleaningQueued     = "cleaning.queued"
	EventCleaningUpdated    = "cleaning.updated"
	EventCleaningAssigned   = "cleaning.assigned"
	EventMaintenanceUpdated = "maintenance.updated"
)

// Event is the envelope every broadcast uses
type Event struct {
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// Hub maintains active WebSocket connections and broadcasts events
type Hub struct {
	// Registered clients (userID -> Client)
	clients map[string]*Client

	// Outbound events
	broadcast chan *Message

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Closed to stop Run
	done chan struct{}

	// Mutex for thread-safe client map access
	mu sync.RWMutex
}

// Message is an encoded event and the clients it is meant for.
// An empty UserID and Roles reaches every client subscribed to Topic.
type Message struct {
	UserID string
	Roles  []string
	Topic  string
	Data   []byte
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		broadcast:  make(chan *Message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			h.mu.Lock()
			for id, client := range h.clients {
				close(client.send)
				delete(h.clients, id)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			if old, ok := h.clients[client.UserID]; ok {
				close(old.send)
			}
			h.clients[client.UserID] = client
			total := len(h.clients)
			h.mu.Unlock()
			log.Printf("✅ [WEBSOCKET] Client CONNECTED: %s (%s), total %d", client.UserID, client.UserRole, total)

		case client := <-h.unregister:
			h.mu.Lock()
			if current, ok := h.clients[client.UserID]; ok && current == client {
				delete(h.clients, client.UserID)
				close(client.send)
				log.Printf("🔴 [WEBSOCKET] Client DISCONNECTED: %s (%s), remaining %d", client.UserID, client.UserRole, len(h.clients))
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.deliver(message)
		}
	}
}

// Stop ends Run and closes every client
func (h *Hub) Stop() {
	close(h.done)
}

func (h *Hub) deliver(m *Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, client := range h.clients {
		if !m.matches(client) {
			continue
		}
		select {
		case client.send <- m.Data:
		default:
			// Client buffer full, disconnect
			close(client.send)
			delete(h.clients, id)
			log.Printf("⚠️ [WEBSOCKET] Client buffer full, disconnecting: %s", id)
		}
	}
}

func (m *Message) matches(c *Client) bool {
	if m.UserID != "" && c.UserID != m.UserID {
		return false
	}
	if len(m.Roles) > 0 {
		ok := false
		for _, r := range m.Roles {
			if c.UserRole == r {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return c.Subscribed(m.Topic)
}

func (h *Hub) enqueue(m *Message, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("❌ [WEBSOCKET] Failed to marshal %s event: %v", event.Type, err)
		return
	}
	m.Topic = event.Type
	m.Data = data

	select {
	case h.broadcast <- m:
	default:
		log.Printf("⚠️ [WEBSOCKET] Broadcast queue full, dropping %s", event.Type)
	}
}

// Publish sends an event to every connected client subscribed to its type
func (h *Hub) Publish(eventType string, data interface{}) {
	h.enqueue(&Message{}, Event{Type: eventType, Data: data})
}

// BroadcastToUser sends an event to a specific user
func (h *Hub) BroadcastToUser(userID, eventType string, data interface{}) {
	h.enqueue(&Message{UserID: userID}, Event{Type: eventType, Data: data})
}

// BroadcastToRole sends an event to all users with one of the roles
func (h *Hub) BroadcastToRole(eventType string, data interface{}, roles ...string) {
	h.enqueue(&Message{Roles: roles}, Event{Type: eventType, Data: data})
}

// GetClientCount returns the number of connected clients
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// IsUserConnected checks if a user is currently connected
func (h *Hub) IsUserConnected(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[userID]
	return ok
}
