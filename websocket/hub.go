package websocket

import (
	"fmt"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	gws "github.com/gorilla/websocket"
)

// Event types pushed over WebSocket
const (
	EventConnected         = "connected"
	EventProfitDistributed = "profit_distributed"
	EventCreditReceived    = "credit_received"
	EventRewardCreated     = "reward_created"
	EventWithdrawalUpdate  = "withdrawal_update"
	EventNotification      = "notification"
)

// Event is a message sent over WebSocket
type Event struct {
	Type    string      `json:"type"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	UserID  string      `json:"userId,omitempty"`
}

// Client represents a connected WebSocket client
type Client struct {
	UserID primitive.ObjectID
	Conn   *gws.Conn
}

// Hub maintains the set of active clients and pushes balance and reward
// events to them
type Hub struct {
	clients    map[primitive.ObjectID]*Client
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[primitive.ObjectID]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run starts the hub's event loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if client.UserID != primitive.NilObjectID {
				h.clients[client.UserID] = client
			}
			h.mu.Unlock()
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.UserID]; ok {
				delete(h.clients, client.UserID)
			}
			client.Conn.Close()
			h.mu.Unlock()
		}
	}
}

// SendToUser sends an event to a specific user
func (h *Hub) SendToUser(userID primitive.ObjectID, event Event) error {
	h.mu.RLock()
	client, ok := h.clients[userID]
	h.mu.RUnlock()

	if !ok {
		return fmt.Errorf("user not connected")
	}
	return client.Conn.WriteJSON(event)
}
