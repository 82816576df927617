package ws

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
)

// EventOrderCreated and EventOrderUpdated are the event names carried
// on the wire. order.created goes to the branch channel; order.updated
// goes to both the branch channel and the order's own channel.
const (
	EventOrderCreated = "order.created"
	EventOrderUpdated = "order.updated"
)

// BranchChannel names the channel staff dashboards subscribe to.
func BranchChannel(branchID int64) string {
	return fmt.Sprintf("branch.%d", branchID)
}

// OrderChannel names the channel a single customer's status page subscribes to.
func OrderChannel(orderID int64) string {
	return fmt.Sprintf("order.%d", orderID)
}

// Event represents a WebSocket message to be broadcast
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// channelEvent is an internal struct for routing events to a channel
type channelEvent struct {
	Channel string
	Event   Event
}

// Hub maintains the set of active clients and broadcasts messages to them
type Hub struct {
	// Registered clients by channel name
	rooms map[string]map[*Client]bool

	// Inbound messages from clients (register/unregister)
	register   chan *Client
	unregister chan *Client

	// Outbound messages to broadcast
	broadcast chan *channelEvent

	// Mutex for thread-safe room access
	mu sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *channelEvent, 256),
	}
}

// Run starts the hub's main loop
// This should be called as a goroutine: go hub.Run()
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.rooms[client.channel] == nil {
				h.rooms[client.channel] = make(map[*Client]bool)
			}
			h.rooms[client.channel][client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.rooms[client.channel]; ok {
				if _, exists := clients[client]; exists {
					delete(clients, client)
					close(client.send)
					// Clean up empty rooms
					if len(clients) == 0 {
						delete(h.rooms, client.channel)
					}
				}
			}
			h.mu.Unlock()

		case event := <-h.broadcast:
			h.mu.Lock()
			clients := h.rooms[event.Channel]

			// Marshal event to JSON once
			message, err := json.Marshal(event.Event)
			if err != nil {
				h.mu.Unlock()
				continue
			}

			// Send to all clients subscribed to this channel
			for client := range clients {
				select {
				case client.send <- message:
				default:
					// Client's send buffer is full, close and unregister
					close(client.send)
					delete(h.rooms[event.Channel], client)
					if len(h.rooms[event.Channel]) == 0 {
						delete(h.rooms, event.Channel)
					}
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast sends an event to all clients subscribed to a channel.
// Delivery is best-effort: if the hub's buffer is full the event is
// dropped rather than blocking the caller. Subscribers reconcile by
// re-fetching authoritative state on reconnect.
func (h *Hub) Broadcast(channel string, event Event) {
	select {
	case h.broadcast <- &channelEvent{Channel: channel, Event: event}:
	default:
		log.Printf("ws: dropping %s on %s (hub buffer full)", event.Type, channel)
	}
}
