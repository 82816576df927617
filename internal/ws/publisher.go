package ws

import (
	"encoding/json"
	"log"
)

// Publisher fans order lifecycle events out to hub channels.
// Delivery is at-most-once and best-effort: marshal or buffer failures
// are logged and dropped, never surfaced to the request path.
type Publisher struct {
	hub *Hub
}

func NewPublisher(hub *Hub) *Publisher {
	return &Publisher{hub: hub}
}

// OrderCreated publishes to the branch channel only; an order that was
// just created has no subscribers on its own channel yet.
func (p *Publisher) OrderCreated(branchID int64, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		log.Printf("ws: marshal %s payload: %v", EventOrderCreated, err)
		return
	}
	p.hub.Broadcast(BranchChannel(branchID), Event{Type: EventOrderCreated, Payload: raw})
}

// OrderUpdated publishes to both the branch channel (staff dashboards)
// and the order channel (customer status page).
func (p *Publisher) OrderUpdated(branchID, orderID int64, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		log.Printf("ws: marshal %s payload: %v", EventOrderUpdated, err)
		return
	}
	event := Event{Type: EventOrderUpdated, Payload: raw}
	p.hub.Broadcast(BranchChannel(branchID), event)
	p.hub.Broadcast(OrderChannel(orderID), event)
}
