// Package kitchen maintains the client-side state of a kitchen display:
// a snapshot of active orders kept current by applying broadcast events,
// deduplicated and ordered by the ticket sequence.
package kitchen

import (
	"fmt"
	"sort"
	"sync"

	"github.com/dapur-pos/api/internal/enum"
	"github.com/dapur-pos/api/internal/service"
)

// Board holds the active orders a kitchen display renders. Orders enter
// via the initial snapshot or order.created events, move through
// order.updated events, and leave once they advance past COOKING.
type Board struct {
	mu      sync.Mutex
	orders  []service.OrderPayload
	seen    map[int64]bool
	nextSeq int32 // session-local fallback when an event carries no sequence
}

// NewBoard seeds a board from a kitchen snapshot. totalCount is the
// number of tickets already issued today; local numbering for sequence-
// less events continues from there.
func NewBoard(snapshot []service.OrderPayload, totalCount int32) *Board {
	b := &Board{
		seen:    make(map[int64]bool, len(snapshot)),
		nextSeq: totalCount + 1,
	}
	for _, o := range snapshot {
		if b.seen[o.ID] {
			continue
		}
		b.seen[o.ID] = true
		b.orders = append(b.orders, o)
	}
	return b
}

// ApplyCreated adds a new order from an order.created event. A replayed
// or duplicate event for an order already on the board is ignored. When
// the event carries no daily sequence the board assigns the next local
// number so the ticket is still displayable.
func (b *Board) ApplyCreated(order service.OrderPayload) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.seen[order.ID] {
		return
	}
	b.seen[order.ID] = true

	if order.DailySequence == 0 {
		order.DailySequence = b.nextSeq
		b.nextSeq++
	} else if order.DailySequence >= b.nextSeq {
		b.nextSeq = order.DailySequence + 1
	}

	// newest first
	b.orders = append([]service.OrderPayload{order}, b.orders...)
}

// ApplyUpdated replaces an order in place from an order.updated event.
// Orders that advanced past the kitchen's active statuses are removed.
// Updates for orders the board never saw are ignored; the next snapshot
// refetch reconciles them.
func (b *Board) ApplyUpdated(order service.OrderPayload) {
	b.mu.Lock()
	defer b.mu.Unlock()

	idx := -1
	for i, o := range b.orders {
		if o.ID == order.ID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return
	}

	if isKitchenActive(order.Status) {
		b.orders[idx] = order
		return
	}
	b.orders = append(b.orders[:idx], b.orders[idx+1:]...)
	delete(b.seen, order.ID)
}

// Orders returns a copy of the current board, newest first.
func (b *Board) Orders() []service.OrderPayload {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]service.OrderPayload, len(b.orders))
	copy(out, b.orders)
	return out
}

// Group is a set of tickets sharing one destination (a table or a
// delivery partner), rendered as a single card on the display.
type Group struct {
	Key       string // destination label
	Status    string // combined status for the card
	OrderIDs  []int64
	Sequences []int32
}

// Groups clusters the active orders by destination. A group's status is
// COOKING when any constituent is COOKING; otherwise it follows the
// least-advanced constituent, so the card never claims more progress
// than its slowest ticket.
func (b *Board) Groups() []Group {
	b.mu.Lock()
	defer b.mu.Unlock()

	byKey := make(map[string]*Group)
	var order []string

	for _, o := range b.orders {
		key := groupKey(o)
		g, ok := byKey[key]
		if !ok {
			g = &Group{Key: key, Status: o.Status}
			byKey[key] = g
			order = append(order, key)
		}
		g.OrderIDs = append(g.OrderIDs, o.ID)
		g.Sequences = append(g.Sequences, o.DailySequence)
		g.Status = combineStatus(g.Status, o.Status)
	}

	groups := make([]Group, 0, len(byKey))
	for _, key := range order {
		g := byKey[key]
		sort.Slice(g.Sequences, func(i, j int) bool { return g.Sequences[i] < g.Sequences[j] })
		groups = append(groups, *g)
	}
	return groups
}

func groupKey(o service.OrderPayload) string {
	switch {
	case o.TableName != "":
		return o.TableName
	case o.TableID != nil:
		return fmt.Sprintf("table:%d", *o.TableID)
	case o.DeliveryPartnerName != "":
		return o.DeliveryPartnerName
	case o.DeliveryPartnerID != nil:
		return fmt.Sprintf("partner:%d", *o.DeliveryPartnerID)
	default:
		// takeaway and walk-in tickets without a table stand alone
		return fmt.Sprintf("order:%d", o.ID)
	}
}

func combineStatus(current, next string) string {
	if current == enum.OrderStatusCooking || next == enum.OrderStatusCooking {
		return enum.OrderStatusCooking
	}
	if enum.StatusRank[next] < enum.StatusRank[current] {
		return next
	}
	return current
}

// isKitchenActive reports whether a status still belongs on the board.
func isKitchenActive(status string) bool {
	switch status {
	case enum.OrderStatusPending, enum.OrderStatusConfirmed, enum.OrderStatusCooking:
		return true
	}
	return false
}
