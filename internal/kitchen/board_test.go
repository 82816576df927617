package kitchen

import (
	"testing"

	"github.com/dapur-pos/api/internal/enum"
	"github.com/dapur-pos/api/internal/service"
)

func order(id int64, seq int32, status string) service.OrderPayload {
	return service.OrderPayload{ID: id, DailySequence: seq, Status: status}
}

func tableOrder(id int64, seq int32, status, table string) service.OrderPayload {
	o := order(id, seq, status)
	o.TableName = table
	return o
}

func TestBoard_SnapshotDedupes(t *testing.T) {
	b := NewBoard([]service.OrderPayload{
		order(1, 1, enum.OrderStatusPending),
		order(1, 1, enum.OrderStatusPending),
		order(2, 2, enum.OrderStatusCooking),
	}, 2)

	if got := len(b.Orders()); got != 2 {
		t.Fatalf("orders = %d, want 2", got)
	}
}

func TestApplyCreated_DuplicateIgnored(t *testing.T) {
	b := NewBoard(nil, 0)
	b.ApplyCreated(order(1, 1, enum.OrderStatusPending))
	b.ApplyCreated(order(1, 1, enum.OrderStatusPending))

	if got := len(b.Orders()); got != 1 {
		t.Fatalf("orders = %d, want 1", got)
	}
}

func TestApplyCreated_PrependsNewest(t *testing.T) {
	b := NewBoard([]service.OrderPayload{order(1, 1, enum.OrderStatusPending)}, 1)
	b.ApplyCreated(order(2, 2, enum.OrderStatusPending))

	orders := b.Orders()
	if orders[0].ID != 2 || orders[1].ID != 1 {
		t.Fatalf("order ids = %d,%d, want 2,1", orders[0].ID, orders[1].ID)
	}
}

func TestApplyCreated_LocalNumberingContinuesFromTotal(t *testing.T) {
	// 5 tickets already issued today; an event arrives without a sequence
	b := NewBoard(nil, 5)
	b.ApplyCreated(order(10, 0, enum.OrderStatusPending))
	b.ApplyCreated(order(11, 0, enum.OrderStatusPending))

	orders := b.Orders()
	if orders[1].DailySequence != 6 || orders[0].DailySequence != 7 {
		t.Fatalf("sequences = %d,%d, want 6,7", orders[1].DailySequence, orders[0].DailySequence)
	}
}

func TestApplyCreated_ServerSequencePreferred(t *testing.T) {
	b := NewBoard(nil, 5)
	b.ApplyCreated(order(10, 9, enum.OrderStatusPending))
	// local numbering resumes past the highest server number seen
	b.ApplyCreated(order(11, 0, enum.OrderStatusPending))

	orders := b.Orders()
	if orders[1].DailySequence != 9 {
		t.Fatalf("sequence = %d, want server-assigned 9", orders[1].DailySequence)
	}
	if orders[0].DailySequence != 10 {
		t.Fatalf("fallback sequence = %d, want 10", orders[0].DailySequence)
	}
}

func TestApplyUpdated_ReplacesInPlace(t *testing.T) {
	b := NewBoard([]service.OrderPayload{order(1, 1, enum.OrderStatusPending)}, 1)
	b.ApplyUpdated(order(1, 1, enum.OrderStatusCooking))

	orders := b.Orders()
	if len(orders) != 1 || orders[0].Status != enum.OrderStatusCooking {
		t.Fatalf("orders = %+v, want one COOKING order", orders)
	}
}

func TestApplyUpdated_RemovesFinishedTickets(t *testing.T) {
	for _, status := range []string{
		enum.OrderStatusReady, enum.OrderStatusInService,
		enum.OrderStatusPaid, enum.OrderStatusCancelled,
	} {
		b := NewBoard([]service.OrderPayload{order(1, 1, enum.OrderStatusCooking)}, 1)
		b.ApplyUpdated(order(1, 1, status))
		if got := len(b.Orders()); got != 0 {
			t.Errorf("%s: orders = %d, want 0", status, got)
		}
	}
}

func TestApplyUpdated_UnknownOrderIgnored(t *testing.T) {
	b := NewBoard([]service.OrderPayload{order(1, 1, enum.OrderStatusPending)}, 1)
	b.ApplyUpdated(order(99, 7, enum.OrderStatusCooking))

	if got := len(b.Orders()); got != 1 {
		t.Fatalf("orders = %d, want 1", got)
	}
}

func TestGroups_ByTable(t *testing.T) {
	b := NewBoard([]service.OrderPayload{
		tableOrder(1, 1, enum.OrderStatusPending, "Table 5"),
		tableOrder(2, 2, enum.OrderStatusConfirmed, "Table 5"),
		tableOrder(3, 3, enum.OrderStatusPending, "Table 7"),
	}, 3)

	groups := b.Groups()
	if len(groups) != 2 {
		t.Fatalf("groups = %d, want 2", len(groups))
	}
	for _, g := range groups {
		if g.Key == "Table 5" {
			if len(g.OrderIDs) != 2 {
				t.Errorf("Table 5 has %d orders, want 2", len(g.OrderIDs))
			}
			if g.Sequences[0] != 1 || g.Sequences[1] != 2 {
				t.Errorf("Table 5 sequences = %v, want [1 2]", g.Sequences)
			}
		}
	}
}

func TestGroups_CookingWins(t *testing.T) {
	b := NewBoard([]service.OrderPayload{
		tableOrder(1, 1, enum.OrderStatusPending, "Table 5"),
		tableOrder(2, 2, enum.OrderStatusCooking, "Table 5"),
	}, 2)

	groups := b.Groups()
	if groups[0].Status != enum.OrderStatusCooking {
		t.Fatalf("group status = %s, want COOKING", groups[0].Status)
	}
}

func TestGroups_LeastAdvancedOtherwise(t *testing.T) {
	b := NewBoard([]service.OrderPayload{
		tableOrder(1, 1, enum.OrderStatusConfirmed, "Table 5"),
		tableOrder(2, 2, enum.OrderStatusPending, "Table 5"),
	}, 2)

	groups := b.Groups()
	if groups[0].Status != enum.OrderStatusPending {
		t.Fatalf("group status = %s, want PENDING", groups[0].Status)
	}
}

func TestGroups_UnboundTicketsStandAlone(t *testing.T) {
	b := NewBoard([]service.OrderPayload{
		order(1, 1, enum.OrderStatusPending),
		order(2, 2, enum.OrderStatusPending),
	}, 2)

	if got := len(b.Groups()); got != 2 {
		t.Fatalf("groups = %d, want 2", got)
	}
}
