package service

import (
	"fmt"

	"github.com/dapur-pos/api/internal/enum"
)

// ValidateTransition checks whether an order may move from current to
// next. Any forward move along the lifecycle path is allowed, including
// skips over intermediate statuses (a rushed order can go straight from
// PENDING to COOKING, or to READY without an explicit COOKING step).
// CANCELLED is reachable from every non-terminal status. Backward moves
// and re-entering the current status are rejected; READY -> COOKING is
// handled separately by Reopen and deliberately absent here.
func ValidateTransition(current, next string) error {
	curRank, ok := enum.StatusRank[current]
	if !ok || enum.IsTerminalStatus(current) {
		return fmt.Errorf("%w: cannot transition from %s", ErrInvalidTransition, current)
	}
	if next == enum.OrderStatusCancelled {
		return nil
	}
	nextRank, ok := enum.StatusRank[next]
	if !ok || nextRank <= curRank {
		return fmt.Errorf("%w: cannot transition from %s to %s", ErrInvalidTransition, current, next)
	}
	return nil
}

// IsValidStatus reports whether s names a known order status.
func IsValidStatus(s string) bool {
	_, ok := enum.StatusRank[s]
	return ok
}
