package enum

// ── Order lifecycle (CHECK constrained in DB) ──

const (
	OrderStatusPending   = "PENDING"
	OrderStatusConfirmed = "CONFIRMED"
	OrderStatusCooking   = "COOKING"
	OrderStatusReady     = "READY"
	OrderStatusInService = "IN_SERVICE"
	OrderStatusPaid      = "PAID"
	OrderStatusCancelled = "CANCELLED"
)

// OrderStatuses lists every valid status in lifecycle order.
var OrderStatuses = []string{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusCooking,
	OrderStatusReady,
	OrderStatusInService,
	OrderStatusPaid,
	OrderStatusCancelled,
}

// StatusRank gives the position of a status along the forward path.
// CANCELLED ranks last so "least advanced" comparisons never pick it.
var StatusRank = map[string]int{
	OrderStatusPending:   0,
	OrderStatusConfirmed: 1,
	OrderStatusCooking:   2,
	OrderStatusReady:     3,
	OrderStatusInService: 4,
	OrderStatusPaid:      5,
	OrderStatusCancelled: 6,
}

// IsTerminalStatus reports whether no further transitions are allowed.
func IsTerminalStatus(s string) bool {
	return s == OrderStatusPaid || s == OrderStatusCancelled
}

const (
	PaymentStatusPending   = "PENDING"
	PaymentStatusCompleted = "COMPLETED"
	PaymentStatusFailed    = "FAILED"
)

// ── Roles and order types (CHECK constrained in DB) ──

const (
	UserRoleOwner   = "OWNER"
	UserRoleManager = "MANAGER"
	UserRoleCashier = "CASHIER"
	UserRoleKitchen = "KITCHEN"
)

const (
	OrderTypeWalkIn   = "WALK_IN"
	OrderTypeQRScan   = "QR_SCAN"
	OrderTypeTakeaway = "TAKEAWAY"
	OrderTypeDelivery = "DELIVERY"
)

// ── Configurable labels (no DB constraint) ──

const (
	PaymentMethodCash     = "CASH"
	PaymentMethodQRIS     = "QRIS"
	PaymentMethodTransfer = "TRANSFER"
	PaymentMethodCard     = "CARD"
)
