package database

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

type Branch struct {
	ID        int64
	Name      string
	Timezone  string
	CreatedAt time.Time
}

type Table struct {
	ID       int64
	BranchID int64
	Code     string
	Name     string
}

type DeliveryPartner struct {
	ID       int64
	BranchID int64
	Name     string
}

type User struct {
	ID           int64
	BranchID     int64
	Name         string
	Email        string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
}

type Product struct {
	ID        int64
	BranchID  int64
	Name      string
	Price     pgtype.Numeric
	Available bool
}

type Modifier struct {
	ID        int64
	ProductID int64
	Name      string
	Price     pgtype.Numeric
}

type Order struct {
	ID                int64
	BranchID          int64
	TableID           pgtype.Int8
	DeliveryPartnerID pgtype.Int8
	CreatedBy         pgtype.Int8
	OrderType         string
	Status            string
	Subtotal          pgtype.Numeric
	DiscountAmount    pgtype.Numeric
	TotalAmount       pgtype.Numeric
	DailySequence     int32
	SequenceDate      pgtype.Date
	CookingStartedAt  pgtype.Timestamptz
	ReadyAt           pgtype.Timestamptz
	PaidAt            pgtype.Timestamptz
	PrepMinutes       pgtype.Int4
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type OrderItem struct {
	ID          int64
	OrderID     int64
	ProductID   int64
	ProductName string
	Quantity    int32
	UnitPrice   pgtype.Numeric
	Subtotal    pgtype.Numeric
	Remark      pgtype.Text
}

type OrderItemModifier struct {
	ID          int64
	OrderItemID int64
	ModifierID  int64
	Name        string
	Price       pgtype.Numeric
}

type Payment struct {
	ID              int64
	OrderID         int64
	PaymentMethod   string
	Amount          pgtype.Numeric
	AmountReceived  pgtype.Numeric
	ChangeAmount    pgtype.Numeric
	ReferenceNumber pgtype.Text
	Status          string
	ProcessedBy     int64
	ProcessedAt     time.Time
}
