package service

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/dapur-pos/api/internal/database"
)

// OrderDetail is an order with its items and resolved relation names.
type OrderDetail struct {
	Order               database.Order
	Items               []OrderItemDetail
	TableName           string
	DeliveryPartnerName string
}

// OrderItemDetail pairs an order item with its modifier snapshots.
type OrderItemDetail struct {
	Item      database.OrderItem
	Modifiers []database.OrderItemModifier
}

// OrderPayload is the wire shape of an order, shared by HTTP responses
// and broadcast events so every view renders from the same fields.
type OrderPayload struct {
	ID                  int64              `json:"id"`
	BranchID            int64              `json:"branch_id"`
	DailySequence       int32              `json:"daily_sequence"`
	SequenceDate        string             `json:"sequence_date"`
	OrderType           string             `json:"order_type"`
	Status              string             `json:"status"`
	TableID             *int64             `json:"table_id,omitempty"`
	TableName           string             `json:"table_name,omitempty"`
	DeliveryPartnerID   *int64             `json:"delivery_partner_id,omitempty"`
	DeliveryPartnerName string             `json:"delivery_partner_name,omitempty"`
	Subtotal            string             `json:"subtotal"`
	DiscountAmount      string             `json:"discount_amount"`
	TotalAmount         string             `json:"total_amount"`
	PrepMinutes         *int32             `json:"prep_minutes,omitempty"`
	CookingStartedAt    *time.Time         `json:"cooking_started_at,omitempty"`
	ReadyAt             *time.Time         `json:"ready_at,omitempty"`
	PaidAt              *time.Time         `json:"paid_at,omitempty"`
	CreatedAt           time.Time          `json:"created_at"`
	UpdatedAt           time.Time          `json:"updated_at"`
	Items               []OrderItemPayload `json:"items"`
}

// OrderItemPayload is the wire shape of a single line item.
type OrderItemPayload struct {
	ID          int64             `json:"id"`
	ProductID   int64             `json:"product_id"`
	ProductName string            `json:"product_name"`
	Quantity    int32             `json:"quantity"`
	UnitPrice   string            `json:"unit_price"`
	Subtotal    string            `json:"subtotal"`
	Remark      string            `json:"remark,omitempty"`
	Modifiers   []ModifierPayload `json:"modifiers,omitempty"`
}

// ModifierPayload is a modifier snapshot on a line item.
type ModifierPayload struct {
	ID         int64  `json:"id"`
	ModifierID int64  `json:"modifier_id"`
	Name       string `json:"name"`
	Price      string `json:"price"`
}

// UpdateEvent is the payload of an order.updated broadcast. Carrying
// the full order lets subscribers replace their copy wholesale instead
// of patching fields.
type UpdateEvent struct {
	OrderID int64        `json:"order_id"`
	Status  string       `json:"status"`
	Order   OrderPayload `json:"order"`
}

// ToOrderPayload flattens an OrderDetail for JSON encoding.
func ToOrderPayload(d *OrderDetail) OrderPayload {
	o := d.Order
	p := OrderPayload{
		ID:                  o.ID,
		BranchID:            o.BranchID,
		DailySequence:       o.DailySequence,
		OrderType:           o.OrderType,
		Status:              o.Status,
		TableName:           d.TableName,
		DeliveryPartnerName: d.DeliveryPartnerName,
		Subtotal:            numericToString(o.Subtotal),
		DiscountAmount:      numericToString(o.DiscountAmount),
		TotalAmount:         numericToString(o.TotalAmount),
		CreatedAt:           o.CreatedAt,
		UpdatedAt:           o.UpdatedAt,
		Items:               make([]OrderItemPayload, 0, len(d.Items)),
	}

	if o.SequenceDate.Valid {
		p.SequenceDate = o.SequenceDate.Time.Format("2006-01-02")
	}
	if o.TableID.Valid {
		p.TableID = &o.TableID.Int64
	}
	if o.DeliveryPartnerID.Valid {
		p.DeliveryPartnerID = &o.DeliveryPartnerID.Int64
	}
	if o.PrepMinutes.Valid {
		p.PrepMinutes = &o.PrepMinutes.Int32
	}
	if o.CookingStartedAt.Valid {
		t := o.CookingStartedAt.Time
		p.CookingStartedAt = &t
	}
	if o.ReadyAt.Valid {
		t := o.ReadyAt.Time
		p.ReadyAt = &t
	}
	if o.PaidAt.Valid {
		t := o.PaidAt.Time
		p.PaidAt = &t
	}

	for _, it := range d.Items {
		ip := OrderItemPayload{
			ID:          it.Item.ID,
			ProductID:   it.Item.ProductID,
			ProductName: it.Item.ProductName,
			Quantity:    it.Item.Quantity,
			UnitPrice:   numericToString(it.Item.UnitPrice),
			Subtotal:    numericToString(it.Item.Subtotal),
		}
		if it.Item.Remark.Valid {
			ip.Remark = it.Item.Remark.String
		}
		for _, m := range it.Modifiers {
			ip.Modifiers = append(ip.Modifiers, ModifierPayload{
				ID:         m.ID,
				ModifierID: m.ModifierID,
				Name:       m.Name,
				Price:      numericToString(m.Price),
			})
		}
		p.Items = append(p.Items, ip)
	}

	return p
}

// ToUpdateEvent builds the order.updated broadcast payload.
func ToUpdateEvent(d *OrderDetail) UpdateEvent {
	return UpdateEvent{
		OrderID: d.Order.ID,
		Status:  d.Order.Status,
		Order:   ToOrderPayload(d),
	}
}

func numericToString(n pgtype.Numeric) string {
	return numericToDecimal(n).StringFixed(2)
}
