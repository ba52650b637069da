package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus describes order lifecycle.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusPaid       OrderStatus = "PAID"
	OrderStatusShipped    OrderStatus = "SHIPPED"
	OrderStatusDelivered  OrderStatus = "DELIVERED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
)

// OrderItem is a purchased line with its price frozen at checkout.
type OrderItem struct {
	ProductID int64
	Quantity  int64
	UnitPrice decimal.Decimal
}

// LineTotal returns price multiplied by quantity.
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(i.Quantity))
}

// Totals holds the derived monetary fields of an order.
type Totals struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Shipping decimal.Decimal
	Total    decimal.Decimal
}

// Order is created once per successful checkout. Only Status and DeliveredAt change afterwards.
type Order struct {
	ID          int64
	Number      string
	UserID      int64
	AddressID   int64
	Items       []OrderItem
	Currency    string
	Totals      Totals
	Status      OrderStatus
	CreatedAt   time.Time
	DeliveredAt *time.Time
}

// Consistent verifies total = subtotal + tax + shipping and subtotal = sum of line totals.
func (o *Order) Consistent() bool {
	sum := decimal.Zero
	for _, item := range o.Items {
		sum = sum.Add(item.LineTotal())
	}
	if !sum.Equal(o.Totals.Subtotal) {
		return false
	}
	return o.Totals.Subtotal.Add(o.Totals.Tax).Add(o.Totals.Shipping).Equal(o.Totals.Total)
}
