package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartItem is one cart line with the price quoted by the catalog.
type CartItem struct {
	ProductID int64           `json:"product_id" binding:"required"`
	Quantity  int64           `json:"quantity" binding:"required"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// CheckoutRequest describes checkout payload.
type CheckoutRequest struct {
	AddressID int64      `json:"address_id" binding:"required"`
	Items     []CartItem `json:"items"`
}

// OrderItemResponse is a purchased line with its frozen price.
type OrderItemResponse struct {
	ProductID int64  `json:"product_id"`
	Quantity  int64  `json:"quantity"`
	UnitPrice string `json:"unit_price"`
}

// OrderResponse describes an order returned to the client.
type OrderResponse struct {
	Number      string              `json:"number"`
	Status      string              `json:"status"`
	AddressID   int64               `json:"address_id"`
	Items       []OrderItemResponse `json:"items"`
	Currency    string              `json:"currency"`
	Subtotal    string              `json:"subtotal"`
	Tax         string              `json:"tax"`
	Shipping    string              `json:"shipping"`
	Total       string              `json:"total"`
	CreatedAt   time.Time           `json:"created_at"`
	DeliveredAt *time.Time          `json:"delivered_at,omitempty"`
}
