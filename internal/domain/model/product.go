package model

import "time"

// StockRecord is the per-product available quantity tracked by the inventory ledger.
type StockRecord struct {
	ProductID int64
	Available int64
	Version   int64
	UpdatedAt time.Time
}

// Reservation is a confirmed hold against a product's available quantity.
// Stock is decremented when the reservation is created.
type Reservation struct {
	ID        string
	ProductID int64
	Quantity  int64
	CreatedAt time.Time
}
