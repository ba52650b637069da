package model

import "github.com/shopspring/decimal"

// CartLine is a single product line captured at snapshot time.
type CartLine struct {
	ProductID int64
	Quantity  int64
	UnitPrice decimal.Decimal
}

// CartSnapshot is an immutable view of the user's cart handed to checkout.
type CartSnapshot struct {
	Lines []CartLine
}

// Empty reports whether the snapshot holds no lines.
func (c CartSnapshot) Empty() bool {
	return len(c.Lines) == 0
}
