package repository

import "context"

// AddressBook answers address ownership lookups.
type AddressBook interface {
	Owns(ctx context.Context, userID, addressID int64) (bool, error)
}

// CartStore clears the user's persisted cart after checkout.
type CartStore interface {
	Clear(ctx context.Context, userID int64) error
}
