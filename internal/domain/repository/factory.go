package repository

import "context"

// Factory describes access to different domain repositories.
type Factory interface {
	Inventory() InventoryRepository
	Orders() OrderRepository
	Payments() PaymentRepository
	Addresses() AddressBook
	Carts() CartStore
	HealthCheck(ctx context.Context) error
	Close()
}
