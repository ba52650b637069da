package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/polkiloo/gophercheckout/internal/adapter/gateway"
	"github.com/polkiloo/gophercheckout/internal/config"
	"github.com/polkiloo/gophercheckout/internal/domain/model"
	"github.com/polkiloo/gophercheckout/internal/storage/memory"
	"github.com/polkiloo/gophercheckout/internal/test"
)

const testUser int64 = 7

type fixture struct {
	store      *memory.Store
	cfg        *config.Config
	events     *test.EventRecorder
	ledger     *InventoryLedger
	assembler  *OrderAssembler
	payments   *PaymentOrchestrator
	reconciler *StatusReconciler
	projector  *OrderStatusProjector
}

func testConfig() *config.Config {
	return &config.Config{
		Currency:            "USD",
		TaxRate:             decimal.RequireFromString("0.10"),
		ShippingFee:         decimal.RequireFromString("2.00"),
		DuplicateWindow:     5 * time.Minute,
		PaymentTimeout:      10 * time.Minute,
		GatewayTimeout:      5 * time.Millisecond,
		GatewayMaxRetries:   2,
		GatewayRetryBackoff: time.Millisecond,
	}
}

func newFixture(t *testing.T, adapters ...gateway.Adapter) *fixture {
	t.Helper()
	return newFixtureWithConfig(t, nil, adapters...)
}

func newFixtureWithConfig(t *testing.T, mutate func(*config.Config), adapters ...gateway.Adapter) *fixture {
	t.Helper()

	cfg := testConfig()
	if mutate != nil {
		mutate(cfg)
	}
	registry, err := gateway.NewRegistry(adapters...)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}

	store := memory.New()
	logger := test.DiscardLogger()
	recorder := &test.EventRecorder{}
	projector := NewOrderStatusProjector(store.Orders(), store.Payments(), logger)
	recorder.Subscribe(projector.Handle)

	ledger := NewInventoryLedger(store.Inventory(), logger)
	return &fixture{
		store:      store,
		cfg:        cfg,
		events:     recorder,
		ledger:     ledger,
		assembler:  NewOrderAssembler(ledger, store.Orders(), store.Payments(), store.Addresses(), store.Carts(), cfg, nil, logger),
		payments:   NewPaymentOrchestrator(store.Orders(), store.Payments(), registry, recorder, cfg, nil, logger),
		reconciler: NewStatusReconciler(store.Payments(), registry, recorder, cfg, nil, logger),
		projector:  projector,
	}
}

func line(productID, quantity int64, price string) model.CartLine {
	return model.CartLine{ProductID: productID, Quantity: quantity, UnitPrice: decimal.RequireFromString(price)}
}

// placeOrder checks out the lines for testUser and fails the test on error.
func (f *fixture) placeOrder(t *testing.T, lines ...model.CartLine) *model.Order {
	t.Helper()
	address := f.store.AddAddress(testUser)
	order, err := f.assembler.Checkout(context.Background(), testUser, model.CartSnapshot{Lines: lines}, address)
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	return order
}

func (f *fixture) order(t *testing.T, number string) *model.Order {
	t.Helper()
	order, err := f.store.Orders().GetByNumber(context.Background(), number)
	if err != nil {
		t.Fatalf("load order %s: %v", number, err)
	}
	return order
}

func (f *fixture) available(t *testing.T, productID int64) int64 {
	t.Helper()
	rec, err := f.ledger.Stock(context.Background(), productID)
	if err != nil {
		t.Fatalf("stock %d: %v", productID, err)
	}
	return rec.Available
}

func payRequest(order *model.Order, method model.PaymentMethod) model.PaymentRequest {
	return model.PaymentRequest{
		OrderNumber: order.Number,
		Method:      method,
		Amount:      order.Totals.Total,
		Currency:    order.Currency,
	}
}

func shiftClock(d time.Duration) func() time.Time {
	return func() time.Time { return time.Now().Add(d) }
}
