package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	domainErrors "github.com/polkiloo/gophercheckout/internal/domain/errors"
	"github.com/polkiloo/gophercheckout/internal/domain/model"
	"github.com/polkiloo/gophercheckout/internal/domain/repository"
)

// Store keeps every repository in process memory. Each mutation runs under the
// store lock, which gives the same check-and-write atomicity as the SQL statements.
type Store struct {
	mu sync.Mutex

	products  map[int64]*model.StockRecord
	addresses map[int64]int64
	carts     map[int64][]model.CartLine

	orders         map[int64]*model.Order
	ordersByNumber map[string]int64
	payments       map[int64]*model.Payment

	nextProductID int64
	nextAddressID int64
	nextOrderID   int64
	nextPaymentID int64

	now func() time.Time
}

var _ repository.Factory = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		products:       make(map[int64]*model.StockRecord),
		addresses:      make(map[int64]int64),
		carts:          make(map[int64][]model.CartLine),
		orders:         make(map[int64]*model.Order),
		ordersByNumber: make(map[string]int64),
		payments:       make(map[int64]*model.Payment),
		now:            time.Now,
	}
}

// WithClock replaces the time source used for created/updated timestamps.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// AddProduct registers a product with the given stock and returns its id.
func (s *Store) AddProduct(available int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextProductID++
	s.products[s.nextProductID] = &model.StockRecord{
		ProductID: s.nextProductID,
		Available: available,
		UpdatedAt: s.now(),
	}
	return s.nextProductID
}

// AddAddress registers an address owned by the user and returns its id.
func (s *Store) AddAddress(userID int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextAddressID++
	s.addresses[s.nextAddressID] = userID
	return s.nextAddressID
}

// PutCart stores the user's cart lines.
func (s *Store) PutCart(userID int64, lines []model.CartLine) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.carts[userID] = append([]model.CartLine(nil), lines...)
}

// Cart returns the user's stored cart lines.
func (s *Store) Cart(userID int64) []model.CartLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.CartLine(nil), s.carts[userID]...)
}

func (s *Store) Inventory() repository.InventoryRepository { return &inventoryRepository{store: s} }
func (s *Store) Orders() repository.OrderRepository        { return &orderRepository{store: s} }
func (s *Store) Payments() repository.PaymentRepository    { return &paymentRepository{store: s} }
func (s *Store) Addresses() repository.AddressBook         { return &addressBook{store: s} }
func (s *Store) Carts() repository.CartStore               { return &cartStore{store: s} }

// HealthCheck always succeeds.
func (s *Store) HealthCheck(context.Context) error { return nil }

// Close is a no-op.
func (s *Store) Close() {}

type inventoryRepository struct {
	store *Store
}

func (r *inventoryRepository) Decrement(_ context.Context, productID, quantity int64) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.products[productID]
	if !ok || rec.Available < quantity {
		return domainErrors.ErrInsufficientStock
	}
	rec.Available -= quantity
	rec.Version++
	rec.UpdatedAt = s.now()
	return nil
}

func (r *inventoryRepository) Increment(_ context.Context, productID, quantity int64) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.products[productID]
	if !ok {
		return domainErrors.ErrNotFound
	}
	rec.Available += quantity
	rec.Version++
	rec.UpdatedAt = s.now()
	return nil
}

func (r *inventoryRepository) Get(_ context.Context, productID int64) (*model.StockRecord, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.products[productID]
	if !ok {
		return nil, domainErrors.ErrNotFound
	}
	copied := *rec
	return &copied, nil
}

type orderRepository struct {
	store *Store
}

func cloneOrder(o *model.Order) *model.Order {
	c := *o
	c.Items = append([]model.OrderItem(nil), o.Items...)
	if o.DeliveredAt != nil {
		at := *o.DeliveredAt
		c.DeliveredAt = &at
	}
	return &c
}

func (r *orderRepository) Create(_ context.Context, order *model.Order) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.ordersByNumber[order.Number]; exists {
		return domainErrors.ErrAlreadyExists
	}
	s.nextOrderID++
	order.ID = s.nextOrderID
	order.CreatedAt = s.now()
	s.orders[order.ID] = cloneOrder(order)
	s.ordersByNumber[order.Number] = order.ID
	return nil
}

func (r *orderRepository) GetByID(_ context.Context, id int64) (*model.Order, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[id]
	if !ok {
		return nil, domainErrors.ErrNotFound
	}
	return cloneOrder(o), nil
}

func (r *orderRepository) GetByNumber(ctx context.Context, number string) (*model.Order, error) {
	r.store.mu.Lock()
	id, ok := r.store.ordersByNumber[number]
	r.store.mu.Unlock()
	if !ok {
		return nil, domainErrors.ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *orderRepository) UpdateStatus(_ context.Context, orderID int64, from, to model.OrderStatus) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[orderID]
	if !ok {
		return domainErrors.ErrNotFound
	}
	if o.Status != from {
		return domainErrors.ErrStateConflict
	}
	o.Status = to
	if to == model.OrderStatusDelivered {
		at := s.now()
		o.DeliveredAt = &at
	}
	return nil
}

type paymentRepository struct {
	store *Store
}

func clonePayment(p *model.Payment) *model.Payment {
	c := *p
	if p.GatewayReference != nil {
		ref := *p.GatewayReference
		c.GatewayReference = &ref
	}
	if p.FailureReason != nil {
		reason := *p.FailureReason
		c.FailureReason = &reason
	}
	if p.RefundAmount != nil {
		amount := *p.RefundAmount
		c.RefundAmount = &amount
	}
	if p.RefundedAt != nil {
		at := *p.RefundedAt
		c.RefundedAt = &at
	}
	return &c
}

func (r *paymentRepository) Create(_ context.Context, payment *model.Payment) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.payments {
		if existing.TransactionID == payment.TransactionID {
			return domainErrors.ErrAlreadyExists
		}
		if existing.OrderID == payment.OrderID && existing.Status.Active() && payment.Status.Active() {
			return domainErrors.ErrAlreadyExists
		}
	}

	s.nextPaymentID++
	now := s.now()
	payment.ID = s.nextPaymentID
	payment.CreatedAt = now
	payment.UpdatedAt = now
	s.payments[payment.ID] = clonePayment(payment)
	return nil
}

func (r *paymentRepository) GetByID(_ context.Context, id int64) (*model.Payment, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.payments[id]
	if !ok {
		return nil, domainErrors.ErrNotFound
	}
	return clonePayment(p), nil
}

func (r *paymentRepository) find(match func(*model.Payment) bool) (*model.Payment, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	var found *model.Payment
	for _, p := range s.payments {
		if !match(p) {
			continue
		}
		if found == nil || p.CreatedAt.After(found.CreatedAt) || (p.CreatedAt.Equal(found.CreatedAt) && p.ID > found.ID) {
			found = p
		}
	}
	if found == nil {
		return nil, domainErrors.ErrNotFound
	}
	return clonePayment(found), nil
}

func (r *paymentRepository) GetByTransactionID(_ context.Context, transactionID string) (*model.Payment, error) {
	return r.find(func(p *model.Payment) bool { return p.TransactionID == transactionID })
}

func (r *paymentRepository) GetByGatewayReference(_ context.Context, method model.PaymentMethod, reference string) (*model.Payment, error) {
	return r.find(func(p *model.Payment) bool {
		return p.Method == method && p.GatewayReference != nil && *p.GatewayReference == reference
	})
}

func (r *paymentRepository) FindRecent(_ context.Context, orderID int64, amount decimal.Decimal, since time.Time) (*model.Payment, error) {
	return r.find(func(p *model.Payment) bool {
		return p.OrderID == orderID &&
			p.Amount.Equal(amount) &&
			!p.CreatedAt.Before(since) &&
			(p.Status.Active() || p.Status == model.PaymentStatusCompleted)
	})
}

func (r *paymentRepository) FindActive(_ context.Context, orderID int64) (*model.Payment, error) {
	return r.find(func(p *model.Payment) bool { return p.OrderID == orderID && p.Status.Active() })
}

func (r *paymentRepository) Transition(_ context.Context, paymentID int64, t model.PaymentTransition) (*model.Payment, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.payments[paymentID]
	if !ok {
		return nil, domainErrors.ErrNotFound
	}
	if p.Status != t.From {
		return nil, domainErrors.ErrStateConflict
	}
	if t.ExpectedRefund != nil && !p.Refunded().Equal(*t.ExpectedRefund) {
		return nil, domainErrors.ErrStateConflict
	}

	p.Status = t.To
	if t.GatewayReference != nil {
		ref := *t.GatewayReference
		p.GatewayReference = &ref
	}
	if t.FailureReason != nil {
		reason := *t.FailureReason
		p.FailureReason = &reason
	}
	if t.RefundAmount != nil {
		amount := *t.RefundAmount
		p.RefundAmount = &amount
	}
	if t.RefundedAt != nil {
		at := *t.RefundedAt
		p.RefundedAt = &at
	}
	if t.ClearRefund {
		p.RefundAmount = nil
		p.RefundedAt = nil
	}
	p.UpdatedAt = s.now()
	return clonePayment(p), nil
}

func (r *paymentRepository) ListProcessing(_ context.Context, createdBefore time.Time, limit int) ([]model.Payment, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []model.Payment
	for _, p := range s.payments {
		if p.Status == model.PaymentStatusProcessing && !p.CreatedAt.After(createdBefore) {
			result = append(result, *clonePayment(p))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

type addressBook struct {
	store *Store
}

func (a *addressBook) Owns(_ context.Context, userID, addressID int64) (bool, error) {
	a.store.mu.Lock()
	defer a.store.mu.Unlock()
	owner, ok := a.store.addresses[addressID]
	return ok && owner == userID, nil
}

type cartStore struct {
	store *Store
}

func (c *cartStore) Clear(_ context.Context, userID int64) error {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	delete(c.store.carts, userID)
	return nil
}
