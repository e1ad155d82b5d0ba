package mocks

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/example/storefront-core/internal/domain/cart"
	"github.com/example/storefront-core/internal/domain/inventory"
	"github.com/example/storefront-core/internal/domain/order"
	"github.com/example/storefront-core/internal/domain/user"
)

// MockStore is an in-memory implementation of the order, inventory, cart and
// user store contracts for testing. Conditional semantics match the real
// backends: status transitions are compare-and-set, stock adjustments enforce
// the zero floor, CancelAndRestock applies all writes or none.
type MockStore struct {
	mu       sync.RWMutex
	orders   map[string]*order.Order
	products map[string]*inventory.Product
	lines    map[string]*cart.Line
	users    map[string]*user.User

	// For tracking calls and injecting failures in tests
	TransitionCalls  []TransitionCall
	TransitionErr    error
	AdjustStockCalls []AdjustStockCall
	AdjustStockErr   error
	CancelCalls      []string
	CancelErr        error
	CancelErrFor     map[string]error
}

// TransitionCall records parameters passed to Transition
type TransitionCall struct {
	OrderID string
	From    order.Status
	To      order.Status
}

// AdjustStockCall records parameters passed to AdjustStock
type AdjustStockCall struct {
	ProductID string
	Size      string
	Delta     int
}

// NewMockStore creates a new MockStore
func NewMockStore() *MockStore {
	return &MockStore{
		orders:       make(map[string]*order.Order),
		products:     make(map[string]*inventory.Product),
		lines:        make(map[string]*cart.Line),
		users:        make(map[string]*user.User),
		CancelErrFor: make(map[string]error),
	}
}

func copyOrder(o *order.Order) *order.Order {
	c := *o
	c.Items = append([]order.LineItem(nil), o.Items...)
	return &c
}

func copyProduct(p *inventory.Product) *inventory.Product {
	c := *p
	c.Stock = make(map[string]int, len(p.Stock))
	for size, qty := range p.Stock {
		c.Stock[size] = qty
	}
	return &c
}

// Order store

func (m *MockStore) Create(ctx context.Context, o *order.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[o.ID]; ok {
		return fmt.Errorf("order %s already exists", o.ID)
	}
	m.orders[o.ID] = copyOrder(o)
	return nil
}

func (m *MockStore) Get(ctx context.Context, id string) (*order.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, order.ErrOrderNotFound
	}
	return copyOrder(o), nil
}

func (m *MockStore) GetByAppTransID(ctx context.Context, appTransID string) (*order.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, o := range m.orders {
		if o.AppTransID == appTransID {
			return copyOrder(o), nil
		}
	}
	return nil, order.ErrOrderNotFound
}

func (m *MockStore) SetAppTransID(ctx context.Context, orderID, appTransID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok {
		return order.ErrOrderNotFound
	}
	if o.AppTransID != "" {
		return order.ErrTransIDSet
	}
	o.AppTransID = appTransID
	return nil
}

func (m *MockStore) Transition(ctx context.Context, orderID string, from, to order.Status, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TransitionCalls = append(m.TransitionCalls, TransitionCall{OrderID: orderID, From: from, To: to})
	if m.TransitionErr != nil {
		return m.TransitionErr
	}
	o, ok := m.orders[orderID]
	if !ok {
		return order.ErrOrderNotFound
	}
	if o.Status != from {
		return order.ErrStatusConflict
	}
	o.Status = to
	o.UpdateTime = at
	return nil
}

func (m *MockStore) CancelAndRestock(ctx context.Context, orderID string, restock []order.LineItem, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CancelCalls = append(m.CancelCalls, orderID)
	if m.CancelErr != nil {
		return m.CancelErr
	}
	if err, ok := m.CancelErrFor[orderID]; ok {
		return err
	}
	o, ok := m.orders[orderID]
	if !ok {
		return order.ErrOrderNotFound
	}
	if o.Status != order.StatusAwaitingPayment {
		return order.ErrStatusConflict
	}
	for _, item := range restock {
		p, ok := m.products[item.ProductID]
		if !ok {
			return fmt.Errorf("%w: product %s size %s", inventory.ErrNotFound, item.ProductID, item.Size)
		}
		if _, ok := p.Stock[item.Size]; !ok {
			return fmt.Errorf("%w: product %s size %s", inventory.ErrNotFound, item.ProductID, item.Size)
		}
	}
	o.Status = order.StatusCancelled
	o.UpdateTime = at
	for _, item := range restock {
		m.products[item.ProductID].Stock[item.Size] += item.Quantity
	}
	return nil
}

func (m *MockStore) ListByUser(ctx context.Context, userID string) ([]*order.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var orders []*order.Order
	for _, o := range m.orders {
		if o.UserID == userID {
			orders = append(orders, copyOrder(o))
		}
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].OrderTime.After(orders[j].OrderTime) })
	return orders, nil
}

func (m *MockStore) ListAwaitingBefore(ctx context.Context, cutoff time.Time) ([]*order.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var orders []*order.Order
	for _, o := range m.orders {
		if o.Status == order.StatusAwaitingPayment && !o.OrderTime.After(cutoff) {
			orders = append(orders, copyOrder(o))
		}
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].OrderTime.Before(orders[j].OrderTime) })
	return orders, nil
}

// Product store

func (m *MockStore) GetProduct(ctx context.Context, productID string) (*inventory.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.products[productID]
	if !ok {
		return nil, inventory.ErrNotFound
	}
	return copyProduct(p), nil
}

func (m *MockStore) PutProduct(ctx context.Context, p *inventory.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[p.ID] = copyProduct(p)
	return nil
}

func (m *MockStore) ListProducts(ctx context.Context) ([]*inventory.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var products []*inventory.Product
	for _, p := range m.products {
		products = append(products, copyProduct(p))
	}
	sort.Slice(products, func(i, j int) bool { return products[i].Name < products[j].Name })
	return products, nil
}

func (m *MockStore) AdjustStock(ctx context.Context, productID, size string, delta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AdjustStockCalls = append(m.AdjustStockCalls, AdjustStockCall{ProductID: productID, Size: size, Delta: delta})
	if m.AdjustStockErr != nil {
		return m.AdjustStockErr
	}
	p, ok := m.products[productID]
	if !ok {
		return inventory.ErrNotFound
	}
	qty, ok := p.Stock[size]
	if !ok {
		return inventory.ErrNotFound
	}
	if qty+delta < 0 {
		return inventory.ErrInsufficientStock
	}
	p.Stock[size] = qty + delta
	return nil
}

// Cart store

func (m *MockStore) GetLine(ctx context.Context, lineID string) (*cart.Line, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	l, ok := m.lines[lineID]
	if !ok {
		return nil, cart.ErrLineNotFound
	}
	c := *l
	return &c, nil
}

func (m *MockStore) FindLine(ctx context.Context, userID, productID, size string) (*cart.Line, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, l := range m.lines {
		if l.UserID == userID && l.ProductID == productID && l.Size == size {
			c := *l
			return &c, nil
		}
	}
	return nil, cart.ErrLineNotFound
}

func (m *MockStore) SaveLine(ctx context.Context, line *cart.Line) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *line
	m.lines[line.ID] = &c
	return nil
}

func (m *MockStore) DeleteLine(ctx context.Context, lineID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.lines, lineID)
	return nil
}

func (m *MockStore) ListLines(ctx context.Context, userID string) ([]*cart.Line, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var lines []*cart.Line
	for _, l := range m.lines {
		if l.UserID == userID {
			c := *l
			lines = append(lines, &c)
		}
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].AddedAt.Before(lines[j].AddedAt) })
	return lines, nil
}

// User store

func (m *MockStore) CreateUser(ctx context.Context, u *user.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return user.ErrEmailTaken
		}
	}
	c := *u
	m.users[u.ID] = &c
	return nil
}

func (m *MockStore) GetUser(ctx context.Context, id string) (*user.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, user.ErrUserNotFound
	}
	c := *u
	return &c, nil
}

func (m *MockStore) GetUserByEmail(ctx context.Context, email string) (*user.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Email == email {
			c := *u
			return &c, nil
		}
	}
	return nil, user.ErrUserNotFound
}
