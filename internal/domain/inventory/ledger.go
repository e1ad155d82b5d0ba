package inventory

import (
	"context"
	"errors"
)

var (
	ErrNotFound          = errors.New("product or size record not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidQuantity   = errors.New("quantity must be positive")
	ErrConflict          = errors.New("stock update conflict")
)

// Product is the catalog document. Stock maps size -> available quantity;
// every quantity stays >= 0 at all times.
type Product struct {
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Price int64          `json:"price"` // unit price in cents
	Stock map[string]int `json:"stock"`
}

// Available returns the stock for a size and whether the size record exists.
func (p *Product) Available(size string) (int, bool) {
	if p.Stock == nil {
		return 0, false
	}
	n, ok := p.Stock[size]
	return n, ok
}

// Store is the persistence contract for the product catalog. AdjustStock
// must be an atomic increment against the single size record, never a blind
// overwrite of the whole stock map from a stale read. A debit that would go
// below zero fails with ErrInsufficientStock; a missing size record fails
// with ErrNotFound; retry exhaustion on contended writes surfaces as
// ErrConflict.
type Store interface {
	GetProduct(ctx context.Context, productID string) (*Product, error)
	PutProduct(ctx context.Context, p *Product) error
	ListProducts(ctx context.Context) ([]*Product, error)
	AdjustStock(ctx context.Context, productID, size string, delta int) error
}

// Ledger owns the authoritative per-(product, size) available quantity.
type Ledger struct {
	store Store
}

func NewLedger(store Store) *Ledger {
	return &Ledger{store: store}
}

// Product returns the catalog document for productID.
func (l *Ledger) Product(ctx context.Context, productID string) (*Product, error) {
	return l.store.GetProduct(ctx, productID)
}

// List returns the whole catalog.
func (l *Ledger) List(ctx context.Context) ([]*Product, error) {
	return l.store.ListProducts(ctx)
}

// Put creates or replaces a catalog document. Negative quantities are
// rejected up front so the zero floor holds even on full writes.
func (l *Ledger) Put(ctx context.Context, p *Product) error {
	for _, qty := range p.Stock {
		if qty < 0 {
			return ErrInvalidQuantity
		}
	}
	return l.store.PutProduct(ctx, p)
}

func (l *Ledger) GetAvailable(ctx context.Context, productID, size string) (int, error) {
	p, err := l.store.GetProduct(ctx, productID)
	if err != nil {
		return 0, err
	}
	n, ok := p.Available(size)
	if !ok {
		return 0, ErrNotFound
	}
	return n, nil
}

// Credit increments the size record by amount.
func (l *Ledger) Credit(ctx context.Context, productID, size string, amount int) error {
	if amount <= 0 {
		return ErrInvalidQuantity
	}
	return l.store.AdjustStock(ctx, productID, size, amount)
}

// Debit decrements the size record by amount if and only if the result
// stays >= 0.
func (l *Ledger) Debit(ctx context.Context, productID, size string, amount int) error {
	if amount <= 0 {
		return ErrInvalidQuantity
	}
	return l.store.AdjustStock(ctx, productID, size, -amount)
}
