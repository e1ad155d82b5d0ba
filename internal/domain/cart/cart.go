package cart

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/example/storefront-core/internal/domain/inventory"
)

var (
	ErrInvalidQuantity = errors.New("quantity must be positive")
	ErrSizeUnavailable = errors.New("size not available for product")
	ErrOutOfStock      = errors.New("product is out of stock")
	ErrExceedsStock    = errors.New("requested quantity exceeds available stock")
	ErrLineNotFound    = errors.New("cart line not found")
)

// Line is one staged (product, size) quantity for one user. The
// (userID, productID, size) triple is unique per user; adds of the same
// pair merge into the existing line.
type Line struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	ProductID string    `json:"product_id"`
	Size      string    `json:"size"`
	Quantity  int       `json:"quantity"`
	AddedAt   time.Time `json:"added_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Store interface {
	GetLine(ctx context.Context, lineID string) (*Line, error)
	// FindLine looks up the line for a (user, product, size) triple.
	// Returns ErrLineNotFound when no line exists.
	FindLine(ctx context.Context, userID, productID, size string) (*Line, error)
	SaveLine(ctx context.Context, line *Line) error
	// DeleteLine is idempotent: deleting an absent line is not an error.
	DeleteLine(ctx context.Context, lineID string) error
	ListLines(ctx context.Context, userID string) ([]*Line, error)
}

type Service struct {
	store  Store
	ledger *inventory.Ledger
}

func NewService(store Store, ledger *inventory.Ledger) *Service {
	return &Service{store: store, ledger: ledger}
}

// AddItem stages quantity of a (product, size) pair. Stock is checked at
// call time but not reserved; checkout re-checks before an order is created.
func (s *Service) AddItem(ctx context.Context, userID, productID, size string, quantity int) (*Line, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	available, err := s.ledger.GetAvailable(ctx, productID, size)
	if err != nil {
		if errors.Is(err, inventory.ErrNotFound) {
			return nil, ErrSizeUnavailable
		}
		return nil, err
	}
	if available == 0 {
		return nil, ErrOutOfStock
	}

	now := time.Now()
	line, err := s.store.FindLine(ctx, userID, productID, size)
	switch {
	case errors.Is(err, ErrLineNotFound):
		line = &Line{
			ID:        uuid.New().String(),
			UserID:    userID,
			ProductID: productID,
			Size:      size,
			Quantity:  quantity,
			AddedAt:   now,
		}
	case err != nil:
		return nil, err
	default:
		line.Quantity += quantity
	}

	if line.Quantity > available {
		return nil, ErrExceedsStock
	}

	line.UpdatedAt = now
	if err := s.store.SaveLine(ctx, line); err != nil {
		return nil, err
	}
	return line, nil
}

// SetQuantity replaces a line's quantity, with the same stock ceiling as
// AddItem.
func (s *Service) SetQuantity(ctx context.Context, lineID string, quantity int) (*Line, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	line, err := s.store.GetLine(ctx, lineID)
	if err != nil {
		return nil, err
	}

	available, err := s.ledger.GetAvailable(ctx, line.ProductID, line.Size)
	if err != nil {
		if errors.Is(err, inventory.ErrNotFound) {
			return nil, ErrSizeUnavailable
		}
		return nil, err
	}
	if quantity > available {
		return nil, ErrExceedsStock
	}

	line.Quantity = quantity
	line.UpdatedAt = time.Now()
	if err := s.store.SaveLine(ctx, line); err != nil {
		return nil, err
	}
	return line, nil
}

func (s *Service) RemoveItem(ctx context.Context, lineID string) error {
	return s.store.DeleteLine(ctx, lineID)
}

func (s *Service) ListLines(ctx context.Context, userID string) ([]*Line, error) {
	return s.store.ListLines(ctx, userID)
}
