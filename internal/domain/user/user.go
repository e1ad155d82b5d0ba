package user

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/example/storefront-core/internal/auth"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("email is already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// Membership levels and the checkout discount percent they grant.
const (
	MembershipStandard = "standard"
	MembershipSilver   = "silver"
	MembershipGold     = "gold"
	MembershipPlatinum = "platinum"
)

var discountRates = map[string]int{
	MembershipStandard: 0,
	MembershipSilver:   3,
	MembershipGold:     5,
	MembershipPlatinum: 10,
}

// DiscountRate returns the discount percent for a membership level.
// Unknown levels get no discount.
func DiscountRate(level string) int {
	return discountRates[level]
}

type User struct {
	ID              string    `json:"id"`
	Email           string    `json:"email"`
	Name            string    `json:"name"`
	PasswordHash    string    `json:"-"`
	MembershipLevel string    `json:"membership_level"`
	Role            string    `json:"role"`
	CreatedAt       time.Time `json:"created_at"`
}

type Store interface {
	CreateUser(ctx context.Context, u *User) error
	GetUser(ctx context.Context, id string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
}

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

func (s *Service) Register(ctx context.Context, email, password, name string) (*User, error) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	u := &User{
		ID:              uuid.New().String(),
		Email:           email,
		Name:            name,
		PasswordHash:    hash,
		MembershipLevel: MembershipStandard,
		Role:            "customer",
		CreatedAt:       time.Now(),
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Authenticate verifies an email/password pair. Both a missing user and a
// wrong password report ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	u, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !auth.CheckPassword(password, u.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

func (s *Service) Get(ctx context.Context, id string) (*User, error) {
	return s.store.GetUser(ctx, id)
}
