package repository

import (
	"context"
	"errors"
	"time"

	"tuckshop/internal/domain"
)

// ErrNotFound is returned when an entity does not exist
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when a uniqueness constraint is violated
// (user email, product name, order id)
var ErrDuplicate = errors.New("duplicate")

// ErrInsufficientStock is returned by the guarded stock decrement when
// the product has fewer units than requested
var ErrInsufficientStock = errors.New("insufficient stock")

// PatternMatch selects how a name pattern is applied
type PatternMatch string

const (
	MatchContains   PatternMatch = "contains"
	MatchStartsWith PatternMatch = "startsWith"
	MatchEndsWith   PatternMatch = "endsWith"
)

// ProductPatch is a partial product update; nil fields are left untouched
type ProductPatch struct {
	Category *domain.Category
	Quantity *int64
	Price    *float64
}

// IsEmpty reports whether the patch carries no fields
func (p ProductPatch) IsEmpty() bool {
	return p.Category == nil && p.Quantity == nil && p.Price == nil
}

// UserRepository user accounts
type UserRepository interface {
	Create(ctx context.Context, u *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
}

// ProductRepository catalog entries. List returns products ordered by
// category then name. DecrementStock is a single-row atomic adjustment;
// DecrementStockGuarded additionally refuses to go below zero.
type ProductRepository interface {
	Create(ctx context.Context, p *domain.Product) error
	GetByID(ctx context.Context, id int64) (*domain.Product, error)
	GetByName(ctx context.Context, name string) (*domain.Product, error)
	List(ctx context.Context) ([]domain.Product, error)
	UpdateByName(ctx context.Context, name string, patch ProductPatch) (*domain.Product, error)
	Rename(ctx context.Context, oldName, newName string) (*domain.Product, error)
	DecrementStock(ctx context.Context, id, qty int64) error
	DecrementStockGuarded(ctx context.Context, id, qty int64) error
	DeleteByName(ctx context.Context, name string) error
	DeleteByCategory(ctx context.Context, c domain.Category) (int64, error)
	UpdateCategoryByPattern(ctx context.Context, pattern string, match PatternMatch, c domain.Category) (int64, error)
}

// OrderRepository placed orders. ListByUser returns newest first.
type OrderRepository interface {
	Create(ctx context.Context, o *domain.Order) error
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)
}

// PasswordResetRepository single-use reset tokens. GetActiveByHash only
// matches unused, unexpired rows.
type PasswordResetRepository interface {
	Create(ctx context.Context, r *domain.PasswordReset) error
	DeleteByUser(ctx context.Context, userID string) error
	GetActiveByHash(ctx context.Context, tokenHash string, now time.Time) (*domain.PasswordReset, error)
	MarkUsed(ctx context.Context, id int64) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
