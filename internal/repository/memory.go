package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"tuckshop/internal/domain"
)

// MemoryStore is a combined in-memory store and simple ID generator.
// It backs the tests and runs the server when no DB_PATH is set. The
// store itself implements ProductRepository; the other aggregates are
// implemented by wrapper types sharing the same lock.
type MemoryStore struct {
	mu           sync.RWMutex
	nextProdID   int64
	nextResetID  int64
	productsByID map[int64]domain.Product
	usersByID    map[string]domain.User
	ordersByID   map[string]domain.Order
	resetsByID   map[int64]domain.PasswordReset
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nextProdID:   1,
		nextResetID:  1,
		productsByID: make(map[int64]domain.Product),
		usersByID:    make(map[string]domain.User),
		ordersByID:   make(map[string]domain.Order),
		resetsByID:   make(map[int64]domain.PasswordReset),
	}
}

// Ensure interfaces
var _ ProductRepository = (*MemoryStore)(nil)

// matchName applies a case-insensitive pattern match. Plain substring
// semantics: pattern characters carry no special meaning here, so no
// escaping is needed for this backend.
func matchName(name, pattern string, match PatternMatch) bool {
	n := strings.ToLower(name)
	p := strings.ToLower(pattern)
	switch match {
	case MatchStartsWith:
		return strings.HasPrefix(n, p)
	case MatchEndsWith:
		return strings.HasSuffix(n, p)
	default:
		return strings.Contains(n, p)
	}
}

// ProductRepository implementation

func (m *MemoryStore) Create(ctx context.Context, p *domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ex := range m.productsByID {
		if ex.Name == p.Name {
			return ErrDuplicate
		}
	}
	p.ID = m.nextProdID
	m.nextProdID++
	m.productsByID[p.ID] = *p
	return nil
}

func (m *MemoryStore) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.productsByID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := p
	return &cp, nil
}

func (m *MemoryStore) GetByName(ctx context.Context, name string) (*domain.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.productsByID {
		if p.Name == name {
			cp := p
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) List(ctx context.Context) ([]domain.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Product, 0, len(m.productsByID))
	for _, p := range m.productsByID {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (m *MemoryStore) UpdateByName(ctx context.Context, name string, patch ProductPatch) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, p := range m.productsByID {
		if p.Name != name {
			continue
		}
		if patch.Category != nil {
			p.Category = *patch.Category
		}
		if patch.Quantity != nil {
			p.Quantity = *patch.Quantity
		}
		if patch.Price != nil {
			p.Price = *patch.Price
		}
		m.productsByID[id] = p
		cp := p
		return &cp, nil
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) Rename(ctx context.Context, oldName, newName string) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.productsByID {
		if p.Name == newName {
			return nil, ErrDuplicate
		}
	}
	for id, p := range m.productsByID {
		if p.Name == oldName {
			p.Name = newName
			m.productsByID[id] = p
			cp := p
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) DecrementStock(ctx context.Context, id, qty int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.productsByID[id]
	if !ok {
		return ErrNotFound
	}
	p.Quantity -= qty
	m.productsByID[id] = p
	return nil
}

func (m *MemoryStore) DecrementStockGuarded(ctx context.Context, id, qty int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.productsByID[id]
	if !ok {
		return ErrNotFound
	}
	if p.Quantity < qty {
		return ErrInsufficientStock
	}
	p.Quantity -= qty
	m.productsByID[id] = p
	return nil
}

func (m *MemoryStore) DeleteByName(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, p := range m.productsByID {
		if p.Name == name {
			delete(m.productsByID, id)
			return nil
		}
	}
	return ErrNotFound
}

func (m *MemoryStore) DeleteByCategory(ctx context.Context, c domain.Category) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, p := range m.productsByID {
		if p.Category == c {
			delete(m.productsByID, id)
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) UpdateCategoryByPattern(ctx context.Context, pattern string, match PatternMatch, c domain.Category) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, p := range m.productsByID {
		if matchName(p.Name, pattern, match) {
			p.Category = c
			m.productsByID[id] = p
			n++
		}
	}
	return n, nil
}

// UserRepository implementation on wrapper type

type MemoryUsers struct{ store *MemoryStore }

func NewMemoryUsers(store *MemoryStore) *MemoryUsers { return &MemoryUsers{store: store} }

var _ UserRepository = (*MemoryUsers)(nil)

func (mu *MemoryUsers) Create(ctx context.Context, u *domain.User) error {
	mu.store.mu.Lock()
	defer mu.store.mu.Unlock()
	for _, ex := range mu.store.usersByID {
		if ex.Email == u.Email {
			return ErrDuplicate
		}
	}
	u.CreatedAt = time.Now().UTC()
	mu.store.usersByID[u.ID] = *u
	return nil
}

func (mu *MemoryUsers) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	mu.store.mu.RLock()
	defer mu.store.mu.RUnlock()
	for _, u := range mu.store.usersByID {
		if u.Email == email {
			cp := u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (mu *MemoryUsers) GetByID(ctx context.Context, id string) (*domain.User, error) {
	mu.store.mu.RLock()
	defer mu.store.mu.RUnlock()
	u, ok := mu.store.usersByID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := u
	return &cp, nil
}

func (mu *MemoryUsers) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	mu.store.mu.Lock()
	defer mu.store.mu.Unlock()
	u, ok := mu.store.usersByID[id]
	if !ok {
		return ErrNotFound
	}
	u.Password = passwordHash
	mu.store.usersByID[id] = u
	return nil
}

// OrderRepository implementation on wrapper type

type MemoryOrders struct{ store *MemoryStore }

func NewMemoryOrders(store *MemoryStore) *MemoryOrders { return &MemoryOrders{store: store} }

var _ OrderRepository = (*MemoryOrders)(nil)

func (mo *MemoryOrders) Create(ctx context.Context, o *domain.Order) error {
	mo.store.mu.Lock()
	defer mo.store.mu.Unlock()
	if _, ok := mo.store.ordersByID[o.ID]; ok {
		return ErrDuplicate
	}
	o.CreatedAt = time.Now().UTC()
	mo.store.ordersByID[o.ID] = *o
	return nil
}

func (mo *MemoryOrders) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	mo.store.mu.RLock()
	defer mo.store.mu.RUnlock()
	out := make([]domain.Order, 0)
	for _, o := range mo.store.ordersByID {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// PasswordResetRepository implementation on wrapper type

type MemoryResets struct{ store *MemoryStore }

func NewMemoryResets(store *MemoryStore) *MemoryResets { return &MemoryResets{store: store} }

var _ PasswordResetRepository = (*MemoryResets)(nil)

func (mr *MemoryResets) Create(ctx context.Context, r *domain.PasswordReset) error {
	mr.store.mu.Lock()
	defer mr.store.mu.Unlock()
	r.ID = mr.store.nextResetID
	mr.store.nextResetID++
	r.CreatedAt = time.Now().UTC()
	mr.store.resetsByID[r.ID] = *r
	return nil
}

func (mr *MemoryResets) DeleteByUser(ctx context.Context, userID string) error {
	mr.store.mu.Lock()
	defer mr.store.mu.Unlock()
	for id, r := range mr.store.resetsByID {
		if r.UserID == userID {
			delete(mr.store.resetsByID, id)
		}
	}
	return nil
}

func (mr *MemoryResets) GetActiveByHash(ctx context.Context, tokenHash string, now time.Time) (*domain.PasswordReset, error) {
	mr.store.mu.RLock()
	defer mr.store.mu.RUnlock()
	for _, r := range mr.store.resetsByID {
		if r.TokenHash == tokenHash && !r.Used && r.ExpiresAt.After(now) {
			cp := r
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (mr *MemoryResets) MarkUsed(ctx context.Context, id int64) error {
	mr.store.mu.Lock()
	defer mr.store.mu.Unlock()
	r, ok := mr.store.resetsByID[id]
	if !ok {
		return ErrNotFound
	}
	r.Used = true
	mr.store.resetsByID[id] = r
	return nil
}

func (mr *MemoryResets) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	mr.store.mu.Lock()
	defer mr.store.mu.Unlock()
	var n int64
	for id, r := range mr.store.resetsByID {
		if r.ExpiresAt.Before(now) {
			delete(mr.store.resetsByID, id)
			n++
		}
	}
	return n, nil
}
