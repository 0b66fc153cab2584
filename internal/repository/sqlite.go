package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"tuckshop/internal/domain"
)

// SQLiteStore is the durable store. Uniqueness of user emails, product
// names and order ids is enforced here with UNIQUE constraints; that is
// the only backstop against generated order-id collisions.
type SQLiteStore struct {
	DB *sql.DB
}

func NewSQLiteStore(dataSourceName string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	s := &SQLiteStore{DB: db}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		password TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'user',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS products (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		price REAL NOT NULL,
		quantity INTEGER NOT NULL,
		image_url TEXT NOT NULL,
		category TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS orders (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		user_name TEXT NOT NULL,
		user_email TEXT NOT NULL,
		total REAL NOT NULL,
		status TEXT NOT NULL,
		full_name TEXT NOT NULL,
		phone_number TEXT NOT NULL,
		address_line1 TEXT NOT NULL,
		address_line2 TEXT,
		city TEXT NOT NULL,
		state TEXT NOT NULL,
		pincode TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS order_items (
		order_id TEXT NOT NULL,
		product_id INTEGER NOT NULL,
		name TEXT NOT NULL,
		price REAL NOT NULL,
		quantity INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS password_resets (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL,
		token_hash TEXT NOT NULL,
		expires_at DATETIME NOT NULL,
		used INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`
	_, err := s.DB.Exec(query)
	return err
}

func (s *SQLiteStore) Close() error { return s.DB.Close() }

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// escapeLike escapes LIKE metacharacters in user input so a pattern
// cannot inject wildcard semantics. Used with ESCAPE '\'.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}

// ProductRepository implementation

var _ ProductRepository = (*SQLiteStore)(nil)

func (s *SQLiteStore) Create(ctx context.Context, p *domain.Product) error {
	res, err := s.DB.ExecContext(ctx,
		`INSERT INTO products (name, price, quantity, image_url, category) VALUES (?, ?, ?, ?, ?)`,
		p.Name, p.Price, p.Quantity, p.ImageURL, string(p.Category))
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = id
	return nil
}

const productColumns = `id, name, price, quantity, image_url, category`

func scanProduct(row *sql.Row) (*domain.Product, error) {
	var p domain.Product
	if err := row.Scan(&p.ID, &p.Name, &p.Price, &p.Quantity, &p.ImageURL, &p.Category); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *SQLiteStore) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	row := s.DB.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = ?`, id)
	return scanProduct(row)
}

func (s *SQLiteStore) GetByName(ctx context.Context, name string) (*domain.Product, error) {
	row := s.DB.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE name = ?`, name)
	return scanProduct(row)
}

func (s *SQLiteStore) List(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT `+productColumns+` FROM products ORDER BY category, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Product, 0)
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.Quantity, &p.ImageURL, &p.Category); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) UpdateByName(ctx context.Context, name string, patch ProductPatch) (*domain.Product, error) {
	sets := make([]string, 0, 3)
	args := make([]any, 0, 4)
	if patch.Category != nil {
		sets = append(sets, "category = ?")
		args = append(args, string(*patch.Category))
	}
	if patch.Quantity != nil {
		sets = append(sets, "quantity = ?")
		args = append(args, *patch.Quantity)
	}
	if patch.Price != nil {
		sets = append(sets, "price = ?")
		args = append(args, *patch.Price)
	}
	args = append(args, name)
	res, err := s.DB.ExecContext(ctx, `UPDATE products SET `+strings.Join(sets, ", ")+` WHERE name = ?`, args...)
	if err != nil {
		return nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, ErrNotFound
	}
	return s.GetByName(ctx, name)
}

func (s *SQLiteStore) Rename(ctx context.Context, oldName, newName string) (*domain.Product, error) {
	res, err := s.DB.ExecContext(ctx, `UPDATE products SET name = ? WHERE name = ?`, newName, oldName)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, ErrNotFound
	}
	return s.GetByName(ctx, newName)
}

func (s *SQLiteStore) DecrementStock(ctx context.Context, id, qty int64) error {
	res, err := s.DB.ExecContext(ctx, `UPDATE products SET quantity = quantity - ? WHERE id = ?`, qty, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) DecrementStockGuarded(ctx context.Context, id, qty int64) error {
	res, err := s.DB.ExecContext(ctx,
		`UPDATE products SET quantity = quantity - ? WHERE id = ? AND quantity >= ?`, qty, id, qty)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if _, err := s.GetByID(ctx, id); err != nil {
			return err
		}
		return ErrInsufficientStock
	}
	return nil
}

func (s *SQLiteStore) DeleteByName(ctx context.Context, name string) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM products WHERE name = ?`, name)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) DeleteByCategory(ctx context.Context, c domain.Category) (int64, error) {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM products WHERE category = ?`, string(c))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *SQLiteStore) UpdateCategoryByPattern(ctx context.Context, pattern string, match PatternMatch, c domain.Category) (int64, error) {
	// LIKE is case-insensitive for ASCII in SQLite, matching the
	// case-insensitive contract of this operation.
	escaped := escapeLike(pattern)
	var like string
	switch match {
	case MatchStartsWith:
		like = escaped + "%"
	case MatchEndsWith:
		like = "%" + escaped
	default:
		like = "%" + escaped + "%"
	}
	res, err := s.DB.ExecContext(ctx,
		`UPDATE products SET category = ? WHERE name LIKE ? ESCAPE '\'`, string(c), like)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// UserRepository implementation on wrapper type

type SQLiteUsers struct{ store *SQLiteStore }

func NewSQLiteUsers(store *SQLiteStore) *SQLiteUsers { return &SQLiteUsers{store: store} }

var _ UserRepository = (*SQLiteUsers)(nil)

func (su *SQLiteUsers) Create(ctx context.Context, u *domain.User) error {
	u.CreatedAt = time.Now().UTC()
	_, err := su.store.DB.ExecContext(ctx,
		`INSERT INTO users (id, name, email, password, role, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		u.ID, u.Name, u.Email, u.Password, u.Role, u.CreatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func scanUser(row *sql.Row) (*domain.User, error) {
	var u domain.User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Password, &u.Role, &u.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (su *SQLiteUsers) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := su.store.DB.QueryRowContext(ctx,
		`SELECT id, name, email, password, role, created_at FROM users WHERE email = ?`, email)
	return scanUser(row)
}

func (su *SQLiteUsers) GetByID(ctx context.Context, id string) (*domain.User, error) {
	row := su.store.DB.QueryRowContext(ctx,
		`SELECT id, name, email, password, role, created_at FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (su *SQLiteUsers) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	res, err := su.store.DB.ExecContext(ctx, `UPDATE users SET password = ? WHERE id = ?`, passwordHash, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// OrderRepository implementation on wrapper type

type SQLiteOrders struct{ store *SQLiteStore }

func NewSQLiteOrders(store *SQLiteStore) *SQLiteOrders { return &SQLiteOrders{store: store} }

var _ OrderRepository = (*SQLiteOrders)(nil)

func (so *SQLiteOrders) Create(ctx context.Context, o *domain.Order) error {
	o.CreatedAt = time.Now().UTC()
	_, err := so.store.DB.ExecContext(ctx,
		`INSERT INTO orders (id, user_id, user_name, user_email, total, status,
			full_name, phone_number, address_line1, address_line2, city, state, pincode, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.UserID, o.UserName, o.UserEmail, o.Total, string(o.Status),
		o.Address.FullName, o.Address.PhoneNumber, o.Address.AddressLine1, o.Address.AddressLine2,
		o.Address.City, o.Address.State, o.Address.Pincode, o.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	for _, it := range o.Items {
		if _, err := so.store.DB.ExecContext(ctx,
			`INSERT INTO order_items (order_id, product_id, name, price, quantity) VALUES (?, ?, ?, ?, ?)`,
			o.ID, it.ProductID, it.Name, it.Price, it.Quantity); err != nil {
			return err
		}
	}
	return nil
}

func (so *SQLiteOrders) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	rows, err := so.store.DB.QueryContext(ctx,
		`SELECT id, user_id, user_name, user_email, total, status,
			full_name, phone_number, address_line1, COALESCE(address_line2, ''), city, state, pincode, created_at
		 FROM orders WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Order, 0)
	for rows.Next() {
		var o domain.Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.UserName, &o.UserEmail, &o.Total, &o.Status,
			&o.Address.FullName, &o.Address.PhoneNumber, &o.Address.AddressLine1, &o.Address.AddressLine2,
			&o.Address.City, &o.Address.State, &o.Address.Pincode, &o.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		items, err := so.itemsFor(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Items = items
	}
	return out, nil
}

func (so *SQLiteOrders) itemsFor(ctx context.Context, orderID string) ([]domain.OrderItem, error) {
	rows, err := so.store.DB.QueryContext(ctx,
		`SELECT product_id, name, price, quantity FROM order_items WHERE order_id = ?`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.OrderItem, 0)
	for rows.Next() {
		var it domain.OrderItem
		if err := rows.Scan(&it.ProductID, &it.Name, &it.Price, &it.Quantity); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// PasswordResetRepository implementation on wrapper type

type SQLiteResets struct{ store *SQLiteStore }

func NewSQLiteResets(store *SQLiteStore) *SQLiteResets { return &SQLiteResets{store: store} }

var _ PasswordResetRepository = (*SQLiteResets)(nil)

func (sr *SQLiteResets) Create(ctx context.Context, r *domain.PasswordReset) error {
	r.CreatedAt = time.Now().UTC()
	res, err := sr.store.DB.ExecContext(ctx,
		`INSERT INTO password_resets (user_id, token_hash, expires_at, used, created_at) VALUES (?, ?, ?, 0, ?)`,
		r.UserID, r.TokenHash, r.ExpiresAt, r.CreatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	r.ID = id
	return nil
}

func (sr *SQLiteResets) DeleteByUser(ctx context.Context, userID string) error {
	_, err := sr.store.DB.ExecContext(ctx, `DELETE FROM password_resets WHERE user_id = ?`, userID)
	return err
}

func (sr *SQLiteResets) GetActiveByHash(ctx context.Context, tokenHash string, now time.Time) (*domain.PasswordReset, error) {
	row := sr.store.DB.QueryRowContext(ctx,
		`SELECT id, user_id, token_hash, expires_at, used, created_at
		 FROM password_resets WHERE token_hash = ? AND used = 0 AND expires_at > ?`, tokenHash, now)
	var r domain.PasswordReset
	if err := row.Scan(&r.ID, &r.UserID, &r.TokenHash, &r.ExpiresAt, &r.Used, &r.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &r, nil
}

func (sr *SQLiteResets) MarkUsed(ctx context.Context, id int64) error {
	res, err := sr.store.DB.ExecContext(ctx, `UPDATE password_resets SET used = 1 WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (sr *SQLiteResets) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := sr.store.DB.ExecContext(ctx, `DELETE FROM password_resets WHERE expires_at <= ?`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
