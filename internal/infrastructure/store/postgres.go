package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/example/storefront-core/internal/domain/cart"
	"github.com/example/storefront-core/internal/domain/inventory"
	"github.com/example/storefront-core/internal/domain/order"
	"github.com/example/storefront-core/internal/domain/user"
)

const pgUniqueViolation = "23505"

// PostgresStore implements the store contracts over PostgreSQL. The
// conditional semantics mirror the DynamoDB backend: status transitions and
// stock adjustments are single conditional UPDATEs, cancellation plus
// restock runs in one transaction.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// ConnectPostgres establishes a connection to PostgreSQL.
func ConnectPostgres(connStr string) (*sql.DB, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	return db, nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS orders (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		items JSONB NOT NULL,
		subtotal BIGINT NOT NULL,
		discount BIGINT NOT NULL,
		shipping_fee BIGINT NOT NULL,
		total BIGINT NOT NULL,
		status TEXT NOT NULL,
		address TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		app_trans_id TEXT UNIQUE,
		order_time TIMESTAMPTZ NOT NULL,
		update_time TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_status_time ON orders (status, order_time)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_user ON orders (user_id)`,
	`CREATE TABLE IF NOT EXISTS products (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		price BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS product_stock (
		product_id TEXT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
		size TEXT NOT NULL,
		quantity INT NOT NULL CHECK (quantity >= 0),
		PRIMARY KEY (product_id, size)
	)`,
	`CREATE TABLE IF NOT EXISTS cart_lines (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		product_id TEXT NOT NULL,
		size TEXT NOT NULL,
		quantity INT NOT NULL CHECK (quantity >= 1),
		added_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		UNIQUE (user_id, product_id, size)
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT UNIQUE NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL,
		membership_level TEXT NOT NULL,
		role TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
}

// EnsureSchema creates the storefront tables if they do not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}

// Order store

func (s *PostgresStore) Create(ctx context.Context, o *order.Order) error {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("failed to marshal order items: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO orders (id, user_id, items, subtotal, discount, shipping_fee, total,
		                    status, address, phone, app_trans_id, order_time, update_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NULLIF($11, ''), $12, $13)`,
		o.ID, o.UserID, items, o.Subtotal, o.Discount, o.ShippingFee, o.Total,
		string(o.Status), o.Address, o.Phone, o.AppTransID, o.OrderTime, o.UpdateTime,
	)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}
	return nil
}

const orderColumns = `id, user_id, items, subtotal, discount, shipping_fee, total,
	status, address, phone, COALESCE(app_trans_id, ''), order_time, update_time`

func (s *PostgresStore) scanOrder(row interface{ Scan(...any) error }) (*order.Order, error) {
	var o order.Order
	var items []byte
	var status string
	err := row.Scan(&o.ID, &o.UserID, &items, &o.Subtotal, &o.Discount, &o.ShippingFee,
		&o.Total, &status, &o.Address, &o.Phone, &o.AppTransID, &o.OrderTime, &o.UpdateTime)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, order.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan order: %w", err)
	}
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return nil, fmt.Errorf("failed to unmarshal order items: %w", err)
	}
	o.Status = order.Status(status)
	return &o, nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*order.Order, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	return s.scanOrder(row)
}

func (s *PostgresStore) GetByAppTransID(ctx context.Context, appTransID string) (*order.Order, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE app_trans_id = $1`, appTransID)
	return s.scanOrder(row)
}

func (s *PostgresStore) SetAppTransID(ctx context.Context, orderID, appTransID string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE orders SET app_trans_id = $2 WHERE id = $1 AND app_trans_id IS NULL`,
		orderID, appTransID,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation {
			return order.ErrTransIDSet
		}
		return fmt.Errorf("failed to set app_trans_id: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		if _, getErr := s.Get(ctx, orderID); errors.Is(getErr, order.ErrOrderNotFound) {
			return order.ErrOrderNotFound
		}
		return order.ErrTransIDSet
	}
	return nil
}

func (s *PostgresStore) Transition(ctx context.Context, orderID string, from, to order.Status, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE orders SET status = $3, update_time = $4 WHERE id = $1 AND status = $2`,
		orderID, string(from), string(to), at,
	)
	if err != nil {
		return fmt.Errorf("failed to transition order: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		if _, getErr := s.Get(ctx, orderID); errors.Is(getErr, order.ErrOrderNotFound) {
			return order.ErrOrderNotFound
		}
		return order.ErrStatusConflict
	}
	return nil
}

func (s *PostgresStore) CancelAndRestock(ctx context.Context, orderID string, restock []order.LineItem, at time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		UPDATE orders SET status = $2, update_time = $3 WHERE id = $1 AND status = $4`,
		orderID, string(order.StatusCancelled), at, string(order.StatusAwaitingPayment),
	)
	if err != nil {
		return fmt.Errorf("failed to cancel order: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var status string
		err := tx.QueryRowContext(ctx, `SELECT status FROM orders WHERE id = $1`, orderID).Scan(&status)
		if errors.Is(err, sql.ErrNoRows) {
			return order.ErrOrderNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to read order status: %w", err)
		}
		return order.ErrStatusConflict
	}

	for _, item := range restock {
		res, err := tx.ExecContext(ctx, `
			UPDATE product_stock SET quantity = quantity + $3 WHERE product_id = $1 AND size = $2`,
			item.ProductID, item.Size, item.Quantity,
		)
		if err != nil {
			return fmt.Errorf("failed to restock %s/%s: %w", item.ProductID, item.Size, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("%w: product %s size %s", inventory.ErrNotFound, item.ProductID, item.Size)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit cancel and restock: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID string) ([]*order.Order, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY order_time DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders by user: %w", err)
	}
	defer rows.Close()
	return s.collectOrders(rows)
}

func (s *PostgresStore) ListAwaitingBefore(ctx context.Context, cutoff time.Time) ([]*order.Order, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+orderColumns+` FROM orders WHERE status = $1 AND order_time <= $2 ORDER BY order_time`,
		string(order.StatusAwaitingPayment), cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list awaiting orders: %w", err)
	}
	defer rows.Close()
	return s.collectOrders(rows)
}

func (s *PostgresStore) collectOrders(rows *sql.Rows) ([]*order.Order, error) {
	var orders []*order.Order
	for rows.Next() {
		o, err := s.scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// Product store

func (s *PostgresStore) GetProduct(ctx context.Context, productID string) (*inventory.Product, error) {
	p := &inventory.Product{ID: productID, Stock: make(map[string]int)}
	err := s.db.QueryRowContext(ctx, `SELECT name, price FROM products WHERE id = $1`, productID).
		Scan(&p.Name, &p.Price)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, inventory.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT size, quantity FROM product_stock WHERE product_id = $1`, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to get product stock: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var size string
		var qty int
		if err := rows.Scan(&size, &qty); err != nil {
			return nil, err
		}
		p.Stock[size] = qty
	}
	return p, rows.Err()
}

func (s *PostgresStore) PutProduct(ctx context.Context, p *inventory.Product) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO products (id, name, price) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, price = EXCLUDED.price`,
		p.ID, p.Name, p.Price,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert product: %w", err)
	}
	for size, qty := range p.Stock {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO product_stock (product_id, size, quantity) VALUES ($1, $2, $3)
			ON CONFLICT (product_id, size) DO UPDATE SET quantity = EXCLUDED.quantity`,
			p.ID, size, qty,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert stock: %w", err)
		}
	}
	return tx.Commit()
}

func (s *PostgresStore) ListProducts(ctx context.Context) ([]*inventory.Product, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, price FROM products ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	var products []*inventory.Product
	byID := make(map[string]*inventory.Product)
	for rows.Next() {
		p := &inventory.Product{Stock: make(map[string]int)}
		if err := rows.Scan(&p.ID, &p.Name, &p.Price); err != nil {
			return nil, err
		}
		products = append(products, p)
		byID[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	stockRows, err := s.db.QueryContext(ctx, `SELECT product_id, size, quantity FROM product_stock`)
	if err != nil {
		return nil, fmt.Errorf("failed to list stock: %w", err)
	}
	defer stockRows.Close()
	for stockRows.Next() {
		var productID, size string
		var qty int
		if err := stockRows.Scan(&productID, &size, &qty); err != nil {
			return nil, err
		}
		if p, ok := byID[productID]; ok {
			p.Stock[size] = qty
		}
	}
	return products, stockRows.Err()
}

func (s *PostgresStore) AdjustStock(ctx context.Context, productID, size string, delta int) error {
	query := `UPDATE product_stock SET quantity = quantity + $3 WHERE product_id = $1 AND size = $2`
	if delta < 0 {
		query += ` AND quantity + $3 >= 0`
	}
	res, err := s.db.ExecContext(ctx, query, productID, size, delta)
	if err != nil {
		return fmt.Errorf("failed to adjust stock: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		var qty int
		err := s.db.QueryRowContext(ctx, `
			SELECT quantity FROM product_stock WHERE product_id = $1 AND size = $2`,
			productID, size).Scan(&qty)
		if errors.Is(err, sql.ErrNoRows) {
			return inventory.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to read stock: %w", err)
		}
		return inventory.ErrInsufficientStock
	}
	return nil
}

// Cart store

func (s *PostgresStore) GetLine(ctx context.Context, lineID string) (*cart.Line, error) {
	return s.scanLine(s.db.QueryRowContext(ctx, `
		SELECT id, user_id, product_id, size, quantity, added_at, updated_at
		FROM cart_lines WHERE id = $1`, lineID))
}

func (s *PostgresStore) FindLine(ctx context.Context, userID, productID, size string) (*cart.Line, error) {
	return s.scanLine(s.db.QueryRowContext(ctx, `
		SELECT id, user_id, product_id, size, quantity, added_at, updated_at
		FROM cart_lines WHERE user_id = $1 AND product_id = $2 AND size = $3`,
		userID, productID, size))
}

func (s *PostgresStore) scanLine(row *sql.Row) (*cart.Line, error) {
	var l cart.Line
	err := row.Scan(&l.ID, &l.UserID, &l.ProductID, &l.Size, &l.Quantity, &l.AddedAt, &l.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, cart.ErrLineNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan cart line: %w", err)
	}
	return &l, nil
}

func (s *PostgresStore) SaveLine(ctx context.Context, line *cart.Line) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cart_lines (id, user_id, product_id, size, quantity, added_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, product_id, size)
		DO UPDATE SET quantity = EXCLUDED.quantity, updated_at = EXCLUDED.updated_at`,
		line.ID, line.UserID, line.ProductID, line.Size, line.Quantity, line.AddedAt, line.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save cart line: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteLine(ctx context.Context, lineID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM cart_lines WHERE id = $1`, lineID)
	if err != nil {
		return fmt.Errorf("failed to delete cart line: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListLines(ctx context.Context, userID string) ([]*cart.Line, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, product_id, size, quantity, added_at, updated_at
		FROM cart_lines WHERE user_id = $1 ORDER BY added_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cart lines: %w", err)
	}
	defer rows.Close()

	var lines []*cart.Line
	for rows.Next() {
		var l cart.Line
		if err := rows.Scan(&l.ID, &l.UserID, &l.ProductID, &l.Size, &l.Quantity, &l.AddedAt, &l.UpdatedAt); err != nil {
			return nil, err
		}
		lines = append(lines, &l)
	}
	return lines, rows.Err()
}

// User store

func (s *PostgresStore) CreateUser(ctx context.Context, u *user.User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, name, password_hash, membership_level, role, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		u.ID, u.Email, u.Name, u.PasswordHash, u.MembershipLevel, u.Role, u.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation {
			return user.ErrEmailTaken
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetUser(ctx context.Context, id string) (*user.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, `
		SELECT id, email, name, password_hash, membership_level, role, created_at
		FROM users WHERE id = $1`, id))
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*user.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, `
		SELECT id, email, name, password_hash, membership_level, role, created_at
		FROM users WHERE email = $1`, email))
}

func (s *PostgresStore) scanUser(row *sql.Row) (*user.User, error) {
	var u user.User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.MembershipLevel, &u.Role, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, user.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return &u, nil
}
