package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"eraiiz/internal/server/repository"
	"eraiiz/internal/shared/models"
)

type Repository struct {
	db *sql.DB
}

func New(dsn string) (*Repository, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			email TEXT UNIQUE NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			role TEXT NOT NULL,
			password_hash TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL
		);
		CREATE TABLE IF NOT EXISTS refresh_tokens (
			token TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			expires_at TIMESTAMP NOT NULL,
			created_at TIMESTAMP NOT NULL,
			FOREIGN KEY(user_id) REFERENCES users(id)
		);
		CREATE TABLE IF NOT EXISTS products (
			id TEXT PRIMARY KEY,
			seller_id TEXT NOT NULL,
			name TEXT NOT NULL,
			material TEXT NOT NULL DEFAULT '',
			price_cents INTEGER NOT NULL,
			stock INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL,
			FOREIGN KEY(seller_id) REFERENCES users(id)
		);
		CREATE TABLE IF NOT EXISTS orders (
			id TEXT PRIMARY KEY,
			buyer_id TEXT NOT NULL,
			seller_id TEXT NOT NULL,
			product_id TEXT NOT NULL,
			product_name TEXT NOT NULL,
			size TEXT NOT NULL DEFAULT '',
			quantity INTEGER NOT NULL,
			price_cents INTEGER NOT NULL,
			status TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		);
		CREATE TABLE IF NOT EXISTS notifications (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			type TEXT NOT NULL,
			message TEXT NOT NULL,
			read INTEGER NOT NULL DEFAULT 0,
			data BLOB,
			created_at TIMESTAMP NOT NULL
		);
		CREATE TABLE IF NOT EXISTS favorites (
			user_id TEXT NOT NULL,
			product_id TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			PRIMARY KEY(user_id, product_id)
		);
		CREATE TABLE IF NOT EXISTS cart_items (
			user_id TEXT NOT NULL,
			product_id TEXT NOT NULL,
			size TEXT NOT NULL DEFAULT '',
			quantity INTEGER NOT NULL,
			PRIMARY KEY(user_id, product_id, size)
		);
	`); err != nil {
		return nil, err
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error { return r.db.Close() }

// Users

func (r *Repository) CreateUser(ctx context.Context, email, name string, role models.Role, passwordHash string) (models.User, error) {
	id := uuid.NewString()
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users(id,email,name,role,password_hash,created_at) VALUES(?,?,?,?,?,?)`,
		id, email, name, string(role), passwordHash, now)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return models.User{}, repository.ErrAlreadyExists
		}
		return models.User{}, err
	}
	return models.User{ID: id, Email: email, Name: name, Role: role, CreatedAt: now}, nil
}

func (r *Repository) GetUserByEmail(ctx context.Context, email string) (models.User, string, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id,email,name,role,password_hash,created_at FROM users WHERE email = ?`, email)
	return scanUser(row)
}

func (r *Repository) GetUserByID(ctx context.Context, id string) (models.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id,email,name,role,password_hash,created_at FROM users WHERE id = ?`, id)
	u, _, err := scanUser(row)
	return u, err
}

func scanUser(row *sql.Row) (models.User, string, error) {
	var u models.User
	var role, hash string
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &role, &hash, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, "", repository.ErrNotFound
		}
		return models.User{}, "", err
	}
	u.Role = models.Role(role)
	return u, hash, nil
}

func (r *Repository) UpdateUser(ctx context.Context, id, name string, role models.Role) (models.User, error) {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET name = COALESCE(NULLIF(?,''), name), role = COALESCE(NULLIF(?,''), role) WHERE id = ?`,
		name, string(role), id)
	if err != nil {
		return models.User{}, err
	}
	return r.GetUserByID(ctx, id)
}

func (r *Repository) DeleteUser(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repository.ErrNotFound
	}
	_, _ = r.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE user_id = ?`, id)
	_, _ = r.db.ExecContext(ctx, `DELETE FROM notifications WHERE user_id = ?`, id)
	_, _ = r.db.ExecContext(ctx, `DELETE FROM favorites WHERE user_id = ?`, id)
	_, _ = r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = ?`, id)
	return nil
}

// Refresh tokens

func (r *Repository) CreateRefreshToken(ctx context.Context, userID, token string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO refresh_tokens(token,user_id,expires_at,created_at) VALUES(?,?,?,?)`,
		token, userID, expiresAt, time.Now().UTC())
	return err
}

func (r *Repository) GetRefreshToken(ctx context.Context, token string) (string, time.Time, error) {
	row := r.db.QueryRowContext(ctx, `SELECT user_id, expires_at FROM refresh_tokens WHERE token = ?`, token)
	var userID string
	var expiresAt time.Time
	if err := row.Scan(&userID, &expiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", time.Time{}, repository.ErrNotFound
		}
		return "", time.Time{}, err
	}
	return userID, expiresAt, nil
}

func (r *Repository) DeleteRefreshToken(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE token = ?`, token)
	return err
}

// Products

func (r *Repository) CreateProduct(ctx context.Context, p models.Product) (models.Product, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.CreatedAt = time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO products(id,seller_id,name,material,price_cents,stock,created_at) VALUES(?,?,?,?,?,?,?)`,
		p.ID, p.SellerID, p.Name, p.Material, p.PriceCents, p.Stock, p.CreatedAt)
	if err != nil {
		return models.Product{}, err
	}
	return p, nil
}

func (r *Repository) GetProduct(ctx context.Context, id string) (models.Product, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id,seller_id,name,material,price_cents,stock,created_at FROM products WHERE id = ?`, id)
	var p models.Product
	if err := row.Scan(&p.ID, &p.SellerID, &p.Name, &p.Material, &p.PriceCents, &p.Stock, &p.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Product{}, repository.ErrNotFound
		}
		return models.Product{}, err
	}
	return p, nil
}

func (r *Repository) SearchProducts(ctx context.Context, query string) ([]models.Product, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id,seller_id,name,material,price_cents,stock,created_at FROM products
		WHERE name LIKE '%' || ? || '%' OR material LIKE '%' || ? || '%'
		ORDER BY created_at DESC`, query, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.Product
	for rows.Next() {
		var p models.Product
		if err := rows.Scan(&p.ID, &p.SellerID, &p.Name, &p.Material, &p.PriceCents, &p.Stock, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Orders

func (r *Repository) CreateOrder(ctx context.Context, o models.Order) (models.Order, error) {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	o.CreatedAt, o.UpdatedAt = now, now
	if o.Status == "" {
		o.Status = models.OrderPending
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO orders(id,buyer_id,seller_id,product_id,product_name,size,quantity,price_cents,status,created_at,updated_at)
		VALUES(?,?,?,?,?,?,?,?,?,?,?)`,
		o.ID, o.BuyerID, o.SellerID, o.ProductID, o.Product, o.Size, o.Quantity, o.PriceCents, string(o.Status), o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return models.Order{}, err
	}
	return o, nil
}

func (r *Repository) GetOrder(ctx context.Context, id string) (models.Order, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id,buyer_id,seller_id,product_id,product_name,size,quantity,price_cents,status,created_at,updated_at
		FROM orders WHERE id = ?`, id)
	return scanOrder(row)
}

func scanOrder(row *sql.Row) (models.Order, error) {
	var o models.Order
	var status string
	err := row.Scan(&o.ID, &o.BuyerID, &o.SellerID, &o.ProductID, &o.Product, &o.Size,
		&o.Quantity, &o.PriceCents, &status, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Order{}, repository.ErrNotFound
		}
		return models.Order{}, err
	}
	o.Status = models.OrderStatus(status)
	return o, nil
}

// ListOrders returns orders where the user is either the buyer or the
// seller, newest first.
func (r *Repository) ListOrders(ctx context.Context, userID string) ([]models.Order, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id,buyer_id,seller_id,product_id,product_name,size,quantity,price_cents,status,created_at,updated_at
		FROM orders WHERE buyer_id = ? OR seller_id = ? ORDER BY created_at DESC`, userID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.Order
	for rows.Next() {
		var o models.Order
		var status string
		if err := rows.Scan(&o.ID, &o.BuyerID, &o.SellerID, &o.ProductID, &o.Product, &o.Size,
			&o.Quantity, &o.PriceCents, &status, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		o.Status = models.OrderStatus(status)
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *Repository) UpdateOrderStatus(ctx context.Context, id string, status models.OrderStatus) (models.Order, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE orders SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), id)
	if err != nil {
		return models.Order{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.Order{}, repository.ErrNotFound
	}
	return r.GetOrder(ctx, id)
}

// Notifications

func (r *Repository) CreateNotification(ctx context.Context, n models.Notification) (models.Notification, error) {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	n.CreatedAt = time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO notifications(id,user_id,type,message,read,data,created_at) VALUES(?,?,?,?,?,?,?)`,
		n.ID, n.UserID, string(n.Type), n.Message, n.Read, []byte(n.Data), n.CreatedAt)
	if err != nil {
		return models.Notification{}, err
	}
	return n, nil
}

func (r *Repository) ListNotifications(ctx context.Context, userID string) ([]models.Notification, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id,user_id,type,message,read,data,created_at FROM notifications
		WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.Notification
	for rows.Next() {
		var n models.Notification
		var typ string
		var data []byte
		if err := rows.Scan(&n.ID, &n.UserID, &typ, &n.Message, &n.Read, &data, &n.CreatedAt); err != nil {
			return nil, err
		}
		n.Type = models.NotificationType(typ)
		n.Data = data
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *Repository) MarkNotificationRead(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET read = 1 WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *Repository) DeleteNotification(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM notifications WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Favorites

func (r *Repository) AddFavorite(ctx context.Context, userID, productID string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO favorites(user_id,product_id,created_at) VALUES(?,?,?)`,
		userID, productID, time.Now().UTC())
	return err
}

func (r *Repository) RemoveFavorite(ctx context.Context, userID, productID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM favorites WHERE user_id = ? AND product_id = ?`, userID, productID)
	return err
}

func (r *Repository) ListFavorites(ctx context.Context, userID string) ([]models.Favorite, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT product_id, created_at FROM favorites WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.Favorite
	for rows.Next() {
		var f models.Favorite
		if err := rows.Scan(&f.ProductID, &f.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// Cart

func (r *Repository) UpsertCartItem(ctx context.Context, userID string, item models.CartItem) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO cart_items(user_id,product_id,size,quantity) VALUES(?,?,?,?)
		ON CONFLICT(user_id,product_id,size) DO UPDATE SET quantity = quantity + excluded.quantity`,
		userID, item.ProductID, item.Size, item.Quantity)
	return err
}

func (r *Repository) DeleteCartItem(ctx context.Context, userID, productID, size string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM cart_items WHERE user_id = ? AND product_id = ? AND size = ?`,
		userID, productID, size)
	return err
}

func (r *Repository) ListCart(ctx context.Context, userID string) ([]models.CartItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT product_id, size, quantity FROM cart_items WHERE user_id = ? ORDER BY product_id, size`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.CartItem
	for rows.Next() {
		var it models.CartItem
		if err := rows.Scan(&it.ProductID, &it.Size, &it.Quantity); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *Repository) ClearCart(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = ?`, userID)
	return err
}
