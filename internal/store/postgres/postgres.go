package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"kitani/backend/internal/domain"
	"kitani/backend/internal/report"
	"kitani/backend/internal/store"
	"kitani/backend/internal/xid"
)

// Store is the remote table-service variant. Column names are this package's
// private concern: the rest of the codebase only ever sees the canonical
// domain model, translated here at the scan/exec boundary.
type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, cost_price, selling_price, stock
		FROM products
		ORDER BY lower(name), id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 64)
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return products, nil
}

func (s *Store) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, cost_price, selling_price, stock
		FROM products
		WHERE id = $1
	`, id)

	product, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &product, nil
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.Name == "" || product.CostPrice < 0 || product.SellingPrice < 0 || product.Stock < 0 {
		return nil, store.ErrInvalidInput
	}

	product.ID = xid.New("prod")
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, name, cost_price, selling_price, stock, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,now(),now())
	`, product.ID, product.Name, product.CostPrice, product.SellingPrice, product.Stock)
	if err != nil {
		return nil, err
	}

	created := product
	return &created, nil
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.ID == "" || product.Name == "" || product.CostPrice < 0 || product.SellingPrice < 0 || product.Stock < 0 {
		return nil, store.ErrInvalidInput
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET name = $2, cost_price = $3, selling_price = $4, stock = $5, updated_at = now()
		WHERE id = $1
	`, product.ID, product.Name, product.CostPrice, product.SellingPrice, product.Stock)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}

	updated := product
	return &updated, nil
}

func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) IncrementProductStock(ctx context.Context, id string, delta int) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var stock int
	err = tx.QueryRowContext(ctx, `
		SELECT stock FROM products WHERE id = $1 FOR UPDATE
	`, id).Scan(&stock)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrNotFound
		}
		return err
	}
	if stock+delta < 0 {
		return store.ErrInsufficientStock
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE products SET stock = stock + $2, updated_at = now() WHERE id = $1
	`, id, delta); err != nil {
		return err
	}

	return tx.Commit()
}

// RecordSale persists the sale row and the stock decrement in one serializable
// transaction; the product row is locked so the snapshot and the profit are
// taken from the state that actually commits.
func (s *Store) RecordSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error) {
	if sale.ProductID == "" || sale.Quantity < 1 || sale.SellingPrice < 0 || sale.Date.IsZero() {
		return nil, store.ErrInvalidInput
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var (
		name         string
		costPrice    float64
		sellingPrice sql.NullFloat64
		stock        int
	)
	err = tx.QueryRowContext(ctx, `
		SELECT name, cost_price, selling_price, stock
		FROM products
		WHERE id = $1
		FOR UPDATE
	`, sale.ProductID).Scan(&name, &costPrice, &sellingPrice, &stock)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if sale.Quantity > stock {
		return nil, store.ErrInsufficientStock
	}

	sale.ID = xid.New("sale")
	sale.ProductName = name
	sale.CostPrice = costPrice
	sale.Profit = (sale.SellingPrice - costPrice) * float64(sale.Quantity)
	sale.Date = report.NormalizeSaleDate(sale.Date)

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO sales (id, product_id, product_name, cost_price, quantity, selling_price, profit, sale_date, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,now())
	`, sale.ID, sale.ProductID, sale.ProductName, sale.CostPrice, sale.Quantity, sale.SellingPrice, sale.Profit, sale.Date); err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE products SET stock = stock - $2, updated_at = now() WHERE id = $1
	`, sale.ProductID, sale.Quantity); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	created := sale
	return &created, nil
}

func (s *Store) ListSales(ctx context.Context) ([]domain.Sale, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, product_id, product_name, cost_price, quantity, selling_price, profit, sale_date
		FROM sales
		ORDER BY sale_date DESC, id DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sales := make([]domain.Sale, 0, 128)
	for rows.Next() {
		var sale domain.Sale
		if err := rows.Scan(&sale.ID, &sale.ProductID, &sale.ProductName, &sale.CostPrice, &sale.Quantity, &sale.SellingPrice, &sale.Profit, &sale.Date); err != nil {
			return nil, err
		}
		sale.Date = sale.Date.UTC()
		sales = append(sales, sale)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sales, nil
}

func (s *Store) GetSale(ctx context.Context, id string) (*domain.Sale, error) {
	var sale domain.Sale
	err := s.db.QueryRowContext(ctx, `
		SELECT id, product_id, product_name, cost_price, quantity, selling_price, profit, sale_date
		FROM sales
		WHERE id = $1
	`, id).Scan(&sale.ID, &sale.ProductID, &sale.ProductName, &sale.CostPrice, &sale.Quantity, &sale.SellingPrice, &sale.Profit, &sale.Date)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	sale.Date = sale.Date.UTC()
	return &sale, nil
}

func (s *Store) DeleteSale(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sales WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	if user.Username == "" || user.Password == "" {
		return store.ErrInvalidInput
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, password, role, active, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, user.Username, user.Password, user.Role, user.Active, user.CreatedAt)
	if err != nil && isUniqueViolation(err) {
		return store.ErrInvalidInput
	}
	return err
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password, role, active, created_at
		FROM users
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 8)
	for rows.Next() {
		var user domain.UserAccount
		if err := rows.Scan(&user.Username, &user.Password, &user.Role, &user.Active, &user.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET password = $2 WHERE username = $1
	`, username, password)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanProduct translates a products row into the canonical model, applying the
// selling-price migration default for legacy NULL columns.
func scanProduct(row rowScanner) (domain.Product, error) {
	var (
		product      domain.Product
		sellingPrice sql.NullFloat64
	)
	if err := row.Scan(&product.ID, &product.Name, &product.CostPrice, &sellingPrice, &product.Stock); err != nil {
		return domain.Product{}, err
	}
	if sellingPrice.Valid {
		product.SellingPrice = sellingPrice.Float64
	}
	return product.WithDefaultSellingPrice(), nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
