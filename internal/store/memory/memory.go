package memory

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"kitani/backend/internal/domain"
	"kitani/backend/internal/report"
	"kitani/backend/internal/store"
	"kitani/backend/internal/xid"
)

// Store is the local persistence variant: mutex-guarded maps, durable for the
// process lifetime. It mirrors the postgres store's semantics exactly so the
// service layer never cares which backend is active.
type Store struct {
	mu              sync.RWMutex
	products        map[string]domain.Product
	sales           map[string]domain.Sale
	usersByUsername map[string]domain.UserAccount
}

func New() *Store {
	return &Store{
		products:        make(map[string]domain.Product),
		sales:           make(map[string]domain.Sale),
		usersByUsername: seedUsers(),
	}
}

// NewSeeded returns a store preloaded with a small demo catalog for dev mode.
func NewSeeded() *Store {
	s := New()

	products := []domain.Product{
		{ID: xid.New("prod"), Name: "Face Serum", CostPrice: 1000, SellingPrice: 1500, Stock: 10},
		{ID: xid.New("prod"), Name: "Body Butter", CostPrice: 2500, SellingPrice: 3500, Stock: 5},
		{ID: xid.New("prod"), Name: "Lip Balm", CostPrice: 500, SellingPrice: 800, Stock: 20},
		{ID: xid.New("prod"), Name: "Shea Soap", CostPrice: 700, SellingPrice: 1200, Stock: 15},
		{ID: xid.New("prod"), Name: "Hair Oil", CostPrice: 1800, SellingPrice: 2800, Stock: 8},
	}
	for _, p := range products {
		s.products[p.ID] = p
	}

	return s
}

// seedUsers builds the initial in-memory accounts for dev/demo mode.
// Credentials come from SEED_OWNER_PASSWORD and SEED_STAFF_PASSWORD; hardcoded
// dev defaults are used with a warning when unset. Production deployments use
// PostgreSQL (DATABASE_URL set) where accounts live in the users table.
func seedUsers() map[string]domain.UserAccount {
	ownerPwd := envOr("SEED_OWNER_PASSWORD", "owner123")
	staffPwd := envOr("SEED_STAFF_PASSWORD", "staff123")
	if os.Getenv("SEED_OWNER_PASSWORD") == "" || os.Getenv("SEED_STAFF_PASSWORD") == "" {
		slog.Warn("memory store using default dev credentials; set SEED_OWNER_PASSWORD and SEED_STAFF_PASSWORD to override")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"owner", ownerPwd, domain.RoleOwner},
		{"staff", staffPwd, domain.RoleStaff},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			slog.Error("failed to hash seed password", "username", u.username, "error", err)
			os.Exit(1)
		}
		users[u.username] = domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func (s *Store) ListProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		products = append(products, p.WithDefaultSellingPrice())
	}

	slices.SortFunc(products, func(a, b domain.Product) int {
		if a.Name == b.Name {
			return cmpString(a.ID, b.ID)
		}
		return cmpString(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})

	return products, nil
}

func (s *Store) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, exists := s.products[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyProduct := product.WithDefaultSellingPrice()
	return &copyProduct, nil
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	if strings.TrimSpace(product.Name) == "" || product.CostPrice < 0 || product.SellingPrice < 0 || product.Stock < 0 {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	product.ID = xid.New("prod")
	s.products[product.ID] = product
	created := product
	return &created, nil
}

func (s *Store) UpdateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	if product.ID == "" || strings.TrimSpace(product.Name) == "" || product.CostPrice < 0 || product.SellingPrice < 0 || product.Stock < 0 {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.products[product.ID]; !exists {
		return nil, store.ErrNotFound
	}

	s.products[product.ID] = product
	updated := product
	return &updated, nil
}

func (s *Store) DeleteProduct(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.products[id]; !exists {
		return store.ErrNotFound
	}
	// Sales referencing this product keep their snapshots; no cascade.
	delete(s.products, id)
	return nil
}

func (s *Store) IncrementProductStock(_ context.Context, id string, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	product, exists := s.products[id]
	if !exists {
		return store.ErrNotFound
	}
	next := product.Stock + delta
	if next < 0 {
		return store.ErrInsufficientStock
	}
	product.Stock = next
	s.products[id] = product
	return nil
}

// RecordSale inserts the sale and decrements the product's stock under one
// lock. Snapshot fields and profit are resolved here, from the product row as
// it stands at commit time, so a concurrent product edit cannot slip between
// the read and the write.
func (s *Store) RecordSale(_ context.Context, sale domain.Sale) (*domain.Sale, error) {
	if sale.ProductID == "" || sale.Quantity < 1 || sale.SellingPrice < 0 || sale.Date.IsZero() {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	product, exists := s.products[sale.ProductID]
	if !exists {
		return nil, store.ErrNotFound
	}
	if sale.Quantity > product.Stock {
		return nil, store.ErrInsufficientStock
	}

	product = product.WithDefaultSellingPrice()
	sale.ID = xid.New("sale")
	sale.ProductName = product.Name
	sale.CostPrice = product.CostPrice
	sale.Profit = (sale.SellingPrice - product.CostPrice) * float64(sale.Quantity)
	sale.Date = report.NormalizeSaleDate(sale.Date)

	product.Stock -= sale.Quantity
	s.products[sale.ProductID] = product
	s.sales[sale.ID] = sale

	created := sale
	return &created, nil
}

func (s *Store) ListSales(_ context.Context) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sales := make([]domain.Sale, 0, len(s.sales))
	for _, sale := range s.sales {
		sales = append(sales, sale)
	}

	slices.SortFunc(sales, func(a, b domain.Sale) int {
		if a.Date.Equal(b.Date) {
			return cmpString(b.ID, a.ID)
		}
		if a.Date.After(b.Date) {
			return -1
		}
		return 1
	})

	return sales, nil
}

func (s *Store) GetSale(_ context.Context, id string) (*domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sale, exists := s.sales[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copySale := sale
	return &copySale, nil
}

func (s *Store) DeleteSale(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sales[id]; !exists {
		return store.ErrNotFound
	}
	delete(s.sales, id)
	return nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	username := strings.ToLower(strings.TrimSpace(user.Username))
	if username == "" || user.Password == "" {
		return store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.usersByUsername[username]; exists {
		return fmt.Errorf("%w: username %s already exists", store.ErrInvalidInput, username)
	}
	user.Username = username
	s.usersByUsername[username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, user := range s.usersByUsername {
		users = append(users, user)
	}
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, exists := s.usersByUsername[username]
	if !exists {
		return store.ErrNotFound
	}
	user.Password = password
	s.usersByUsername[username] = user
	return nil
}

func cmpString(a string, b string) int {
	if a == b {
		return 0
	}
	if a < b {
		return -1
	}
	return 1
}
