package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"kitani/backend/internal/domain"
	"kitani/backend/internal/insights"
	"kitani/backend/internal/report"
	"kitani/backend/internal/store"
)

var (
	ErrOwnerRequired        = errors.New("owner role required")
	ErrAuthRequired         = errors.New("authentication required")
	ErrConfirmationRequired = errors.New("sale deletion requires confirmation")
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Service struct {
	repo              store.Repository
	insights          *insights.Engine
	validate          *validator.Validate
	logger            *slog.Logger
	lowStockThreshold int
}

func New(repo store.Repository, insightsEngine *insights.Engine, logger *slog.Logger, lowStockThreshold int) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if lowStockThreshold <= 0 {
		lowStockThreshold = 5
	}

	return &Service{
		repo:              repo,
		insights:          insightsEngine,
		validate:          validator.New(validator.WithRequiredStructEnabled()),
		logger:            logger,
		lowStockThreshold: lowStockThreshold,
	}
}

func (s *Service) requireOwner(ctx context.Context) error {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleOwner {
		return ErrOwnerRequired
	}
	return nil
}

// ListProducts returns the catalog name-ascending, optionally narrowed to
// names containing the query.
func (s *Service) ListProducts(ctx context.Context, query string) ([]domain.Product, error) {
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return nil, err
	}

	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return products, nil
	}

	matched := make([]domain.Product, 0, len(products))
	for _, product := range products {
		if strings.Contains(strings.ToLower(product.Name), query) {
			matched = append(matched, product)
		}
	}
	return matched, nil
}

func (s *Service) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	product, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	return *product, nil
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	if err := s.requireOwner(ctx); err != nil {
		return domain.Product{}, err
	}
	if err := s.validate.Struct(req); err != nil {
		return domain.Product{}, fmt.Errorf("%w: %v", store.ErrInvalidInput, err)
	}

	name := strings.TrimSpace(*req.Name)
	if name == "" {
		return domain.Product{}, fmt.Errorf("%w: name is required", store.ErrInvalidInput)
	}

	created, err := s.repo.CreateProduct(ctx, domain.Product{
		Name:         name,
		CostPrice:    *req.CostPrice,
		SellingPrice: *req.SellingPrice,
		Stock:        *req.Stock,
	})
	if err != nil {
		return domain.Product{}, err
	}
	return created.WithDefaultSellingPrice(), nil
}

// UpdateProduct replaces the whole record. Earlier sales keep their recorded
// snapshots regardless.
func (s *Service) UpdateProduct(ctx context.Context, id string, req domain.ProductUpdateRequest) (domain.Product, error) {
	if err := s.requireOwner(ctx); err != nil {
		return domain.Product{}, err
	}
	if err := s.validate.Struct(req); err != nil {
		return domain.Product{}, fmt.Errorf("%w: %v", store.ErrInvalidInput, err)
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Product{}, fmt.Errorf("%w: name is required", store.ErrInvalidInput)
	}

	updated, err := s.repo.UpdateProduct(ctx, domain.Product{
		ID:           id,
		Name:         name,
		CostPrice:    req.CostPrice,
		SellingPrice: req.SellingPrice,
		Stock:        req.Stock,
	})
	if err != nil {
		return domain.Product{}, err
	}
	return updated.WithDefaultSellingPrice(), nil
}

func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	if err := s.requireOwner(ctx); err != nil {
		return err
	}
	return s.repo.DeleteProduct(ctx, id)
}

func (s *Service) RestockProduct(ctx context.Context, id string, req domain.RestockRequest) (domain.Product, error) {
	if err := s.requireOwner(ctx); err != nil {
		return domain.Product{}, err
	}
	if err := s.validate.Struct(req); err != nil {
		return domain.Product{}, fmt.Errorf("%w: %v", store.ErrInvalidInput, err)
	}

	if err := s.repo.IncrementProductStock(ctx, id, *req.Amount); err != nil {
		return domain.Product{}, err
	}
	return s.GetProduct(ctx, id)
}

// RecordSale validates the request, rejects dates after today, and hands the
// snapshotting and the stock decrement to the store as one atomic write.
func (s *Service) RecordSale(ctx context.Context, req domain.RecordSaleRequest) (domain.Sale, error) {
	if _, ok := ActorFromContext(ctx); !ok {
		return domain.Sale{}, ErrAuthRequired
	}
	if err := s.validate.Struct(req); err != nil {
		return domain.Sale{}, fmt.Errorf("%w: %v", store.ErrInvalidInput, err)
	}

	saleDate, err := parseSaleDate(req.Date)
	if err != nil {
		return domain.Sale{}, fmt.Errorf("%w: %v", store.ErrInvalidInput, err)
	}
	if report.Day(saleDate).After(report.Day(time.Now().UTC())) {
		return domain.Sale{}, store.ErrFutureDate
	}

	created, err := s.repo.RecordSale(ctx, domain.Sale{
		ProductID:    req.ProductID,
		Quantity:     *req.Quantity,
		SellingPrice: *req.SellingPrice,
		Date:         saleDate,
	})
	if err != nil {
		return domain.Sale{}, err
	}
	return *created, nil
}

func (s *Service) ListSales(ctx context.Context, filterRaw string, start string, end string) ([]domain.Sale, error) {
	filter := report.ParseFilter(filterRaw)
	rng, err := parseRange(start, end)
	if err != nil {
		return nil, err
	}

	sales, err := s.repo.ListSales(ctx)
	if err != nil {
		return nil, err
	}
	return report.FilterSales(sales, filter, rng, time.Now().UTC()), nil
}

func (s *Service) GetSale(ctx context.Context, id string) (domain.Sale, error) {
	sale, err := s.repo.GetSale(ctx, id)
	if err != nil {
		return domain.Sale{}, err
	}
	return *sale, nil
}

// DeleteSale removes the ledger entry and then restores the sold quantity to
// the product. The two writes are deliberately separate: once the sale is
// gone it stays gone, and a failed restore is reported on the result rather
// than rolled back.
func (s *Service) DeleteSale(ctx context.Context, id string, confirmed bool) (domain.DeleteSaleResult, error) {
	if err := s.requireOwner(ctx); err != nil {
		return domain.DeleteSaleResult{}, err
	}
	if !confirmed {
		return domain.DeleteSaleResult{}, ErrConfirmationRequired
	}

	sale, err := s.repo.GetSale(ctx, id)
	if err != nil {
		return domain.DeleteSaleResult{}, err
	}

	if err := s.repo.DeleteSale(ctx, id); err != nil {
		return domain.DeleteSaleResult{}, err
	}

	result := domain.DeleteSaleResult{
		SaleID:    sale.ID,
		ProductID: sale.ProductID,
	}

	err = s.repo.IncrementProductStock(ctx, sale.ProductID, sale.Quantity)
	switch {
	case err == nil:
		result.StockRestored = true
	case errors.Is(err, store.ErrNotFound):
		// Product was deleted after the sale; nothing to restore.
	default:
		result.Warning = "sale deleted but stock not restored"
		s.logger.Warn("stock restore failed after sale deletion",
			"sale_id", sale.ID, "product_id", sale.ProductID, "qty", sale.Quantity, "error", err)
	}

	return result, nil
}

func (s *Service) Summary(ctx context.Context, filterRaw string, start string, end string) (domain.Summary, error) {
	filter := report.ParseFilter(filterRaw)
	rng, err := parseRange(start, end)
	if err != nil {
		return domain.Summary{}, err
	}

	sales, err := s.repo.ListSales(ctx)
	if err != nil {
		return domain.Summary{}, err
	}
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return domain.Summary{}, err
	}

	filtered := report.FilterSales(sales, filter, rng, time.Now().UTC())
	return report.Summarize(filter, filtered, products, s.lowStockThreshold), nil
}

func (s *Service) RestockInsights(ctx context.Context) (domain.RestockInsights, error) {
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return domain.RestockInsights{}, err
	}
	sales, err := s.repo.ListSales(ctx)
	if err != nil {
		return domain.RestockInsights{}, err
	}
	return s.insights.Suggest(ctx, products, sales, time.Now().UTC()), nil
}

func (s *Service) CreateStaff(ctx context.Context, req domain.StaffCreateRequest) (domain.StaffUser, error) {
	if err := s.requireOwner(ctx); err != nil {
		return domain.StaffUser{}, err
	}

	username := strings.ToLower(strings.TrimSpace(req.Username))
	if username == "" || len(req.Password) < 8 {
		return domain.StaffUser{}, fmt.Errorf("%w: username and a password of at least 8 characters are required", store.ErrInvalidInput)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return domain.StaffUser{}, err
	}

	account := domain.UserAccount{
		Username:  username,
		Password:  string(hash),
		Role:      domain.RoleStaff,
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.CreateUser(ctx, account); err != nil {
		return domain.StaffUser{}, err
	}

	return domain.StaffUser{
		Username:  account.Username,
		Role:      account.Role,
		Active:    account.Active,
		CreatedAt: account.CreatedAt,
	}, nil
}

func (s *Service) ListStaff(ctx context.Context) ([]domain.StaffUser, error) {
	if err := s.requireOwner(ctx); err != nil {
		return nil, err
	}

	accounts, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, err
	}

	users := make([]domain.StaffUser, 0, len(accounts))
	for _, account := range accounts {
		users = append(users, domain.StaffUser{
			Username:  account.Username,
			Role:      account.Role,
			Active:    account.Active,
			CreatedAt: account.CreatedAt,
		})
	}
	return users, nil
}

// ChangePassword lets any authenticated actor rotate their own credential.
func (s *Service) ChangePassword(ctx context.Context, newPassword string) error {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return ErrAuthRequired
	}
	if len(newPassword) < 8 {
		return fmt.Errorf("%w: password must be at least 8 characters", store.ErrInvalidInput)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.repo.UpdateUserPassword(ctx, actor.Username, string(hash))
}

func parseSaleDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("date %q is not RFC3339 or YYYY-MM-DD", raw)
}

func parseRange(start string, end string) (report.Range, error) {
	var rng report.Range

	if start = strings.TrimSpace(start); start != "" {
		t, err := time.Parse("2006-01-02", start)
		if err != nil {
			return report.Range{}, fmt.Errorf("%w: start %q is not YYYY-MM-DD", store.ErrInvalidInput, start)
		}
		rng.Start = t.UTC()
	}
	if end = strings.TrimSpace(end); end != "" {
		t, err := time.Parse("2006-01-02", end)
		if err != nil {
			return report.Range{}, fmt.Errorf("%w: end %q is not YYYY-MM-DD", store.ErrInvalidInput, end)
		}
		rng.End = t.UTC()
	}
	return rng, nil
}
