package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"kitani/backend/internal/domain"
	"kitani/backend/internal/insights"
	"kitani/backend/internal/store"
	"kitani/backend/internal/store/memory"
)

func newTestService(repo store.Repository) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(repo, insights.NewEngine(nil, time.Minute, 5), logger, 5)
}

func ownerCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{Username: "kitani", Role: domain.RoleOwner})
}

func staffCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{Username: "sari", Role: domain.RoleStaff})
}

func strPtr(v string) *string    { return &v }
func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int          { return &v }

func createProduct(t *testing.T, svc *Service, name string, cost float64, sell float64, stock int) domain.Product {
	t.Helper()
	product, err := svc.CreateProduct(ownerCtx(), domain.ProductCreateRequest{
		Name:         strPtr(name),
		CostPrice:    floatPtr(cost),
		SellingPrice: floatPtr(sell),
		Stock:        intPtr(stock),
	})
	if err != nil {
		t.Fatalf("CreateProduct(%s): %v", name, err)
	}
	return product
}

func recordSale(t *testing.T, svc *Service, productID string, qty int, price float64) domain.Sale {
	t.Helper()
	sale, err := svc.RecordSale(staffCtx(), domain.RecordSaleRequest{
		ProductID:    productID,
		Quantity:     intPtr(qty),
		SellingPrice: floatPtr(price),
		Date:         time.Now().UTC().Format("2006-01-02"),
	})
	if err != nil {
		t.Fatalf("RecordSale: %v", err)
	}
	return sale
}

func TestCreateProductRequiresOwner(t *testing.T) {
	svc := newTestService(memory.New())

	_, err := svc.CreateProduct(staffCtx(), domain.ProductCreateRequest{
		Name:         strPtr("Face Serum"),
		CostPrice:    floatPtr(1000),
		SellingPrice: floatPtr(1500),
		Stock:        intPtr(10),
	})
	if !errors.Is(err, ErrOwnerRequired) {
		t.Fatalf("staff create error = %v, want ErrOwnerRequired", err)
	}
}

func TestCreateProductValidation(t *testing.T) {
	svc := newTestService(memory.New())

	cases := []struct {
		name string
		req  domain.ProductCreateRequest
	}{
		{"missing name", domain.ProductCreateRequest{CostPrice: floatPtr(10), SellingPrice: floatPtr(15), Stock: intPtr(1)}},
		{"blank name", domain.ProductCreateRequest{Name: strPtr("   "), CostPrice: floatPtr(10), SellingPrice: floatPtr(15), Stock: intPtr(1)}},
		{"missing cost", domain.ProductCreateRequest{Name: strPtr("Toner"), SellingPrice: floatPtr(15), Stock: intPtr(1)}},
		{"negative cost", domain.ProductCreateRequest{Name: strPtr("Toner"), CostPrice: floatPtr(-1), SellingPrice: floatPtr(15), Stock: intPtr(1)}},
		{"negative stock", domain.ProductCreateRequest{Name: strPtr("Toner"), CostPrice: floatPtr(10), SellingPrice: floatPtr(15), Stock: intPtr(-2)}},
	}
	for _, tc := range cases {
		if _, err := svc.CreateProduct(ownerCtx(), tc.req); !errors.Is(err, store.ErrInvalidInput) {
			t.Fatalf("%s: error = %v, want ErrInvalidInput", tc.name, err)
		}
	}
}

func TestListProductsSearch(t *testing.T) {
	svc := newTestService(memory.New())
	createProduct(t, svc, "Face Serum", 1000, 1500, 10)
	createProduct(t, svc, "Clay Mask", 500, 900, 8)
	createProduct(t, svc, "Serum Gold", 2000, 3200, 4)

	products, err := svc.ListProducts(context.Background(), "serum")
	if err != nil {
		t.Fatalf("ListProducts: %v", err)
	}
	if len(products) != 2 {
		t.Fatalf("matched = %d, want 2", len(products))
	}
	if products[0].Name != "Face Serum" || products[1].Name != "Serum Gold" {
		t.Fatalf("unexpected order: %s, %s", products[0].Name, products[1].Name)
	}
}

func TestRecordSaleRejectsFutureDate(t *testing.T) {
	svc := newTestService(memory.New())
	product := createProduct(t, svc, "Face Serum", 1000, 1500, 10)

	tomorrow := time.Now().UTC().AddDate(0, 0, 1).Format("2006-01-02")
	_, err := svc.RecordSale(staffCtx(), domain.RecordSaleRequest{
		ProductID:    product.ID,
		Quantity:     intPtr(1),
		SellingPrice: floatPtr(1500),
		Date:         tomorrow,
	})
	if !errors.Is(err, store.ErrFutureDate) {
		t.Fatalf("future sale error = %v, want ErrFutureDate", err)
	}

	got, err := svc.GetProduct(context.Background(), product.ID)
	if err != nil {
		t.Fatalf("GetProduct: %v", err)
	}
	if got.Stock != 10 {
		t.Fatalf("stock after rejected sale = %d, want 10", got.Stock)
	}
}

func TestRecordSaleRejectsBadDateFormat(t *testing.T) {
	svc := newTestService(memory.New())
	product := createProduct(t, svc, "Face Serum", 1000, 1500, 10)

	_, err := svc.RecordSale(staffCtx(), domain.RecordSaleRequest{
		ProductID:    product.ID,
		Quantity:     intPtr(1),
		SellingPrice: floatPtr(1500),
		Date:         "31/12/2023",
	})
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("bad date error = %v, want ErrInvalidInput", err)
	}
}

func TestRecordSaleSnapshotsAndDecrements(t *testing.T) {
	svc := newTestService(memory.New())
	product := createProduct(t, svc, "Face Serum", 1000, 1500, 10)

	sale := recordSale(t, svc, product.ID, 3, 1500)

	if sale.ProductName != "Face Serum" || sale.CostPrice != 1000 {
		t.Fatalf("snapshot = %s/%v, want Face Serum/1000", sale.ProductName, sale.CostPrice)
	}
	if sale.Profit != 1500 {
		t.Fatalf("profit = %v, want 1500", sale.Profit)
	}

	got, err := svc.GetProduct(context.Background(), product.ID)
	if err != nil {
		t.Fatalf("GetProduct: %v", err)
	}
	if got.Stock != 7 {
		t.Fatalf("stock = %d, want 7", got.Stock)
	}
}

func TestDeleteSaleRequiresConfirmation(t *testing.T) {
	svc := newTestService(memory.New())
	product := createProduct(t, svc, "Face Serum", 1000, 1500, 10)
	sale := recordSale(t, svc, product.ID, 2, 1500)

	_, err := svc.DeleteSale(ownerCtx(), sale.ID, false)
	if !errors.Is(err, ErrConfirmationRequired) {
		t.Fatalf("unconfirmed delete error = %v, want ErrConfirmationRequired", err)
	}

	sales, err := svc.ListSales(context.Background(), "all", "", "")
	if err != nil {
		t.Fatalf("ListSales: %v", err)
	}
	if len(sales) != 1 {
		t.Fatalf("sales after unconfirmed delete = %d, want 1", len(sales))
	}
}

func TestDeleteSaleRequiresOwner(t *testing.T) {
	svc := newTestService(memory.New())
	product := createProduct(t, svc, "Face Serum", 1000, 1500, 10)
	sale := recordSale(t, svc, product.ID, 2, 1500)

	if _, err := svc.DeleteSale(staffCtx(), sale.ID, true); !errors.Is(err, ErrOwnerRequired) {
		t.Fatalf("staff delete error = %v, want ErrOwnerRequired", err)
	}
}

func TestDeleteSaleRestoresStock(t *testing.T) {
	svc := newTestService(memory.New())
	product := createProduct(t, svc, "Face Serum", 1000, 1500, 10)
	sale := recordSale(t, svc, product.ID, 3, 1500)

	result, err := svc.DeleteSale(ownerCtx(), sale.ID, true)
	if err != nil {
		t.Fatalf("DeleteSale: %v", err)
	}
	if !result.StockRestored {
		t.Fatalf("StockRestored = false, want true")
	}
	if result.Warning != "" {
		t.Fatalf("warning = %q, want empty", result.Warning)
	}

	got, err := svc.GetProduct(context.Background(), product.ID)
	if err != nil {
		t.Fatalf("GetProduct: %v", err)
	}
	if got.Stock != 10 {
		t.Fatalf("stock after restore = %d, want 10", got.Stock)
	}
}

func TestDeleteSaleWithDeletedProduct(t *testing.T) {
	svc := newTestService(memory.New())
	product := createProduct(t, svc, "Face Serum", 1000, 1500, 10)
	sale := recordSale(t, svc, product.ID, 3, 1500)

	if err := svc.DeleteProduct(ownerCtx(), product.ID); err != nil {
		t.Fatalf("DeleteProduct: %v", err)
	}

	result, err := svc.DeleteSale(ownerCtx(), sale.ID, true)
	if err != nil {
		t.Fatalf("DeleteSale: %v", err)
	}
	if result.StockRestored {
		t.Fatalf("StockRestored = true for deleted product, want false")
	}
	if result.Warning != "" {
		t.Fatalf("warning = %q, want empty for the silent no-op", result.Warning)
	}

	if _, err := svc.GetSale(context.Background(), sale.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("sale still present after delete: err = %v", err)
	}
}

// brokenStockRepo fails every stock increment, standing in for a backend that
// lost the product table write between the two deletion steps.
type brokenStockRepo struct {
	store.Repository
}

func (r *brokenStockRepo) IncrementProductStock(_ context.Context, _ string, _ int) error {
	return errors.New("write timeout")
}

func TestDeleteSaleReportsPartialSuccess(t *testing.T) {
	repo := memory.New()
	svc := newTestService(repo)
	product := createProduct(t, svc, "Face Serum", 1000, 1500, 10)
	sale := recordSale(t, svc, product.ID, 3, 1500)

	broken := newTestService(&brokenStockRepo{Repository: repo})
	result, err := broken.DeleteSale(ownerCtx(), sale.ID, true)
	if err != nil {
		t.Fatalf("DeleteSale: %v", err)
	}
	if result.StockRestored {
		t.Fatalf("StockRestored = true, want false")
	}
	if result.Warning != "sale deleted but stock not restored" {
		t.Fatalf("warning = %q", result.Warning)
	}

	// The deletion itself must stand.
	if _, err := svc.GetSale(context.Background(), sale.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("sale still present after partial delete: err = %v", err)
	}
	got, err := svc.GetProduct(context.Background(), product.ID)
	if err != nil {
		t.Fatalf("GetProduct: %v", err)
	}
	if got.Stock != 7 {
		t.Fatalf("stock = %d, want 7 (restore failed)", got.Stock)
	}
}

func TestSummaryAggregatesFilteredSales(t *testing.T) {
	svc := newTestService(memory.New())
	product := createProduct(t, svc, "Face Serum", 1000, 1500, 10)
	recordSale(t, svc, product.ID, 3, 1500)

	summary, err := svc.Summary(context.Background(), "day", "", "")
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if summary.TotalSales != 4500 {
		t.Fatalf("total sales = %v, want 4500", summary.TotalSales)
	}
	if summary.TotalProfit != 1500 {
		t.Fatalf("total profit = %v, want 1500", summary.TotalProfit)
	}
	if summary.Tithe != 150 {
		t.Fatalf("tithe = %v, want 150", summary.Tithe)
	}
	if summary.TotalInventoryValue != 7000 {
		t.Fatalf("inventory value = %v, want 7000", summary.TotalInventoryValue)
	}
}

func TestSummaryRejectsMalformedCustomRange(t *testing.T) {
	svc := newTestService(memory.New())

	if _, err := svc.Summary(context.Background(), "custom", "01-02-2024", ""); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("bad range error = %v, want ErrInvalidInput", err)
	}
}

func TestRestockProduct(t *testing.T) {
	svc := newTestService(memory.New())
	product := createProduct(t, svc, "Face Serum", 1000, 1500, 10)

	updated, err := svc.RestockProduct(ownerCtx(), product.ID, domain.RestockRequest{Amount: intPtr(5)})
	if err != nil {
		t.Fatalf("RestockProduct: %v", err)
	}
	if updated.Stock != 15 {
		t.Fatalf("stock = %d, want 15", updated.Stock)
	}

	if _, err := svc.RestockProduct(ownerCtx(), product.ID, domain.RestockRequest{Amount: intPtr(-5)}); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("negative restock error = %v, want ErrInvalidInput", err)
	}
}

func TestCreateStaff(t *testing.T) {
	svc := newTestService(memory.New())

	user, err := svc.CreateStaff(ownerCtx(), domain.StaffCreateRequest{Username: "Sari ", Password: "s3cret-pass"})
	if err != nil {
		t.Fatalf("CreateStaff: %v", err)
	}
	if user.Username != "sari" || user.Role != domain.RoleStaff || !user.Active {
		t.Fatalf("unexpected staff record: %+v", user)
	}

	if _, err := svc.CreateStaff(ownerCtx(), domain.StaffCreateRequest{Username: "budi", Password: "short"}); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("weak password error = %v, want ErrInvalidInput", err)
	}
	if _, err := svc.CreateStaff(staffCtx(), domain.StaffCreateRequest{Username: "lina", Password: "s3cret-pass"}); !errors.Is(err, ErrOwnerRequired) {
		t.Fatalf("staff creating staff error = %v, want ErrOwnerRequired", err)
	}
}
