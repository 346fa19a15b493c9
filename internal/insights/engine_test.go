package insights

import (
	"context"
	"testing"
	"time"

	"kitani/backend/internal/domain"
)

var insightsNow = time.Date(2024, time.March, 14, 12, 0, 0, 0, time.UTC)

func saleAt(productID string, qty int, daysAgo int) domain.Sale {
	return domain.Sale{
		ID:        "sale-test",
		ProductID: productID,
		Quantity:  qty,
		Date:      insightsNow.AddDate(0, 0, -daysAgo),
	}
}

func TestSuggestFlagsFastMovers(t *testing.T) {
	engine := NewEngine(nil, time.Minute, 5)

	products := []domain.Product{
		{ID: "prod-fast", Name: "Face Serum", Stock: 6},
		{ID: "prod-slow", Name: "Clay Mask", Stock: 40},
	}
	// 30 units over the window: 1/day, so 6 in stock covers 6 days.
	sales := []domain.Sale{
		saleAt("prod-fast", 10, 2),
		saleAt("prod-fast", 10, 10),
		saleAt("prod-fast", 10, 25),
		saleAt("prod-slow", 3, 5),
	}

	insights := engine.Suggest(context.Background(), products, sales, insightsNow)

	if len(insights.Suggestions) != 1 {
		t.Fatalf("suggestions = %d, want 1", len(insights.Suggestions))
	}
	got := insights.Suggestions[0]
	if got.ProductID != "prod-fast" {
		t.Fatalf("suggested product = %s, want prod-fast", got.ProductID)
	}
	if got.DailyVelocity != 1.0 {
		t.Fatalf("daily velocity = %v, want 1.0", got.DailyVelocity)
	}
	if got.DaysOfStock != 6.0 {
		t.Fatalf("days of stock = %v, want 6.0", got.DaysOfStock)
	}
	// 14-day coverage needs 14 units, 6 already held.
	if got.SuggestedQty != 8 {
		t.Fatalf("suggested qty = %d, want 8", got.SuggestedQty)
	}
}

func TestSuggestIgnoresSalesOutsideWindow(t *testing.T) {
	engine := NewEngine(nil, time.Minute, 5)

	products := []domain.Product{{ID: "prod-1", Name: "Toner", Stock: 20}}
	sales := []domain.Sale{saleAt("prod-1", 300, 45)}

	insights := engine.Suggest(context.Background(), products, sales, insightsNow)

	if len(insights.Suggestions) != 0 {
		t.Fatalf("suggestions = %d, want 0", len(insights.Suggestions))
	}
}

func TestSuggestLowStockWithoutVelocity(t *testing.T) {
	engine := NewEngine(nil, time.Minute, 5)

	products := []domain.Product{{ID: "prod-1", Name: "Lip Balm", Stock: 2}}

	insights := engine.Suggest(context.Background(), products, nil, insightsNow)

	if len(insights.Suggestions) != 1 {
		t.Fatalf("suggestions = %d, want 1", len(insights.Suggestions))
	}
	got := insights.Suggestions[0]
	if got.DaysOfStock != maxDaysOfStock {
		t.Fatalf("days of stock = %v, want cap %d", got.DaysOfStock, maxDaysOfStock)
	}
	// Top back up to the low-stock threshold at minimum.
	if got.SuggestedQty != 3 {
		t.Fatalf("suggested qty = %d, want 3", got.SuggestedQty)
	}
}

func TestSuggestOrdersByUrgency(t *testing.T) {
	engine := NewEngine(nil, time.Minute, 5)

	products := []domain.Product{
		{ID: "prod-a", Name: "Cleanser", Stock: 10},
		{ID: "prod-b", Name: "Essence", Stock: 2},
	}
	sales := []domain.Sale{
		saleAt("prod-a", 30, 1),
		saleAt("prod-b", 30, 1),
	}

	insights := engine.Suggest(context.Background(), products, sales, insightsNow)

	if len(insights.Suggestions) != 2 {
		t.Fatalf("suggestions = %d, want 2", len(insights.Suggestions))
	}
	if insights.Suggestions[0].ProductID != "prod-b" {
		t.Fatalf("most urgent = %s, want prod-b", insights.Suggestions[0].ProductID)
	}
}

type stubCache struct {
	stored *domain.RestockInsights
	hits   int
}

func (c *stubCache) Get(_ context.Context, _ string) (*domain.RestockInsights, bool, error) {
	if c.stored == nil {
		return nil, false, nil
	}
	c.hits++
	return c.stored, true, nil
}

func (c *stubCache) Set(_ context.Context, _ string, value *domain.RestockInsights, _ time.Duration) error {
	c.stored = value
	return nil
}

func TestSuggestServesCachedEntryUntilExpiry(t *testing.T) {
	cacheStore := &stubCache{}
	engine := NewEngine(cacheStore, time.Minute, 5)

	products := []domain.Product{{ID: "prod-1", Name: "Lip Balm", Stock: 2}}

	first := engine.Suggest(context.Background(), products, nil, insightsNow)
	if cacheStore.stored == nil {
		t.Fatalf("expected insights to be cached after compute")
	}

	// Stock change alone must not be visible while the cache entry lives.
	products[0].Stock = 50
	second := engine.Suggest(context.Background(), products, nil, insightsNow)
	if cacheStore.hits != 1 {
		t.Fatalf("cache hits = %d, want 1", cacheStore.hits)
	}
	if len(second.Suggestions) != len(first.Suggestions) {
		t.Fatalf("cached result diverged from first compute")
	}

	// Expired entry forces a recompute against current stock.
	cacheStore.stored = nil
	third := engine.Suggest(context.Background(), products, nil, insightsNow)
	if len(third.Suggestions) != 0 {
		t.Fatalf("suggestions after restock = %d, want 0", len(third.Suggestions))
	}
}
