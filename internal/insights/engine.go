package insights

import (
	"context"
	"math"
	"sort"
	"time"

	"kitani/backend/internal/cache"
	"kitani/backend/internal/domain"
)

const (
	// CacheKey is the single cache slot for restock insights. Entries expire
	// by TTL only.
	CacheKey = "insights:restock"

	windowDays     = 30
	coverageDays   = 14
	maxDaysOfStock = 9999
)

type Engine struct {
	cache             cache.InsightsCache
	cacheTTL          time.Duration
	lowStockThreshold int
}

func NewEngine(cacheStore cache.InsightsCache, cacheTTL time.Duration, lowStockThreshold int) *Engine {
	if cacheStore == nil {
		cacheStore = cache.NoopInsightsCache{}
	}
	if cacheTTL <= 0 {
		cacheTTL = 60 * time.Second
	}
	if lowStockThreshold <= 0 {
		lowStockThreshold = 5
	}

	return &Engine{
		cache:             cacheStore,
		cacheTTL:          cacheTTL,
		lowStockThreshold: lowStockThreshold,
	}
}

// Suggest ranks products by how soon they run out, using units sold over the
// trailing window as the velocity signal. Cache errors degrade to a fresh
// compute, never to a failed request.
func (e *Engine) Suggest(ctx context.Context, products []domain.Product, sales []domain.Sale, now time.Time) domain.RestockInsights {
	if cached, ok, err := e.cache.Get(ctx, CacheKey); err == nil && ok {
		return *cached
	}

	windowStart := now.AddDate(0, 0, -windowDays)
	soldInWindow := make(map[string]int, len(products))
	for _, sale := range sales {
		if sale.Date.Before(windowStart) {
			continue
		}
		soldInWindow[sale.ProductID] += sale.Quantity
	}

	suggestions := make([]domain.RestockSuggestion, 0, len(products))
	for _, product := range products {
		velocity := float64(soldInWindow[product.ID]) / float64(windowDays)

		// Zero-velocity products report the cap instead of infinity so the
		// payload stays valid JSON.
		daysOfStock := float64(maxDaysOfStock)
		if velocity > 0 {
			daysOfStock = float64(product.Stock) / velocity
			if daysOfStock > maxDaysOfStock {
				daysOfStock = maxDaysOfStock
			}
		}

		if daysOfStock >= coverageDays && product.Stock >= e.lowStockThreshold {
			continue
		}

		suggested := int(math.Ceil(velocity*coverageDays)) - product.Stock
		if product.Stock < e.lowStockThreshold && suggested < e.lowStockThreshold-product.Stock {
			suggested = e.lowStockThreshold - product.Stock
		}
		if suggested < 1 {
			suggested = 1
		}

		suggestions = append(suggestions, domain.RestockSuggestion{
			ProductID:     product.ID,
			Name:          product.Name,
			Stock:         product.Stock,
			DailyVelocity: round2(velocity),
			DaysOfStock:   round2(daysOfStock),
			SuggestedQty:  suggested,
		})
	}

	sort.Slice(suggestions, func(i, j int) bool {
		if suggestions[i].DaysOfStock != suggestions[j].DaysOfStock {
			return suggestions[i].DaysOfStock < suggestions[j].DaysOfStock
		}
		return suggestions[i].ProductID < suggestions[j].ProductID
	})

	insights := domain.RestockInsights{
		GeneratedAt: now.UTC().Format(time.RFC3339),
		WindowDays:  windowDays,
		Suggestions: suggestions,
	}

	_ = e.cache.Set(ctx, CacheKey, &insights, e.cacheTTL)

	return insights
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
