package cache

import (
	"context"
	"time"

	"kitani/backend/internal/domain"
)

type InsightsCache interface {
	Get(ctx context.Context, key string) (*domain.RestockInsights, bool, error)
	Set(ctx context.Context, key string, value *domain.RestockInsights, ttl time.Duration) error
}

type NoopInsightsCache struct{}

func (NoopInsightsCache) Get(_ context.Context, _ string) (*domain.RestockInsights, bool, error) {
	return nil, false, nil
}

func (NoopInsightsCache) Set(_ context.Context, _ string, _ *domain.RestockInsights, _ time.Duration) error {
	return nil
}
