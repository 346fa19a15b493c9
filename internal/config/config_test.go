package config

import "testing"

func TestLoadDoesNotInjectAuthSecretDefault(t *testing.T) {
	t.Setenv("AUTH_SECRET", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.AuthSecret != "" {
		t.Fatalf("expected empty AUTH_SECRET when unset, got %q", cfg.AuthSecret)
	}
}

func TestLoadClampsNonPositiveTunables(t *testing.T) {
	t.Setenv("ACCESS_TOKEN_TTL_MINUTES", "0")
	t.Setenv("INSIGHTS_TTL_SECONDS", "-3")
	t.Setenv("LOW_STOCK_THRESHOLD", "0")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.AccessTokenTTLMinutes != 480 {
		t.Fatalf("expected token TTL fallback 480, got %d", cfg.AccessTokenTTLMinutes)
	}
	if cfg.InsightsTTLSeconds != 60 {
		t.Fatalf("expected insights TTL fallback 60, got %d", cfg.InsightsTTLSeconds)
	}
	if cfg.LowStockThreshold != 5 {
		t.Fatalf("expected low stock threshold fallback 5, got %d", cfg.LowStockThreshold)
	}
}

func TestAddressUsesPort(t *testing.T) {
	t.Setenv("PORT", "9090")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Address() != ":9090" {
		t.Fatalf("expected :9090, got %s", cfg.Address())
	}
}
