package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ENVIRONMENT", "")
	t.Setenv("INSIGHT_TTL_SECONDS", "")

	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port 8080, got %q", cfg.Port)
	}
	if !cfg.IsDevelopment() {
		t.Fatalf("expected development environment by default, got %q", cfg.Environment)
	}
	if cfg.InsightTTLSeconds != 300 {
		t.Fatalf("expected default insight TTL 300, got %d", cfg.InsightTTLSeconds)
	}
	if cfg.Address() != ":8080" {
		t.Fatalf("unexpected address: %q", cfg.Address())
	}
}

func TestLoadRejectsBrokenTTL(t *testing.T) {
	t.Setenv("INSIGHT_TTL_SECONDS", "not-a-number")

	cfg := Load()
	if cfg.InsightTTLSeconds != 300 {
		t.Fatalf("expected TTL fallback on garbage, got %d", cfg.InsightTTLSeconds)
	}

	t.Setenv("INSIGHT_TTL_SECONDS", "-5")
	cfg = Load()
	if cfg.InsightTTLSeconds != 300 {
		t.Fatalf("expected TTL fallback on negative value, got %d", cfg.InsightTTLSeconds)
	}
}
