package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != ":8080" {
		t.Fatalf("addr = %q, want :8080", cfg.Addr)
	}
	if cfg.RateBurst != 60 || cfg.RatePerSec != 20 {
		t.Fatalf("rate limits = %d/%d, want 60/20", cfg.RateBurst, cfg.RatePerSec)
	}
	if !cfg.Features.DonationConsole || !cfg.Features.AuditConsole || !cfg.Features.LiveDashboard {
		t.Fatalf("features default off: %+v", cfg.Features)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("RESCUE_ADDR", ":9999")
	t.Setenv("RESCUE_PG_DSN", "postgres://localhost/rescue_test")
	t.Setenv("RESCUE_RATE_BURST", "5")
	t.Setenv("RESCUE_RATE_PER_SEC", "2")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != ":9999" {
		t.Fatalf("addr = %q, want env override", cfg.Addr)
	}
	if cfg.PGDSN != "postgres://localhost/rescue_test" {
		t.Fatalf("pg_dsn = %q", cfg.PGDSN)
	}
	if cfg.RateBurst != 5 || cfg.RatePerSec != 2 {
		t.Fatalf("rate limits = %d/%d, want env overrides 5/2", cfg.RateBurst, cfg.RatePerSec)
	}
}
