package config

import "testing"

func TestLoad_DefaultsFromEnvTags(t *testing.T) {
	t.Setenv("MONGODB_URI", "mongodb://localhost:27017")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DBName != "fleetcron" {
		t.Errorf("expected default db_name fleetcron, got %q", cfg.DBName)
	}
	if cfg.TZ != "Asia/Seoul" {
		t.Errorf("expected default tz Asia/Seoul, got %q", cfg.TZ)
	}
	if cfg.OrderField != "order" {
		t.Errorf("expected default order_field order, got %q", cfg.OrderField)
	}
	if cfg.DefaultOrder != 9999 {
		t.Errorf("expected default_order 9999, got %d", cfg.DefaultOrder)
	}
	if cfg.MaxOrder != 10 || cfg.MaxSerial != 10 {
		t.Errorf("expected max_order/max_serial defaults of 10, got %d/%d", cfg.MaxOrder, cfg.MaxSerial)
	}
	if cfg.HTTPDefaults.TimeoutSec != 10 {
		t.Errorf("expected http_defaults.timeout_sec 10, got %d", cfg.HTTPDefaults.TimeoutSec)
	}
	if cfg.HTTPDefaults.Retry.Retries != 2 || cfg.HTTPDefaults.Retry.DelaySec != 3 || cfg.HTTPDefaults.Retry.Backoff != 1.5 {
		t.Errorf("unexpected retry defaults: %+v", cfg.HTTPDefaults.Retry)
	}
}

func TestLoad_MissingMongoURIFailsValidation(t *testing.T) {
	t.Setenv("MONGODB_URI", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected validation error for missing mongodb_uri")
	}
}

func TestMaxActiveMachines_SmallerAliasWins(t *testing.T) {
	cfg := &Config{MaxOrder: 10, MaxSerial: 4}
	if got := cfg.MaxActiveMachines(); got != 4 {
		t.Fatalf("expected 4, got %d", got)
	}

	cfg = &Config{MaxOrder: 3, MaxSerial: 10}
	if got := cfg.MaxActiveMachines(); got != 3 {
		t.Fatalf("expected 3, got %d", got)
	}
}

func TestStore_GetReflectsReload(t *testing.T) {
	t.Setenv("MONGODB_URI", "mongodb://localhost:27017")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	store := NewStore(cfg)
	if store.Get().DBName != "fleetcron" {
		t.Fatalf("expected initial snapshot, got %+v", store.Get())
	}

	t.Setenv("DB_NAME", "fleetcron_reloaded")
	if err := store.Reload(); err != nil {
		t.Fatal(err)
	}
	if store.Get().DBName != "fleetcron_reloaded" {
		t.Fatalf("expected reloaded snapshot, got %q", store.Get().DBName)
	}
}
