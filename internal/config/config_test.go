package config

import (
	"os"
	"testing"
)

func TestLoadOrgTablesDefaultsWithoutOverride(t *testing.T) {
	os.Unsetenv("ANALYTICS_ORG_TABLES")
	tables := loadOrgTables()
	if tables["client0"] != "client0" || tables["client1"] != "client1" {
		t.Fatalf("expected default org table map, got %v", tables)
	}
}

func TestLoadOrgTablesAppliesOverrides(t *testing.T) {
	os.Setenv("ANALYTICS_ORG_TABLES", "acme=acme_events, client0 = custom0")
	defer os.Unsetenv("ANALYTICS_ORG_TABLES")

	tables := loadOrgTables()
	if tables["acme"] != "acme_events" {
		t.Fatalf("expected override acme=acme_events, got %v", tables)
	}
	if tables["client0"] != "custom0" {
		t.Fatalf("expected override to replace default client0, got %v", tables)
	}
	if tables["client1"] != "client1" {
		t.Fatalf("expected un-overridden default to survive, got %v", tables)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	os.Unsetenv("CACHE_BACKEND")
	os.Unsetenv("WAREHOUSE_BACKEND")
	cfg := Load()
	if cfg.CacheBackend != "memory" {
		t.Fatalf("expected default cache backend 'memory', got %q", cfg.CacheBackend)
	}
	if cfg.WarehouseBackend != "memframe" {
		t.Fatalf("expected default warehouse backend 'memframe', got %q", cfg.WarehouseBackend)
	}
	if !cfg.IsDevelopment() {
		t.Fatalf("expected default env 'development'")
	}
}
