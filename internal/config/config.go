// Package config loads chartengine's runtime configuration from environment
// variables and an optional .env file, mirroring config.Load's
// getEnv/getEnvInt/getEnvBool pattern and org_config.py's
// DEFAULT_ORG_TABLE_IDS/build_org_table_map defaults.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// defaultOrgTables mirrors org_config.py's DEFAULT_ORG_TABLE_IDS.
var defaultOrgTables = map[string]string{
	"client0": "client0",
	"client1": "client1",
}

// Config holds all chartengine configuration values.
type Config struct {
	// Server
	Addr string
	Env  string

	// BigQuery tenancy
	Project   string
	Dataset   string
	OrgTables map[string]string

	// Cache
	CacheBackend string // "memory", "redis", or "null"
	RedisURL     string
	CacheTTL     time.Duration

	// Warehouse
	WarehouseBackend string // "bigquery" or "memframe"

	// Logging
	LogLevel string
}

// Load reads configuration from environment variables and an optional .env
// file in the working directory.
func Load() *Config {
	_ = godotenv.Load()

	ttlSec := getEnvInt("CACHE_TTL_SECONDS", 300)

	return &Config{
		Addr:             getEnv("CHARTENGINE_ADDR", ":8080"),
		Env:              getEnv("ENV", "development"),
		Project:          getEnv("BQ_PROJECT", ""),
		Dataset:          getEnv("BQ_DATASET", ""),
		OrgTables:        loadOrgTables(),
		CacheBackend:     getEnv("CACHE_BACKEND", "memory"),
		RedisURL:         getEnv("REDIS_URL", "redis://localhost:6379"),
		CacheTTL:         time.Duration(ttlSec) * time.Second,
		WarehouseBackend: getEnv("WAREHOUSE_BACKEND", "memframe"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
	}
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// loadOrgTables builds the organisation -> raw table id map, mirroring
// build_org_table_map's defaults-plus-overrides shape. Overrides are read
// from ANALYTICS_ORG_TABLES as a comma-separated list of org=tableID pairs.
func loadOrgTables() map[string]string {
	mapping := make(map[string]string, len(defaultOrgTables))
	for org, tableID := range defaultOrgTables {
		mapping[org] = tableID
	}

	raw := os.Getenv("ANALYTICS_ORG_TABLES")
	if raw == "" {
		return mapping
	}
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 {
			continue
		}
		org := strings.TrimSpace(parts[0])
		tableID := strings.TrimSpace(parts[1])
		if org == "" || tableID == "" {
			continue
		}
		mapping[org] = tableID
	}
	return mapping
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
