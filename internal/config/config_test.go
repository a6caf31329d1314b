package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func validConfig() Config {
	cfg := Config{HTTP: HTTPConfig{Port: 8080}}
	cfg.ApplyDefaults()
	return cfg
}

func TestValidate_Defaults(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := validConfig()
	cfg.HTTP.Port = 0

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidate_Drivers(t *testing.T) {
	tests := []struct {
		driver  string
		addrs   []string
		wantErr bool
	}{
		{DriverMemory, nil, false},
		{DriverRedis, []string{"localhost:6379"}, false},
		{DriverValkey, []string{"localhost:6379"}, false},
		{DriverRedis, nil, true},
		{DriverValkey, nil, true},
		{"mongo", []string{"localhost:27017"}, true},
	}
	for _, tc := range tests {
		t.Run(tc.driver, func(t *testing.T) {
			cfg := validConfig()
			cfg.Database.Driver = tc.driver
			cfg.Database.Addrs = tc.addrs

			err := cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestValidate_Limits(t *testing.T) {
	cfg := validConfig()
	cfg.Catalog.MaxLimit = 100
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for max_limit above 50")
	}

	cfg = validConfig()
	cfg.Catalog.SearchLimit = 51
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for search_limit above max_limit")
	}

	cfg = validConfig()
	cfg.Indexing.InitialIntervalMs = 5000
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "indexing.initial_interval_ms") {
		t.Fatalf("expected interval error, got %v", err)
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 10 {
		t.Errorf("expected ReadTimeoutSec=10, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.HTTP.ShutdownSec != 10 {
		t.Errorf("expected ShutdownSec=10, got %d", cfg.HTTP.ShutdownSec)
	}
	if cfg.Database.Driver != DriverMemory {
		t.Errorf("expected Driver=memory, got %q", cfg.Database.Driver)
	}
	if cfg.Catalog.MaxDistanceM != 10000 {
		t.Errorf("expected MaxDistanceM=10000, got %v", cfg.Catalog.MaxDistanceM)
	}
	if cfg.Catalog.SearchLimit != 10 || cfg.Catalog.TopLimit != 10 || cfg.Catalog.MaxLimit != 50 {
		t.Errorf("unexpected limits: %+v", cfg.Catalog)
	}
	if cfg.Catalog.MinRatingCount != 2 {
		t.Errorf("expected MinRatingCount=2, got %d", cfg.Catalog.MinRatingCount)
	}
	if cfg.Catalog.PageSize != 6 {
		t.Errorf("expected PageSize=6, got %d", cfg.Catalog.PageSize)
	}
	if cfg.Catalog.SlugAttempts != 5 {
		t.Errorf("expected SlugAttempts=5, got %d", cfg.Catalog.SlugAttempts)
	}
	if cfg.Indexing.MaxTries != 4 || cfg.Indexing.InitialIntervalMs != 50 || cfg.Indexing.MaxIntervalMs != 1000 {
		t.Errorf("unexpected indexing defaults: %+v", cfg.Indexing)
	}
	if cfg.Indexing.TimeoutMs != 5000 || cfg.Indexing.RebuildIntervalSec != 300 {
		t.Errorf("unexpected indexing deadlines: %+v", cfg.Indexing)
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	cfg := Config{
		HTTP:     HTTPConfig{ReadTimeoutSec: 30, WriteTimeoutSec: 60, ShutdownSec: 5},
		Database: DatabaseConfig{Driver: DriverRedis, ReadinessTimeout: 15},
		Catalog:  CatalogConfig{PageSize: 12, MinRatingCount: 1},
		Indexing: IndexingConfig{MaxTries: 2},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 30 {
		t.Errorf("expected ReadTimeoutSec=30, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.Database.Driver != DriverRedis {
		t.Errorf("expected Driver=redis, got %q", cfg.Database.Driver)
	}
	if cfg.Catalog.PageSize != 12 || cfg.Catalog.MinRatingCount != 1 {
		t.Errorf("catalog overridden: %+v", cfg.Catalog)
	}
	if cfg.Indexing.MaxTries != 2 {
		t.Errorf("expected MaxTries=2, got %d", cfg.Indexing.MaxTries)
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("STOREDEX_TEST_PORT", "9090")

	got := string(expandEnvVars([]byte("port: ${STOREDEX_TEST_PORT}\nlevel: ${STOREDEX_UNSET_VAR:-info}\nkey: ${STOREDEX_UNSET_VAR}")))
	want := "port: 9090\nlevel: info\nkey: "
	if got != want {
		t.Errorf("expandEnvVars() = %q, want %q", got, want)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "config"), 0o755); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	yaml := `http:
  port: ${STOREDEX_TEST_HTTP_PORT:-8081}
database:
  driver: redis
  addrs: ["localhost:6379"]
catalog:
  page_size: 3
`
	if err := os.WriteFile(filepath.Join(dir, "config", "unittest.yaml"), []byte(yaml), 0o600); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Chdir(dir)

	cfg, err := Load("unittest")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTP.Port != 8081 {
		t.Errorf("expected Port=8081, got %d", cfg.HTTP.Port)
	}
	if cfg.Database.Driver != DriverRedis || len(cfg.Database.Addrs) != 1 {
		t.Errorf("unexpected database config: %+v", cfg.Database)
	}
	if cfg.Catalog.PageSize != 3 || cfg.Catalog.SlugAttempts != 5 {
		t.Errorf("unexpected catalog config: %+v", cfg.Catalog)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Chdir(t.TempDir())
	if _, err := Load("does-not-exist"); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
