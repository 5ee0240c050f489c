package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
server:
  port: 9090
  base_path: /testwebsite
  allowed_origins: ["https://example.org"]
auth:
  enabled: true
  api_key: secret
mapbox:
  access_token: pk.test
  tilesets:
    assembly: custom.assembly
    senate: custom.senate
    congress: custom.congress
sheets:
  api_key: sheets-key
  races_spreadsheet_id: races-id
news:
  limit: 3
  headless_enabled: true
  headless_max_parallel: 2
http:
  timeout_seconds: 45
cache:
  size: 64
  ttl_seconds: 60
session:
  backend: postgres
db:
  dsn: postgres://localhost/elections
storage:
  backend: gcs
  gcs_bucket: bucket
logging:
  development: false
`
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 || cfg.Server.BasePath != "/testwebsite" {
		t.Fatalf("expected server overrides, got %+v", cfg.Server)
	}
	if len(cfg.Server.AllowedOrigins) != 1 || cfg.Server.AllowedOrigins[0] != "https://example.org" {
		t.Fatalf("expected allowed origins override, got %v", cfg.Server.AllowedOrigins)
	}
	if !cfg.Auth.Enabled || cfg.Auth.APIKey != "secret" {
		t.Fatalf("expected auth enabled with secret key")
	}
	if cfg.Mapbox.AccessToken != "pk.test" || cfg.Mapbox.Tilesets["senate"] != "custom.senate" {
		t.Fatalf("expected mapbox overrides, got %+v", cfg.Mapbox)
	}
	if cfg.Sheets.RacesSpreadsheetID != "races-id" || cfg.Sheets.CandidateSheet != "Candidate" {
		t.Fatalf("expected sheets overrides merged with defaults, got %+v", cfg.Sheets)
	}
	if cfg.News.Limit != 3 || !cfg.News.HeadlessEnabled {
		t.Fatalf("expected news overrides, got %+v", cfg.News)
	}
	if got := cfg.HTTPTimeout(); got != 45*time.Second {
		t.Fatalf("expected timeout 45s, got %v", got)
	}
	if got := cfg.CacheTTL(); got != time.Minute {
		t.Fatalf("expected cache ttl 1m, got %v", got)
	}
	if cfg.Session.Backend != "postgres" || cfg.Storage.GCSBucket != "bucket" {
		t.Fatalf("expected backend overrides, got %+v %+v", cfg.Session, cfg.Storage)
	}
	if cfg.Logging.Development {
		t.Fatal("expected production logging")
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Mapbox.Tilesets["assembly"] != "wisconsinwatch.6gs2v405" {
		t.Fatalf("expected default assembly tileset, got %v", cfg.Mapbox.Tilesets)
	}
	if cfg.News.URL != "https://wisconsinwatch.org/tag/wisconsin-legislature/" || cfg.News.Limit != 5 {
		t.Fatalf("unexpected news defaults: %+v", cfg.News)
	}
	if cfg.Session.CookieName != "eg_session" || cfg.Session.Backend != "memory" {
		t.Fatalf("unexpected session defaults: %+v", cfg.Session)
	}
	if cfg.Sheets.StoriesSheet != "Sheet1" {
		t.Fatalf("unexpected stories sheet default: %q", cfg.Sheets.StoriesSheet)
	}
}

func TestLoadEnvAliases(t *testing.T) {
	t.Setenv("MAPBOX_ACCESS_TOKEN", "pk.env")
	t.Setenv("GOOGLE_SHEETS_API_KEY", "sheets-env")
	t.Setenv("PORT", "7070")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Mapbox.AccessToken != "pk.env" {
		t.Fatalf("expected token from MAPBOX_ACCESS_TOKEN, got %q", cfg.Mapbox.AccessToken)
	}
	if cfg.Sheets.APIKey != "sheets-env" {
		t.Fatalf("expected sheets key from GOOGLE_SHEETS_API_KEY, got %q", cfg.Sheets.APIKey)
	}
	if cfg.Server.Port != 7070 {
		t.Fatalf("expected port from PORT, got %d", cfg.Server.Port)
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestConfigValidateErrors(t *testing.T) {
	t.Parallel()

	base := Config{
		Server:  ServerConfig{Port: 8080},
		HTTP:    HTTPConfig{TimeoutSeconds: 10},
		Cache:   CacheConfig{Size: 10},
		News:    NewsConfig{Limit: 5},
		Session: SessionConfig{Backend: "memory"},
		Storage: StorageConfig{Backend: "local"},
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("expected base config to validate, got %v", err)
	}

	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{
			name: "invalid port",
			cfg: func() Config {
				c := base
				c.Server.Port = 0
				return c
			}(),
			want: "server.port",
		},
		{
			name: "relative base path",
			cfg: func() Config {
				c := base
				c.Server.BasePath = "testwebsite"
				return c
			}(),
			want: "server.base_path",
		},
		{
			name: "invalid timeout",
			cfg: func() Config {
				c := base
				c.HTTP.TimeoutSeconds = 0
				return c
			}(),
			want: "http.timeout_seconds",
		},
		{
			name: "headless missing max parallel",
			cfg: func() Config {
				c := base
				c.News.HeadlessEnabled = true
				return c
			}(),
			want: "news.headless_max_parallel",
		},
		{
			name: "postgres without dsn",
			cfg: func() Config {
				c := base
				c.Session.Backend = "postgres"
				return c
			}(),
			want: "db.dsn",
		},
		{
			name: "unknown session backend",
			cfg: func() Config {
				c := base
				c.Session.Backend = "redis"
				return c
			}(),
			want: "session.backend",
		},
		{
			name: "gcs without bucket",
			cfg: func() Config {
				c := base
				c.Storage.Backend = "gcs"
				return c
			}(),
			want: "storage.gcs_bucket",
		},
		{
			name: "auth missing api key",
			cfg: func() Config {
				c := base
				c.Auth.Enabled = true
				return c
			}(),
			want: "auth.api_key",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}
