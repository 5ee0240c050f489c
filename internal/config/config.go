// Package config loads and validates election guide configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Mapbox  MapboxConfig  `mapstructure:"mapbox"`
	Sheets  SheetsConfig  `mapstructure:"sheets"`
	News    NewsConfig    `mapstructure:"news"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Session SessionConfig `mapstructure:"session"`
	DB      DBConfig      `mapstructure:"db"`
	Storage StorageConfig `mapstructure:"storage"`
	PubSub  PubSubConfig  `mapstructure:"pubsub"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	BasePath       string   `mapstructure:"base_path"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// MapboxConfig configures geocoding and tile queries.
type MapboxConfig struct {
	AccessToken  string            `mapstructure:"access_token"`
	BaseURL      string            `mapstructure:"base_url"`
	Tilesets     map[string]string `mapstructure:"tilesets"`
	RateLimitRPS float64           `mapstructure:"rate_limit_rps"`
	RateBurst    int               `mapstructure:"rate_burst"`
	MapStyleID   string            `mapstructure:"map_style_id"`
}

// SheetsConfig configures the Google Sheets directory.
type SheetsConfig struct {
	APIKey                  string  `mapstructure:"api_key"`
	BaseURL                 string  `mapstructure:"base_url"`
	CandidatesSpreadsheetID string  `mapstructure:"candidates_spreadsheet_id"`
	RacesSpreadsheetID      string  `mapstructure:"races_spreadsheet_id"`
	StoriesSpreadsheetID    string  `mapstructure:"stories_spreadsheet_id"`
	CandidatesCSVURL        string  `mapstructure:"candidates_csv_url"`
	CandidateSheet          string  `mapstructure:"candidate_sheet"`
	StoriesSheet            string  `mapstructure:"stories_sheet"`
	RateLimitRPS            float64 `mapstructure:"rate_limit_rps"`
}

// NewsConfig configures the newsroom scraper.
type NewsConfig struct {
	URL                 string `mapstructure:"url"`
	Limit               int    `mapstructure:"limit"`
	UserAgent           string `mapstructure:"user_agent"`
	RespectRobots       bool   `mapstructure:"respect_robots"`
	HeadlessEnabled     bool   `mapstructure:"headless_enabled"`
	HeadlessMaxParallel int    `mapstructure:"headless_max_parallel"`
	NavTimeoutSeconds   int    `mapstructure:"nav_timeout_seconds"`
	PromotionThreshold  int    `mapstructure:"promotion_threshold"`
}

// HTTPConfig configures outbound HTTP client retry behavior.
type HTTPConfig struct {
	TimeoutSeconds   int `mapstructure:"timeout_seconds"`
	MaxRetries       int `mapstructure:"max_retries"`
	BackoffInitialMs int `mapstructure:"backoff_initial_ms"`
	BackoffMaxMs     int `mapstructure:"backoff_max_ms"`
}

// CacheConfig sizes the upstream response cache.
type CacheConfig struct {
	Size       int `mapstructure:"size"`
	TTLSeconds int `mapstructure:"ttl_seconds"`
}

// SessionConfig controls the saved-race session store.
type SessionConfig struct {
	Backend    string `mapstructure:"backend"`
	CookieName string `mapstructure:"cookie_name"`
	Size       int    `mapstructure:"size"`
	TTLSeconds int    `mapstructure:"ttl_seconds"`
	Secure     bool   `mapstructure:"secure"`
}

// DBConfig controls access to the relational database.
type DBConfig struct {
	DSN          string `mapstructure:"dsn"`
	Table        string `mapstructure:"table"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

// StorageConfig selects the blob store used for snapshot exports.
type StorageConfig struct {
	Backend     string `mapstructure:"backend"`
	LocalDir    string `mapstructure:"local_dir"`
	GCSBucket   string `mapstructure:"gcs_bucket"`
	Prefix      string `mapstructure:"prefix"`
	ContentType string `mapstructure:"content_type"`
}

// PubSubConfig holds metadata for publish-subscribe notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("ELECTIONS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	if err := bindAliases(v); err != nil {
		return Config{}, err
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// bindAliases lets the conventional unprefixed env vars configure the service.
func bindAliases(v *viper.Viper) error {
	aliases := map[string][]string{
		"server.port":         {"ELECTIONS_SERVER_PORT", "PORT"},
		"mapbox.access_token": {"ELECTIONS_MAPBOX_ACCESS_TOKEN", "MAPBOX_ACCESS_TOKEN"},
		"sheets.api_key":      {"ELECTIONS_SHEETS_API_KEY", "GOOGLE_SHEETS_API_KEY"},
	}
	for key, envs := range aliases {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return fmt.Errorf("bind env %s: %w", key, err)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.base_path", "")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("mapbox.base_url", "https://api.mapbox.com")
	v.SetDefault("mapbox.tilesets", map[string]string{
		"assembly": "wisconsinwatch.6gs2v405",
		"senate":   "wisconsinwatch.7scp33x9",
		"congress": "wisconsinwatch.5mz9q1z2",
	})
	v.SetDefault("mapbox.rate_limit_rps", 10)
	v.SetDefault("mapbox.rate_burst", 10)
	v.SetDefault("mapbox.map_style_id", "mapbox/light-v11")
	v.SetDefault("sheets.base_url", "https://sheets.googleapis.com")
	v.SetDefault("sheets.candidates_spreadsheet_id", "1H2tgXpnn7kt8KxvPkLSELsU5ohYFM0p2tvBQJi5M44E")
	v.SetDefault("sheets.races_spreadsheet_id", "1XecLv5Q-ZFr-5ijvhHqEiVbX6MPl61jJDmiS4GuG-SY")
	v.SetDefault("sheets.stories_spreadsheet_id", "19-BcTq-ueiZgxwCjEgTbxPSL2LBLyhjJAYmXQn3Bk-E")
	v.SetDefault("sheets.candidates_csv_url", "https://docs.google.com/spreadsheets/d/e/"+
		"2PACX-1vQpPPS8TGtIZA3FpBVknBwwhNBdf8Mkdh3ctvLtojlKIZcgKpqCvSG5znzjsj8XLlRWdikmaKfdf-aJ/"+
		"pub?gid=0&single=true&output=csv")
	v.SetDefault("sheets.candidate_sheet", "Candidate")
	v.SetDefault("sheets.stories_sheet", "Sheet1")
	v.SetDefault("sheets.rate_limit_rps", 5)
	v.SetDefault("news.url", "https://wisconsinwatch.org/tag/wisconsin-legislature/")
	v.SetDefault("news.limit", 5)
	v.SetDefault("news.user_agent", "wi-election-guide/0.1")
	v.SetDefault("news.respect_robots", true)
	v.SetDefault("news.headless_enabled", false)
	v.SetDefault("news.headless_max_parallel", 1)
	v.SetDefault("news.nav_timeout_seconds", 25)
	v.SetDefault("news.promotion_threshold", 2048)
	v.SetDefault("http.timeout_seconds", 15)
	v.SetDefault("http.max_retries", 2)
	v.SetDefault("http.backoff_initial_ms", 250)
	v.SetDefault("http.backoff_max_ms", 2000)
	v.SetDefault("cache.size", 512)
	v.SetDefault("cache.ttl_seconds", 300)
	v.SetDefault("session.backend", "memory")
	v.SetDefault("session.cookie_name", "eg_session")
	v.SetDefault("session.size", 10000)
	v.SetDefault("session.ttl_seconds", 86400)
	v.SetDefault("db.table", "sessions")
	v.SetDefault("storage.backend", "local")
	v.SetDefault("storage.local_dir", "build")
	v.SetDefault("storage.prefix", "data")
	v.SetDefault("storage.content_type", "application/json")
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "info")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Server.BasePath != "" && !strings.HasPrefix(c.Server.BasePath, "/") {
		return fmt.Errorf("server.base_path must start with /")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.HTTP.MaxRetries < 0 {
		return fmt.Errorf("http.max_retries must be >= 0")
	}
	if c.Cache.Size <= 0 {
		return fmt.Errorf("cache.size must be > 0")
	}
	if c.News.Limit <= 0 {
		return fmt.Errorf("news.limit must be > 0")
	}
	if c.News.HeadlessEnabled && c.News.HeadlessMaxParallel <= 0 {
		return fmt.Errorf("news.headless_max_parallel must be > 0 when headless is enabled")
	}
	switch c.Session.Backend {
	case "memory":
	case "postgres":
		if c.DB.DSN == "" {
			return fmt.Errorf("db.dsn must be set when session.backend is postgres")
		}
	default:
		return fmt.Errorf("unknown session.backend %q", c.Session.Backend)
	}
	switch c.Storage.Backend {
	case "memory", "local":
	case "gcs":
		if c.Storage.GCSBucket == "" {
			return fmt.Errorf("storage.gcs_bucket must be set when storage.backend is gcs")
		}
	default:
		return fmt.Errorf("unknown storage.backend %q", c.Storage.Backend)
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	return nil
}

// HTTPTimeout converts the configured timeout into a duration.
func (c Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// CacheTTL converts the configured cache TTL into a duration.
func (c Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLSeconds) * time.Second
}

// SessionTTL converts the configured session TTL into a duration.
func (c Config) SessionTTL() time.Duration {
	return time.Duration(c.Session.TTLSeconds) * time.Second
}
