// Package config loads and validates the insight server configuration
// from environment variables (with optional .env file support).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config represents the application configuration.
type Config struct {
	Server      ServerConfig      `json:"server"`
	Supabase    SupabaseConfig    `json:"supabase"`
	EventSearch EventSearchConfig `json:"event_search"`
	Logging     LoggingConfig     `json:"logging"`
}

// ServerConfig represents HTTP server configuration.
type ServerConfig struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	ReadTimeout  int    `json:"read_timeout_seconds"`
	WriteTimeout int    `json:"write_timeout_seconds"`
}

// SupabaseConfig represents the upstream row store configuration. The
// API key is a static bearer credential; it is configuration, not logic.
type SupabaseConfig struct {
	URL            string `json:"url"`
	APIKey         string `json:"-"` // never serialize the credential
	TimeoutSeconds int    `json:"timeout_seconds"`
	// FetchLimit is the bounded page size applied when a caller omits
	// limit. Every call site relies on this one constant.
	FetchLimit int `json:"fetch_limit"`
}

// EventSearchConfig represents the external real-world event search
// collaborator (news/weather lookups).
type EventSearchConfig struct {
	BaseURL        string `json:"base_url"`
	APIKey         string `json:"-"`
	DefaultCount   int    `json:"default_count"`
	DefaultCountry string `json:"default_country"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// LoggingConfig represents logging configuration.
type LoggingConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// DefaultConfig returns the configuration defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "localhost",
			Port:         9080,
			ReadTimeout:  30,
			WriteTimeout: 30,
		},
		Supabase: SupabaseConfig{
			TimeoutSeconds: 30,
			FetchLimit:     10000,
		},
		EventSearch: EventSearchConfig{
			BaseURL:        "https://ydc-index.io/v1/search",
			DefaultCount:   5,
			DefaultCountry: "IN",
			TimeoutSeconds: 15,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadConfig loads configuration from environment variables and defaults.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	cfg := DefaultConfig()
	loadFromEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func loadFromEnv(cfg *Config) {
	loadServerConfig(cfg)
	loadSupabaseConfig(cfg)
	loadEventSearchConfig(cfg)
	loadLoggingConfig(cfg)
}

func loadServerConfig(cfg *Config) {
	if host := os.Getenv("INSIGHTS_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if port := os.Getenv("INSIGHTS_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	} else if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}
	if rt := os.Getenv("INSIGHTS_READ_TIMEOUT_SECONDS"); rt != "" {
		if v, err := strconv.Atoi(rt); err == nil {
			cfg.Server.ReadTimeout = v
		}
	}
	if wt := os.Getenv("INSIGHTS_WRITE_TIMEOUT_SECONDS"); wt != "" {
		if v, err := strconv.Atoi(wt); err == nil {
			cfg.Server.WriteTimeout = v
		}
	}
}

func loadSupabaseConfig(cfg *Config) {
	if url := os.Getenv("SUPABASE_URL"); url != "" {
		cfg.Supabase.URL = strings.TrimSuffix(url, "/")
	}
	if key := os.Getenv("SUPABASE_API_KEY"); key != "" {
		cfg.Supabase.APIKey = key
	} else if key := os.Getenv("SUPABASE_ANON_KEY"); key != "" {
		cfg.Supabase.APIKey = key
	}
	if t := os.Getenv("SUPABASE_TIMEOUT_SECONDS"); t != "" {
		if v, err := strconv.Atoi(t); err == nil {
			cfg.Supabase.TimeoutSeconds = v
		}
	}
	if l := os.Getenv("SUPABASE_FETCH_LIMIT"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 {
			cfg.Supabase.FetchLimit = v
		}
	}
}

func loadEventSearchConfig(cfg *Config) {
	if url := os.Getenv("EVENT_SEARCH_URL"); url != "" {
		cfg.EventSearch.BaseURL = url
	}
	if key := os.Getenv("EVENT_SEARCH_API_KEY"); key != "" {
		cfg.EventSearch.APIKey = key
	} else if key := os.Getenv("YDC_API_KEY"); key != "" {
		cfg.EventSearch.APIKey = key
	}
	if c := os.Getenv("EVENT_SEARCH_DEFAULT_COUNT"); c != "" {
		if v, err := strconv.Atoi(c); err == nil && v > 0 {
			cfg.EventSearch.DefaultCount = v
		}
	}
	if country := os.Getenv("EVENT_SEARCH_COUNTRY"); country != "" {
		cfg.EventSearch.DefaultCountry = country
	}
	if t := os.Getenv("EVENT_SEARCH_TIMEOUT_SECONDS"); t != "" {
		if v, err := strconv.Atoi(t); err == nil {
			cfg.EventSearch.TimeoutSeconds = v
		}
	}
}

func loadLoggingConfig(cfg *Config) {
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
	if format := os.Getenv("LOG_FORMAT"); format != "" {
		cfg.Logging.Format = format
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Supabase.URL == "" {
		return fmt.Errorf("supabase URL is required (set SUPABASE_URL)")
	}
	if c.Supabase.APIKey == "" {
		return fmt.Errorf("supabase API key is required (set SUPABASE_API_KEY)")
	}
	if c.Supabase.FetchLimit <= 0 {
		return fmt.Errorf("fetch limit must be positive, got %d", c.Supabase.FetchLimit)
	}
	if c.Supabase.TimeoutSeconds <= 0 {
		return fmt.Errorf("supabase timeout must be positive, got %d", c.Supabase.TimeoutSeconds)
	}
	return nil
}
