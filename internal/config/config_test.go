package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 9080, cfg.Server.Port)
	assert.Equal(t, 10000, cfg.Supabase.FetchLimit)
	assert.Equal(t, 30, cfg.Supabase.TimeoutSeconds)
	assert.Equal(t, 5, cfg.EventSearch.DefaultCount)
	assert.Equal(t, "IN", cfg.EventSearch.DefaultCountry)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadFromEnv(t *testing.T) {
	envVars := map[string]string{
		"INSIGHTS_PORT":        "8181",
		"SUPABASE_URL":         "https://demo.supabase.co/rest/v1/",
		"SUPABASE_API_KEY":     "test-key",
		"SUPABASE_FETCH_LIMIT": "2500",
		"LOG_LEVEL":            "debug",
	}
	for k, v := range envVars {
		os.Setenv(k, v)
	}
	defer func() {
		for k := range envVars {
			os.Unsetenv(k)
		}
	}()

	cfg := DefaultConfig()
	loadFromEnv(cfg)

	assert.Equal(t, 8181, cfg.Server.Port)
	assert.Equal(t, "https://demo.supabase.co/rest/v1", cfg.Supabase.URL, "trailing slash should be trimmed")
	assert.Equal(t, "test-key", cfg.Supabase.APIKey)
	assert.Equal(t, 2500, cfg.Supabase.FetchLimit)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadFromEnvFallbackKeys(t *testing.T) {
	os.Setenv("PORT", "7070")
	os.Setenv("SUPABASE_ANON_KEY", "anon-key")
	defer func() {
		os.Unsetenv("PORT")
		os.Unsetenv("SUPABASE_ANON_KEY")
	}()

	cfg := DefaultConfig()
	loadFromEnv(cfg)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "anon-key", cfg.Supabase.APIKey)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := DefaultConfig()
		cfg.Supabase.URL = "https://demo.supabase.co/rest/v1"
		cfg.Supabase.APIKey = "key"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid config",
			mutate: func(c *Config) {},
		},
		{
			name:    "invalid port",
			mutate:  func(c *Config) { c.Server.Port = -1 },
			wantErr: "invalid server port",
		},
		{
			name:    "missing URL",
			mutate:  func(c *Config) { c.Supabase.URL = "" },
			wantErr: "supabase URL is required",
		},
		{
			name:    "missing API key",
			mutate:  func(c *Config) { c.Supabase.APIKey = "" },
			wantErr: "supabase API key is required",
		},
		{
			name:    "zero fetch limit",
			mutate:  func(c *Config) { c.Supabase.FetchLimit = 0 },
			wantErr: "fetch limit must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
