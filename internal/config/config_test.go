package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable Load consults so the host environment does
// not leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"SMOKE_BACKEND", "SMOKE_BASE_URL", "SUPABASE_URL", "SMOKE_TOKEN",
		"SUPABASE_ANON_KEY", "SMOKE_BUCKET", "SMOKE_LOG_LEVEL", "SMOKE_TIMEOUT",
		"SMOKE_LIST_LIMIT", "SMOKE_CLEANUP", "SMOKE_GCS_CREDENTIALS_FILE",
		"SMOKE_MINIO_ENDPOINT", "SMOKE_MINIO_ACCESS_KEY", "SMOKE_MINIO_SECRET_KEY",
		"SMOKE_MINIO_REGION", "SMOKE_MINIO_USE_SSL", "SMOKE_LOCAL_DIR",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		expected Config
	}{
		{
			name:     "defaults when no env vars set",
			envVars:  map[string]string{},
			expected: Default(),
		},
		{
			name: "custom values from env vars",
			envVars: map[string]string{
				"SMOKE_BASE_URL":   "https://example.supabase.co",
				"SMOKE_TOKEN":      "secret",
				"SMOKE_BUCKET":     "smoke",
				"SMOKE_TIMEOUT":    "5s",
				"SMOKE_LIST_LIMIT": "3",
				"SMOKE_CLEANUP":    "true",
			},
			expected: func() Config {
				c := Default()
				c.BaseURL = "https://example.supabase.co"
				c.Token = "secret"
				c.Bucket = "smoke"
				c.Timeout = 5 * time.Second
				c.ListLimit = 3
				c.Cleanup = true
				return c
			}(),
		},
		{
			name: "supabase variables as fallback",
			envVars: map[string]string{
				"SUPABASE_URL":      "https://fallback.supabase.co",
				"SUPABASE_ANON_KEY": "anon",
			},
			expected: func() Config {
				c := Default()
				c.BaseURL = "https://fallback.supabase.co"
				c.Token = "anon"
				return c
			}(),
		},
		{
			name: "minio settings",
			envVars: map[string]string{
				"SMOKE_BACKEND":          "minio",
				"SMOKE_MINIO_ENDPOINT":   "localhost:9000",
				"SMOKE_MINIO_ACCESS_KEY": "minioadmin",
				"SMOKE_MINIO_SECRET_KEY": "minioadmin",
				"SMOKE_MINIO_USE_SSL":    "false",
			},
			expected: func() Config {
				c := Default()
				c.Backend = BackendMinio
				c.Minio.Endpoint = "localhost:9000"
				c.Minio.AccessKey = "minioadmin"
				c.Minio.SecretKey = "minioadmin"
				c.Minio.UseSSL = false
				return c
			}(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			cfg, err := Load("")
			require.NoError(t, err)
			assert.Equal(t, tt.expected, cfg)
		})
	}
}

func TestLoad_InvalidEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("SMOKE_TIMEOUT", "soon")

	_, err := Load("")
	assert.ErrorContains(t, err, "SMOKE_TIMEOUT")
}

func TestLoad_File(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "smoke.yaml")
	data := []byte(`
backend: supabase
base_url: https://file.supabase.co
token: from-file
bucket: file-bucket
timeout: 10s
`)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	t.Setenv("SMOKE_BUCKET", "env-bucket")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://file.supabase.co", cfg.BaseURL)
	assert.Equal(t, "from-file", cfg.Token)
	assert.Equal(t, 10*time.Second, cfg.Timeout)
	assert.Equal(t, DefaultListLimit, cfg.ListLimit)
	// Environment wins over the file.
	assert.Equal(t, "env-bucket", cfg.Bucket)
}

func TestLoad_MissingFile(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := Default()
	valid.BaseURL = "https://example.supabase.co"
	valid.Token = "secret"
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing base URL", func(c *Config) { c.BaseURL = "" }},
		{"base URL without scheme", func(c *Config) { c.BaseURL = "example.supabase.co" }},
		{"missing token", func(c *Config) { c.Token = "" }},
		{"missing bucket", func(c *Config) { c.Bucket = " " }},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }},
		{"negative list limit", func(c *Config) { c.ListLimit = -1 }},
		{"unknown backend", func(c *Config) { c.Backend = "ftp" }},
		{"minio without endpoint", func(c *Config) { c.Backend = BackendMinio }},
		{"minio endpoint with scheme", func(c *Config) {
			c.Backend = BackendMinio
			c.Minio = MinioConfig{Endpoint: "http://localhost:9000", AccessKey: "a", SecretKey: "b"}
		}},
		{"local without dir", func(c *Config) { c.Backend = BackendLocal }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidate_OtherBackends(t *testing.T) {
	gcs := Default()
	gcs.Backend = BackendGCS
	assert.NoError(t, gcs.Validate())

	local := Default()
	local.Backend = BackendLocal
	local.Local.Dir = t.TempDir()
	assert.NoError(t, local.Validate())
}

func TestRedacted(t *testing.T) {
	cfg := Default()
	cfg.Token = "secret"
	cfg.Minio.SecretKey = "minio-secret"

	r := cfg.Redacted()
	assert.Equal(t, redacted, r.Token)
	assert.Equal(t, redacted, r.Minio.SecretKey)
	assert.Equal(t, "secret", cfg.Token)
}
