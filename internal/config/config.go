// Package config resolves the endpoint configuration for a smoke run. Values
// are layered: built-in defaults, then an optional YAML file, then SMOKE_*
// environment variables. Command flags are applied last by the caller.
// Credentials are only ever read from the file or the environment.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tomasbasham/storage-smoke/internal/env"
)

// Backend names the object-storage implementation a smoke run talks to.
type Backend string

const (
	BackendSupabase Backend = "supabase"
	BackendGCS      Backend = "gcs"
	BackendMinio    Backend = "minio"
	BackendLocal    Backend = "local"
)

const (
	DefaultBucket    = "product-images"
	DefaultTimeout   = 30 * time.Second
	DefaultListLimit = 10
	DefaultLogLevel  = "info"
)

const redacted = "REDACTED"

// Config is immutable once a run starts.
type Config struct {
	Backend Backend `yaml:"backend"`

	// BaseURL is the root of the storage REST API, e.g.
	// https://project.supabase.co. Only used by the supabase backend.
	BaseURL string `yaml:"base_url"`

	// Token is the bearer credential presented on write and list calls.
	Token string `yaml:"token"`

	Bucket    string        `yaml:"bucket"`
	Timeout   time.Duration `yaml:"timeout"`
	ListLimit int           `yaml:"list_limit"`

	// Cleanup deletes the uploaded test object once it has been read back.
	Cleanup bool `yaml:"cleanup"`

	LogLevel string `yaml:"log_level"`

	GCS   GCSConfig   `yaml:"gcs"`
	Minio MinioConfig `yaml:"minio"`
	Local LocalConfig `yaml:"local"`
}

type GCSConfig struct {
	// CredentialsFile is a service account key. When empty the client falls
	// back to application default credentials.
	CredentialsFile string `yaml:"credentials_file"`
}

type MinioConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Region    string `yaml:"region"`
	UseSSL    bool   `yaml:"use_ssl"`
}

type LocalConfig struct {
	Dir string `yaml:"dir"`
}

// Default returns the configuration used when nothing else is supplied.
func Default() Config {
	return Config{
		Backend:   BackendSupabase,
		Bucket:    DefaultBucket,
		Timeout:   DefaultTimeout,
		ListLimit: DefaultListLimit,
		LogLevel:  DefaultLogLevel,
		Minio: MinioConfig{
			Region: "us-east-1",
			UseSSL: true,
		},
	}
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty) and the environment. The result is not validated.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: failed to read %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: failed to parse %q: %w", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	var err error

	cfg.Backend = Backend(env.String("SMOKE_BACKEND", string(cfg.Backend)))
	cfg.BaseURL = env.First(cfg.BaseURL, "SMOKE_BASE_URL", "SUPABASE_URL")
	cfg.Token = env.First(cfg.Token, "SMOKE_TOKEN", "SUPABASE_ANON_KEY")
	cfg.Bucket = env.String("SMOKE_BUCKET", cfg.Bucket)
	cfg.LogLevel = env.String("SMOKE_LOG_LEVEL", cfg.LogLevel)

	if cfg.Timeout, err = env.Duration("SMOKE_TIMEOUT", cfg.Timeout); err != nil {
		return err
	}
	if cfg.ListLimit, err = env.Int("SMOKE_LIST_LIMIT", cfg.ListLimit); err != nil {
		return err
	}
	if cfg.Cleanup, err = env.Bool("SMOKE_CLEANUP", cfg.Cleanup); err != nil {
		return err
	}

	cfg.GCS.CredentialsFile = env.String("SMOKE_GCS_CREDENTIALS_FILE", cfg.GCS.CredentialsFile)

	cfg.Minio.Endpoint = env.String("SMOKE_MINIO_ENDPOINT", cfg.Minio.Endpoint)
	cfg.Minio.AccessKey = env.String("SMOKE_MINIO_ACCESS_KEY", cfg.Minio.AccessKey)
	cfg.Minio.SecretKey = env.String("SMOKE_MINIO_SECRET_KEY", cfg.Minio.SecretKey)
	cfg.Minio.Region = env.String("SMOKE_MINIO_REGION", cfg.Minio.Region)
	if cfg.Minio.UseSSL, err = env.Bool("SMOKE_MINIO_USE_SSL", cfg.Minio.UseSSL); err != nil {
		return err
	}

	cfg.Local.Dir = env.String("SMOKE_LOCAL_DIR", cfg.Local.Dir)
	return nil
}

// Validate reports the first problem that would stop a run from starting.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Bucket) == "" {
		return errors.New("bucket is required")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	if c.ListLimit <= 0 {
		return fmt.Errorf("list limit must be positive, got %d", c.ListLimit)
	}

	switch c.Backend {
	case BackendSupabase:
		if strings.TrimSpace(c.BaseURL) == "" {
			return errors.New("base URL is required (set SMOKE_BASE_URL)")
		}
		u, err := url.Parse(c.BaseURL)
		if err != nil {
			return fmt.Errorf("invalid base URL %q: %w", c.BaseURL, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("base URL must be http or https: %q", c.BaseURL)
		}
		if u.Host == "" {
			return fmt.Errorf("base URL has no host: %q", c.BaseURL)
		}
		if strings.TrimSpace(c.Token) == "" {
			return errors.New("token is required (set SMOKE_TOKEN)")
		}
	case BackendGCS:
	case BackendMinio:
		if strings.TrimSpace(c.Minio.Endpoint) == "" {
			return errors.New("minio endpoint is required")
		}
		if strings.Contains(c.Minio.Endpoint, "://") {
			return fmt.Errorf("minio endpoint must not include scheme: %q", c.Minio.Endpoint)
		}
		if strings.TrimSpace(c.Minio.AccessKey) == "" {
			return errors.New("minio access key is required")
		}
		if strings.TrimSpace(c.Minio.SecretKey) == "" {
			return errors.New("minio secret key is required")
		}
	case BackendLocal:
		if strings.TrimSpace(c.Local.Dir) == "" {
			return errors.New("local directory is required")
		}
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	return nil
}

// Redacted returns a copy safe to log.
func (c Config) Redacted() Config {
	if c.Token != "" {
		c.Token = redacted
	}
	if c.Minio.SecretKey != "" {
		c.Minio.SecretKey = redacted
	}
	return c
}
