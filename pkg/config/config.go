package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for the supervision engine.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords, keys) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"0.0.0.0"`
	Port     string `yaml:"port" env:"PORT" env-default:"3000"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	BaseURL  string `yaml:"base_url" env:"BASE_URL" env-default:""` // Auto-derived from Port if empty
	Version  string `yaml:"-"`                                      // Set at load time, not from config

	// ShutdownTimeout bounds graceful shutdown of in-flight requests.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT" env-default:"15s"`

	Database DatabaseConfig `yaml:"database"`
	Session  SessionConfig  `yaml:"session"`
	Email    EmailConfig    `yaml:"email"`
	Storage  StorageConfig  `yaml:"storage"`
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host            string        `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port            int           `yaml:"port" env:"PGPORT" env-default:"5432"`
	User            string        `yaml:"user" env:"PGUSER" env-default:"supervision"`
	Password        string        `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database        string        `yaml:"database" env:"PGDATABASE" env-default:"supervision"`
	MaxConnections  int32         `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime" env:"PGMAX_CONN_LIFETIME" env-default:"1h"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time" env:"PGMAX_CONN_IDLE_TIME" env-default:"30m"`
	SSLMode         string        `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
	TimeZone        string        `yaml:"timezone" env:"PGTZ" env-default:"Asia/Bangkok"`
}

// SessionConfig holds cookie session and API token settings.
type SessionConfig struct {
	// Secret signs session cookies and API tokens. Any passphrase; it is hashed to a key.
	Secret     string        `yaml:"-" env:"SESSION_SECRET"` // Secret - not in YAML
	CookieName string        `yaml:"cookie_name" env:"SESSION_COOKIE_NAME" env-default:"supervision-session"`
	MaxAge     time.Duration `yaml:"max_age" env:"SESSION_MAX_AGE" env-default:"720h"`
	Secure     bool          `yaml:"secure" env:"SESSION_SECURE" env-default:"false"`
	TokenTTL   time.Duration `yaml:"token_ttl" env:"API_TOKEN_TTL" env-default:"24h"`
}

// EmailConfig selects and configures the outbound notification sender.
type EmailConfig struct {
	// Provider is "console" (log only) or "sendgrid".
	Provider    string `yaml:"provider" env:"EMAIL_PROVIDER" env-default:"console"`
	FromAddress string `yaml:"from_address" env:"EMAIL_FROM_ADDRESS" env-default:"no-reply@supervision.local"`
	FromName    string `yaml:"from_name" env:"EMAIL_FROM_NAME" env-default:"ระบบนิเทศการศึกษา"`
	APIKey      string `yaml:"-" env:"SENDGRID_API_KEY"` // Secret - not in YAML
}

// StorageConfig configures where uploaded attachments are written.
type StorageConfig struct {
	UploadDir    string `yaml:"upload_dir" env:"UPLOAD_DIR" env-default:"./public/uploads"`
	PublicPrefix string `yaml:"public_prefix" env:"UPLOAD_PUBLIC_PREFIX" env-default:"/uploads"`
	MaxFileBytes int64  `yaml:"max_file_bytes" env:"UPLOAD_MAX_FILE_BYTES" env-default:"104857600"`
}

// Load reads configuration from config.yaml with environment variable overrides.
// The version parameter is injected at build time and set on the returned Config.
func Load(version string) (*Config, error) {
	return LoadFile("config.yaml", version)
}

// LoadFile is Load with an explicit config path.
func LoadFile(path, version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	// Without a file the environment (and env-default tags) is the whole config.
	if _, statErr := os.Stat(path); errors.Is(statErr, fs.ErrNotExist) {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	} else if err := cleanenv.ReadConfig(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// Auto-derive BaseURL from Port if not explicitly set
	if cfg.BaseURL == "" {
		cfg.BaseURL = (&url.URL{
			Scheme: "http",
			Host:   "localhost:" + cfg.Port,
		}).String()
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Email.Provider {
	case "console":
	case "sendgrid":
		if c.Email.APIKey == "" {
			return fmt.Errorf("SENDGRID_API_KEY is required when email provider is sendgrid")
		}
	default:
		return fmt.Errorf("unknown email provider %q", c.Email.Provider)
	}

	if c.Env != "local" && c.Session.Secret == "" {
		return fmt.Errorf("SESSION_SECRET is required outside local environment")
	}
	if c.Storage.MaxFileBytes <= 0 {
		return fmt.Errorf("max_file_bytes must be positive")
	}
	return nil
}

// IsLocal reports whether the server runs in local development mode.
func (c *Config) IsLocal() bool {
	return c.Env == "local"
}

// ConnectionString returns a PostgreSQL URL for pgx and golang-migrate.
func (c *DatabaseConfig) ConnectionString() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:   "/" + c.Database,
	}
	q := u.Query()
	q.Set("sslmode", c.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
