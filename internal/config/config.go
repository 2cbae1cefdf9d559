// Package config loads application configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/ericfisherdev/bitbrowse/internal/domain/model"
)

// EnvPrefix is prepended to every variable name below.
const EnvPrefix = "BITBROWSE_"

// Supported hosts and store drivers.
const (
	HostBitbucket = "bitbucket"
	HostGitHub    = "github"

	StoreSQLite = "sqlite"
	StoreBolt   = "bolt"
)

// Config holds the application configuration loaded from BITBROWSE_*
// environment variables.
type Config struct {
	// Authentication
	AuthMode        model.AuthMode `env:"AUTH_MODE" envDefault:"basic"`
	ClientID        string         `env:"CLIENT_ID"`
	ClientSecret    string         `env:"CLIENT_SECRET"`
	TokenURL        string         `env:"TOKEN_URL"`
	TokenLeeway     time.Duration  `env:"TOKEN_LEEWAY" envDefault:"30s"`
	InvalidateOn401 bool           `env:"INVALIDATE_ON_401" envDefault:"false"`

	// Non-interactive login
	Username string `env:"USERNAME"`
	Password string `env:"PASSWORD"`

	// Remote host
	Host        string        `env:"HOST" envDefault:"bitbucket"`
	APIURL      string        `env:"API_URL"`
	HTTPTimeout time.Duration `env:"HTTP_TIMEOUT" envDefault:"30s"`
	RateLimit   float64       `env:"RATE_LIMIT" envDefault:"10"`

	// Secret storage. DBPath defaults to a file under the user config dir.
	StoreDriver string `env:"STORE_DRIVER" envDefault:"sqlite"`
	DBPath      string `env:"DB_PATH"`

	// Encryption at rest. Exactly which one applies is decided by the sealer
	// factory; none configured disables storage.
	SecretKey      string `env:"SECRET_KEY"`
	SecretKeyFile  string `env:"SECRET_KEY_FILE"`
	Passphrase     string `env:"PASSPHRASE"`
	PassphraseSalt string `env:"PASSPHRASE_SALT" envDefault:"bitbrowse"`
	KMSKeyID       string `env:"KMS_KEY_ID"`
	KMSRegion      string `env:"KMS_REGION"`

	// Environment controls log format
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
}

// warnInsecureEnvFile checks whether the .env file (if present) has
// overly permissive permissions. Group or world readable files risk exposing
// credentials to other users.
func warnInsecureEnvFile() {
	if runtime.GOOS == "windows" {
		return
	}

	info, err := os.Stat(".env")
	if err != nil {
		return
	}

	if mode := info.Mode().Perm(); mode&0o077 != 0 {
		slog.Warn(".env file has insecure permissions; recommended 0600", "mode", fmt.Sprintf("%04o", mode))
	}
}

// Load reads configuration from environment variables and returns a
// validated Config. A .env file in the working directory is loaded first if
// present; variables already set in the environment win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	warnInsecureEnvFile()

	return parse()
}

func parse() (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.DBPath == "" {
		p, err := DefaultDBPath(cfg.StoreDriver)
		if err != nil {
			return nil, err
		}
		cfg.DBPath = p
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error

	switch c.Host {
	case HostBitbucket, HostGitHub:
	default:
		errs = append(errs, fmt.Errorf("%sHOST must be %q or %q, got %q", EnvPrefix, HostBitbucket, HostGitHub, c.Host))
	}

	switch c.StoreDriver {
	case StoreSQLite, StoreBolt:
	default:
		errs = append(errs, fmt.Errorf("%sSTORE_DRIVER must be %q or %q, got %q", EnvPrefix, StoreSQLite, StoreBolt, c.StoreDriver))
	}

	if c.AuthMode == model.AuthModeToken {
		if c.ClientID == "" {
			errs = append(errs, fmt.Errorf("%sCLIENT_ID is required when %sAUTH_MODE=token", EnvPrefix, EnvPrefix))
		}
		if c.ClientSecret == "" {
			errs = append(errs, fmt.Errorf("%sCLIENT_SECRET is required when %sAUTH_MODE=token", EnvPrefix, EnvPrefix))
		}
	}

	if c.TokenLeeway < 0 {
		errs = append(errs, fmt.Errorf("%sTOKEN_LEEWAY must not be negative", EnvPrefix))
	}
	if c.HTTPTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%sHTTP_TIMEOUT must be positive", EnvPrefix))
	}
	if c.RateLimit <= 0 {
		errs = append(errs, fmt.Errorf("%sRATE_LIMIT must be positive", EnvPrefix))
	}
	if c.SecretKey != "" && c.SecretKeyFile != "" {
		errs = append(errs, fmt.Errorf("set only one of %sSECRET_KEY and %sSECRET_KEY_FILE", EnvPrefix, EnvPrefix))
	}
	if c.KMSKeyID != "" && c.KMSRegion == "" {
		errs = append(errs, fmt.Errorf("%sKMS_REGION is required when %sKMS_KEY_ID is set", EnvPrefix, EnvPrefix))
	}

	return errors.Join(errs...)
}

// IsProduction returns true when the environment is set to production.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// DefaultDBPath returns <user config dir>/bitbrowse/secrets.db (or
// secrets.bolt for the bolt driver).
func DefaultDBPath(driver string) (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("determining config directory: %w", err)
	}

	name := "secrets.db"
	if driver == StoreBolt {
		name = "secrets.bolt"
	}
	return filepath.Join(dir, "bitbrowse", name), nil
}
