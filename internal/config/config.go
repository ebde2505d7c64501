// Package config loads mailbridge configuration from a TOML file with
// environment-variable overrides. A .env file in the working directory
// is honored when present.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Config is the full mailbridge configuration.
type Config struct {
	Store   StoreConfig   `toml:"store"`
	OAuth   OAuthConfig   `toml:"oauth"`
	TLS     TLSConfig     `toml:"tls"`
	Timeout TimeoutConfig `toml:"timeouts"`
	Sweep   SweepConfig   `toml:"sweep"`
}

// StoreConfig locates the credential record store.
type StoreConfig struct {
	Path string `toml:"path"`
}

// OAuthConfig configures the token refresh strategies.
type OAuthConfig struct {
	// RefreshEndpoint is the remote refresh service tried first. When
	// empty, refresh falls through to the provider token endpoint.
	RefreshEndpoint string `toml:"refresh_endpoint"`

	// ClientID and ClientSecret are the process-wide OAuth client
	// credentials used for direct provider refresh.
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
}

// TLSConfig controls certificate verification for mail connections.
type TLSConfig struct {
	// StrictVerify enables certificate hostname/chain verification.
	// Defaults to false to match the relaxed verification many mail
	// setups require; turn it on where certificates are in order.
	StrictVerify bool `toml:"strict_verify"`
}

// TimeoutConfig carries the per-operation time budgets.
type TimeoutConfig struct {
	Operation time.Duration `toml:"operation"`
	Teardown  time.Duration `toml:"teardown"`
	Connect   time.Duration `toml:"connect"`
	Submit    time.Duration `toml:"submit"`
}

// SweepConfig controls the background token sweep.
type SweepConfig struct {
	// Interval between periodic sweeps; zero disables periodic runs
	// (the boot-time sweep still happens).
	Interval time.Duration `toml:"interval"`

	// StaleAfter is how long past expiry a token must be before the
	// sweep soft-disables the record after failed refreshes.
	StaleAfter time.Duration `toml:"stale_after"`
}

// Default returns the built-in configuration.
func Default() Config {
	home, _ := os.UserHomeDir()
	return Config{
		Store: StoreConfig{
			Path: filepath.Join(home, ".config", "mailbridge", "accounts.json"),
		},
		TLS: TLSConfig{StrictVerify: false},
		Timeout: TimeoutConfig{
			Operation: 30 * time.Second,
			Teardown:  3 * time.Second,
			Connect:   60 * time.Second,
			Submit:    60 * time.Second,
		},
		Sweep: SweepConfig{
			Interval:   0,
			StaleAfter: 55 * time.Minute,
		},
	}
}

// Load reads the configuration file at path (optional) and applies
// environment overrides. Missing files are not an error; the defaults
// apply.
func Load(path string) (Config, error) {
	// Best effort: a missing .env is the normal case.
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			if !os.IsNotExist(err) {
				return cfg, fmt.Errorf("loading config %s: %w", path, err)
			}
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := envString("MAILBRIDGE_STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := envString("MAILBRIDGE_REFRESH_ENDPOINT"); v != "" {
		cfg.OAuth.RefreshEndpoint = v
	}
	if v := envString("MAILBRIDGE_OAUTH_CLIENT_ID"); v != "" {
		cfg.OAuth.ClientID = v
	}
	if v := envString("MAILBRIDGE_OAUTH_CLIENT_SECRET"); v != "" {
		cfg.OAuth.ClientSecret = v
	}
	if v, ok := envBool("MAILBRIDGE_TLS_STRICT_VERIFY"); ok {
		cfg.TLS.StrictVerify = v
	}
	if v, ok := envDuration("MAILBRIDGE_SWEEP_INTERVAL"); ok {
		cfg.Sweep.Interval = v
	}
}

func envString(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func envBool(key string) (bool, bool) {
	v := envString(key)
	if v == "" {
		return false, false
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return false, false
	}
	return parsed, true
}

func envDuration(key string) (time.Duration, bool) {
	v := envString(key)
	if v == "" {
		return 0, false
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return 0, false
	}
	return parsed, true
}
