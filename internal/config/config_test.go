package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.NotEmpty(t, cfg.Store.Path)
	assert.False(t, cfg.TLS.StrictVerify)
	assert.Equal(t, 30*time.Second, cfg.Timeout.Operation)
	assert.Equal(t, 3*time.Second, cfg.Timeout.Teardown)
	assert.Equal(t, 60*time.Second, cfg.Timeout.Connect)
	assert.Equal(t, 60*time.Second, cfg.Timeout.Submit)
	assert.Equal(t, 55*time.Minute, cfg.Sweep.StaleAfter)
	assert.Zero(t, cfg.Sweep.Interval)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Timeout, cfg.Timeout)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mailbridge.toml")
	content := `
[store]
path = "/var/lib/mailbridge/accounts.json"

[oauth]
refresh_endpoint = "https://refresh.example.com/v1/refresh"
client_id = "cid"

[tls]
strict_verify = true

[timeouts]
operation = "45s"
teardown = "5s"

[sweep]
interval = "10m"
stale_after = "2h"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/mailbridge/accounts.json", cfg.Store.Path)
	assert.Equal(t, "https://refresh.example.com/v1/refresh", cfg.OAuth.RefreshEndpoint)
	assert.Equal(t, "cid", cfg.OAuth.ClientID)
	assert.True(t, cfg.TLS.StrictVerify)
	assert.Equal(t, 45*time.Second, cfg.Timeout.Operation)
	assert.Equal(t, 5*time.Second, cfg.Timeout.Teardown)
	// Unset fields keep their defaults.
	assert.Equal(t, 60*time.Second, cfg.Timeout.Connect)
	assert.Equal(t, 10*time.Minute, cfg.Sweep.Interval)
	assert.Equal(t, 2*time.Hour, cfg.Sweep.StaleAfter)
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mailbridge.toml")
	require.NoError(t, os.WriteFile(path, []byte("[store\npath ="), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("MAILBRIDGE_STORE_PATH", "/tmp/override.json")
	t.Setenv("MAILBRIDGE_REFRESH_ENDPOINT", "https://env.example.com/refresh")
	t.Setenv("MAILBRIDGE_OAUTH_CLIENT_ID", "env-cid")
	t.Setenv("MAILBRIDGE_OAUTH_CLIENT_SECRET", "env-secret")
	t.Setenv("MAILBRIDGE_TLS_STRICT_VERIFY", "true")
	t.Setenv("MAILBRIDGE_SWEEP_INTERVAL", "15m")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "/tmp/override.json", cfg.Store.Path)
	assert.Equal(t, "https://env.example.com/refresh", cfg.OAuth.RefreshEndpoint)
	assert.Equal(t, "env-cid", cfg.OAuth.ClientID)
	assert.Equal(t, "env-secret", cfg.OAuth.ClientSecret)
	assert.True(t, cfg.TLS.StrictVerify)
	assert.Equal(t, 15*time.Minute, cfg.Sweep.Interval)
}

func TestEnvOverridesIgnoreInvalidValues(t *testing.T) {
	t.Setenv("MAILBRIDGE_TLS_STRICT_VERIFY", "definitely")
	t.Setenv("MAILBRIDGE_SWEEP_INTERVAL", "soon")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.False(t, cfg.TLS.StrictVerify)
	assert.Zero(t, cfg.Sweep.Interval)
}
