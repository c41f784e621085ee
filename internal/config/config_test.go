package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"myip/internal/resolver"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestDefaultValidates(t *testing.T) {
	r, err := Default().Validate()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8080", r.Addr.String())
	assert.Equal(t, resolver.NamePeer, r.Policy.Name())
}

func TestLoadFileMissingIsIgnored(t *testing.T) {
	cfg := Default()
	found, err := LoadFile(filepath.Join(t.TempDir(), "absent.yml"), &cfg)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFileOverridesOnlyPresentKeys(t *testing.T) {
	path := writeFile(t, `
bind_address: "0.0.0.0:9090"
read_header_timeout: 3s
log:
  level: debug
metrics:
  enable: true
`)
	cfg := Default()
	found, err := LoadFile(path, &cfg)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "0.0.0.0:9090", cfg.BindAddress)
	assert.Equal(t, 3*time.Second, cfg.ReadHeaderTimeout)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.True(t, cfg.Metrics.Enable)
	assert.Equal(t, resolver.NamePeer, cfg.Policy)
}

func TestLoadFileMalformed(t *testing.T) {
	path := writeFile(t, "bind_address: [unterminated\n")
	cfg := Default()
	_, err := LoadFile(path, &cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config file")
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := ApplyEnv(&cfg, envMap(map[string]string{
		"ADDR":                        "[::1]:8081",
		"RESOLVE_POLICY":              "loopback",
		"LOG_FORMAT":                  "json",
		"METRICS_ENABLE":              "true",
		"OTEL_EXPORTER_OTLP_ENDPOINT": "collector:4317",
	}))
	require.NoError(t, err)
	assert.Equal(t, "[::1]:8081", cfg.BindAddress)
	assert.Equal(t, "loopback", cfg.Policy)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.True(t, cfg.Metrics.Enable)
	assert.Equal(t, "collector:4317", cfg.Telemetry.Endpoint)
}

func TestApplyEnvBadBool(t *testing.T) {
	cfg := Default()
	err := ApplyEnv(&cfg, envMap(map[string]string{"METRICS_ENABLE": "sometimes"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "METRICS_ENABLE")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{name: "hostname is rejected", mutate: func(c *Config) { c.BindAddress = "localhost:8080" }, wantErr: ErrInvalidBindAddress},
		{name: "missing port", mutate: func(c *Config) { c.BindAddress = "127.0.0.1" }, wantErr: ErrInvalidBindAddress},
		{name: "port out of range", mutate: func(c *Config) { c.BindAddress = "127.0.0.1:70000" }, wantErr: ErrInvalidBindAddress},
		{name: "unknown policy", mutate: func(c *Config) { c.Policy = "forwarded" }, wantErr: resolver.ErrUnknownPolicy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			_, err := cfg.Validate()
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestValidateTLSNeedsPaths(t *testing.T) {
	cfg := Default()
	cfg.TLS = TLSConfig{Enable: true}
	_, err := cfg.Validate()
	require.Error(t, err)
}

func TestValidateIPv6(t *testing.T) {
	cfg := Default()
	cfg.BindAddress = "[::]:8080"
	r, err := cfg.Validate()
	require.NoError(t, err)
	assert.True(t, r.Addr.Addr().Is6())
	assert.EqualValues(t, 8080, r.Addr.Port())
}
