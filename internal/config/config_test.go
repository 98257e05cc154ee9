package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/donaldgifford/kompara/internal/affiliate"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name      string
		yaml      string
		envVars   map[string]string
		wantErr   string
		checkFunc func(t *testing.T, cfg *Config)
	}{
		{
			name: "defaults applied for optional fields",
			yaml: `
provider:
  scheme: graphql
`,
			checkFunc: func(t *testing.T, cfg *Config) {
				t.Helper()
				assert.Equal(t, "0.0.0.0", cfg.Server.Host)
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, 30*time.Second, cfg.Server.WriteTimeout)
				assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
				assert.Equal(t, affiliate.DefaultBaseURL, cfg.Provider.BaseURL)
				assert.Equal(t, 10*time.Second, cfg.Provider.Timeout)
				assert.Equal(t, 2, cfg.Provider.Retries())
				assert.Equal(t, 200*time.Millisecond, cfg.Provider.RetryBackoff)
				assert.Equal(t, 300*time.Second, cfg.Provider.TokenSafetyMargin)
				assert.False(t, cfg.Provider.RateLimit.Enabled)
				assert.Equal(t, 5.0, cfg.Provider.RateLimit.PerSecond)
				assert.Equal(t, 10, cfg.Provider.RateLimit.Burst)
				assert.Equal(t, 30*time.Minute, cfg.Schedule.TokenRefreshInterval)
				assert.Equal(t, "kompara", cfg.Telemetry.ServiceName)
				assert.Empty(t, cfg.Telemetry.OTLPEndpoint)
				assert.Equal(t, 1.0, *cfg.Telemetry.SampleRatio)
				assert.Equal(t, "info", cfg.Logging.Level)
				assert.Equal(t, "text", cfg.Logging.Format)
			},
		},
		{
			name: "empty file uses graphql scheme",
			yaml: ``,
			checkFunc: func(t *testing.T, cfg *Config) {
				t.Helper()
				assert.Equal(t, "graphql", cfg.Provider.Scheme)
			},
		},
		{
			name: "zero retries is kept",
			yaml: `
provider:
  max_retries: 0
`,
			checkFunc: func(t *testing.T, cfg *Config) {
				t.Helper()
				assert.Equal(t, 0, cfg.Provider.Retries())
			},
		},
		{
			name: "env var substitution",
			yaml: `
provider:
  app_id: "${TEST_KOMPARA_APP_ID}"
  secret: "${TEST_KOMPARA_SECRET}"
`,
			envVars: map[string]string{
				"TEST_KOMPARA_APP_ID": "1830001",
				"TEST_KOMPARA_SECRET": "s3cret",
			},
			checkFunc: func(t *testing.T, cfg *Config) {
				t.Helper()
				assert.Equal(t, "1830001", cfg.Provider.AppID)
				assert.Equal(t, "s3cret", cfg.Provider.Secret)
			},
		},
		{
			name: "invalid scheme",
			yaml: `
provider:
  scheme: soap
`,
			wantErr: `provider.scheme must be one of: graphql, rest (got "soap")`,
		},
		{
			name: "negative retries",
			yaml: `
provider:
  max_retries: -1
`,
			wantErr: "provider.max_retries must not be negative",
		},
		{
			name: "rate limit enabled with bad burst",
			yaml: `
provider:
  rate_limit:
    enabled: true
    burst: -1
`,
			wantErr: "provider.rate_limit.burst must be at least 1",
		},
		{
			name: "refresh interval too short",
			yaml: `
schedule:
  token_refresh_interval: 10s
`,
			wantErr: "schedule.token_refresh_interval must be at least 1m",
		},
		{
			name: "sample ratio out of range",
			yaml: `
telemetry:
  sample_ratio: 1.5
`,
			wantErr: "telemetry.sample_ratio must be between 0 and 1",
		},
		{
			name: "invalid log level",
			yaml: `
logging:
  level: trace
`,
			wantErr: `logging.level must be one of: debug, info, warn, error (got "trace")`,
		},
		{
			name: "invalid port",
			yaml: `
server:
  port: 70000
`,
			wantErr: "server.port must be between 1 and 65535",
		},
		{
			name:    "invalid YAML",
			yaml:    `{{{not valid yaml`,
			wantErr: "parsing config YAML",
		},
		{
			name: "full config with overrides",
			yaml: `
server:
  host: "127.0.0.1"
  port: 9090
  read_timeout: 60s
  write_timeout: 60s
  shutdown_timeout: 5s
provider:
  scheme: rest
  base_url: http://localhost:9999
  credential_names:
    app_id: [AFFILIATE_APP_ID]
  timeout: 3s
  max_retries: 4
  retry_backoff: 1s
  token_safety_margin: 10m
  rate_limit:
    enabled: true
    per_second: 2
    burst: 4
    daily_limit: 10000
schedule:
  token_refresh_interval: 15m
telemetry:
  otlp_endpoint: otel-collector:4317
  insecure: true
  service_name: kompara-prod
  sample_ratio: 0.25
  metric_interval: 30s
logging:
  level: debug
  format: json
`,
			checkFunc: func(t *testing.T, cfg *Config) {
				t.Helper()
				assert.Equal(t, "127.0.0.1:9090", cfg.Server.Addr())
				assert.Equal(t, 60*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout)
				assert.Equal(t, "rest", cfg.Provider.Scheme)
				assert.Equal(t, "http://localhost:9999", cfg.Provider.BaseURL)
				assert.Equal(t, 3*time.Second, cfg.Provider.Timeout)
				assert.Equal(t, 4, cfg.Provider.Retries())
				assert.Equal(t, time.Second, cfg.Provider.RetryBackoff)
				assert.Equal(t, 10*time.Minute, cfg.Provider.TokenSafetyMargin)
				assert.True(t, cfg.Provider.RateLimit.Enabled)
				assert.Equal(t, 2.0, cfg.Provider.RateLimit.PerSecond)
				assert.Equal(t, int64(10000), cfg.Provider.RateLimit.DailyLimit)
				assert.Equal(t, 15*time.Minute, cfg.Schedule.TokenRefreshInterval)
				assert.Equal(t, "otel-collector:4317", cfg.Telemetry.OTLPEndpoint)
				assert.True(t, cfg.Telemetry.Insecure)
				assert.Equal(t, "kompara-prod", cfg.Telemetry.ServiceName)
				assert.Equal(t, 0.25, *cfg.Telemetry.SampleRatio)
				assert.Equal(t, 30*time.Second, cfg.Telemetry.Interval)
				assert.Equal(t, "debug", cfg.Logging.Level)
				assert.Equal(t, "json", cfg.Logging.Format)

				names := cfg.Provider.Names()
				assert.Equal(t, []string{"AFFILIATE_APP_ID"}, names.AppID)
				assert.Equal(t, affiliate.DefaultCredentialNames().Secret, names.Secret)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Only parallelize tests that don't modify env vars.
			if len(tt.envVars) == 0 {
				t.Parallel()
			}

			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			dir := t.TempDir()
			path := filepath.Join(dir, "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0o644))

			cfg, err := Load(path)

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, cfg)
			if tt.checkFunc != nil {
				tt.checkFunc(t, cfg)
			}
		})
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	t.Parallel()

	_, err := Load("/nonexistent/path/config.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config file")
}

func TestLoad_NoPath(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "graphql", cfg.Provider.Scheme)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestProviderConfig_ResolveCredentials(t *testing.T) {
	t.Parallel()

	env := affiliate.MapSource{
		"SHOPEE_APP_ID":    "env-app",
		"CHAVE_API_SHOPEE": "env-secret",
		"AFFILIATE_APP_ID": "custom-app",
	}

	tests := []struct {
		name       string
		provider   ProviderConfig
		env        affiliate.Source
		want       affiliate.Credentials
		wantErr    bool
		errContain string
	}{
		{
			name: "environment with default names",
			env:  env,
			want: affiliate.Credentials{AppID: "env-app", Secret: "env-secret"},
		},
		{
			name:     "file values take precedence",
			provider: ProviderConfig{AppID: "file-app", Secret: "file-secret"},
			env:      env,
			want:     affiliate.Credentials{AppID: "file-app", Secret: "file-secret"},
		},
		{
			name:     "blank file value falls through to env",
			provider: ProviderConfig{AppID: "  "},
			env:      env,
			want:     affiliate.Credentials{AppID: "env-app", Secret: "env-secret"},
		},
		{
			name: "custom names",
			provider: ProviderConfig{
				CredentialNames: CredentialNamesConfig{AppID: []string{"AFFILIATE_APP_ID"}},
			},
			env:  env,
			want: affiliate.Credentials{AppID: "custom-app", Secret: "env-secret"},
		},
		{
			name:       "nothing configured",
			env:        affiliate.MapSource{},
			wantErr:    true,
			errContain: "provider.app_id, SHOPEE_APP_ID",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := tt.provider.ResolveCredentials(tt.env)
			if tt.wantErr {
				require.ErrorIs(t, err, affiliate.ErrConfiguration)
				assert.Contains(t, err.Error(), tt.errContain)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
