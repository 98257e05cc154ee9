// Package config handles loading and validating the application configuration
// from YAML files with environment variable substitution.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/donaldgifford/kompara/internal/affiliate"
)

// Config is the top-level application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Provider  ProviderConfig  `yaml:"provider"`
	Schedule  ScheduleConfig  `yaml:"schedule"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig defines the Echo HTTP server settings.
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// ProviderConfig defines the affiliate API settings.
type ProviderConfig struct {
	Scheme  string `yaml:"scheme"` // graphql, rest
	BaseURL string `yaml:"base_url"`

	// AppID and Secret take precedence over the environment when set.
	// Usually written as ${SHOPEE_APP_ID} in the file.
	AppID           string                `yaml:"app_id"`
	Secret          string                `yaml:"secret"`
	CredentialNames CredentialNamesConfig `yaml:"credential_names"`

	Timeout           time.Duration   `yaml:"timeout"`
	MaxRetries        *int            `yaml:"max_retries"` // nil: default, 0: no retries
	RetryBackoff      time.Duration   `yaml:"retry_backoff"`
	TokenSafetyMargin time.Duration   `yaml:"token_safety_margin"`
	RateLimit         RateLimitConfig `yaml:"rate_limit"`
}

// CredentialNamesConfig overrides the environment variable names checked for
// each credential, in priority order.
type CredentialNamesConfig struct {
	AppID  []string `yaml:"app_id"`
	Secret []string `yaml:"secret"`
}

// RateLimitConfig defines outbound rate limiting settings.
type RateLimitConfig struct {
	Enabled    bool    `yaml:"enabled"`
	PerSecond  float64 `yaml:"per_second"`
	Burst      int     `yaml:"burst"`
	DailyLimit int64   `yaml:"daily_limit"` // 0: unlimited
}

// ScheduleConfig defines cron intervals.
type ScheduleConfig struct {
	TokenRefreshInterval time.Duration `yaml:"token_refresh_interval"`
	DisableTokenRefresh  bool          `yaml:"disable_token_refresh"`
}

// TelemetryConfig defines OpenTelemetry export settings. Export is disabled
// when OTLPEndpoint is empty.
type TelemetryConfig struct {
	OTLPEndpoint string        `yaml:"otlp_endpoint"`
	Insecure     bool          `yaml:"insecure"`
	ServiceName  string        `yaml:"service_name"`
	SampleRatio  *float64      `yaml:"sample_ratio"`
	Interval     time.Duration `yaml:"metric_interval"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// Load reads a YAML config file, expands environment variables, applies
// defaults, and validates required fields. An empty path yields the
// defaults, so the service can run from the environment alone.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path) //nolint:gosec // config path from trusted CLI flag
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}

		// Expand environment variables in the YAML content.
		expanded := os.ExpandEnv(string(data))

		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("parsing config YAML: %w", err)
		}
	}

	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Addr returns the listen address.
func (s *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Retries returns the configured retry count.
func (p *ProviderConfig) Retries() int {
	if p.MaxRetries == nil {
		return defaultMaxRetries
	}
	return *p.MaxRetries
}

// Names returns the credential names to check, falling back to the defaults
// for any slot left empty.
func (p *ProviderConfig) Names() affiliate.CredentialNames {
	names := affiliate.DefaultCredentialNames()
	if len(p.CredentialNames.AppID) > 0 {
		names.AppID = p.CredentialNames.AppID
	}
	if len(p.CredentialNames.Secret) > 0 {
		names.Secret = p.CredentialNames.Secret
	}
	return names
}

const (
	appIDKey  = "provider.app_id"
	secretKey = "provider.secret"
)

// ResolveCredentials resolves credentials from the config file values
// first, then from env.
func (p *ProviderConfig) ResolveCredentials(env affiliate.Source) (affiliate.Credentials, error) {
	names := p.Names()
	names.AppID = append([]string{appIDKey}, names.AppID...)
	names.Secret = append([]string{secretKey}, names.Secret...)

	src := affiliate.Sources{
		affiliate.MapSource{appIDKey: p.AppID, secretKey: p.Secret},
		env,
	}
	return affiliate.ResolveCredentials(src, names)
}

const (
	defaultMaxRetries  = 2
	defaultSampleRatio = 1.0
)

func applyDefaults(cfg *Config) {
	applyServerDefaults(&cfg.Server)
	applyProviderDefaults(&cfg.Provider)
	applyScheduleDefaults(&cfg.Schedule)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyLoggingDefaults(&cfg.Logging)
}

func applyServerDefaults(s *ServerConfig) {
	if s.Host == "" {
		s.Host = "0.0.0.0"
	}
	if s.Port == 0 {
		s.Port = 8080
	}
	if s.ReadTimeout == 0 {
		s.ReadTimeout = 30 * time.Second
	}
	if s.WriteTimeout == 0 {
		s.WriteTimeout = 30 * time.Second
	}
	if s.ShutdownTimeout == 0 {
		s.ShutdownTimeout = 10 * time.Second
	}
}

func applyProviderDefaults(p *ProviderConfig) {
	if p.Scheme == "" {
		p.Scheme = string(affiliate.SchemeGraphQL)
	}
	if p.BaseURL == "" {
		p.BaseURL = affiliate.DefaultBaseURL
	}
	if p.Timeout == 0 {
		p.Timeout = 10 * time.Second
	}
	if p.MaxRetries == nil {
		n := defaultMaxRetries
		p.MaxRetries = &n
	}
	if p.RetryBackoff == 0 {
		p.RetryBackoff = 200 * time.Millisecond
	}
	if p.TokenSafetyMargin == 0 {
		p.TokenSafetyMargin = affiliate.DefaultSafetyMargin
	}
	applyRateLimitDefaults(&p.RateLimit)
}

func applyRateLimitDefaults(r *RateLimitConfig) {
	if r.PerSecond == 0 {
		r.PerSecond = 5.0
	}
	if r.Burst == 0 {
		r.Burst = 10
	}
}

func applyScheduleDefaults(s *ScheduleConfig) {
	if s.TokenRefreshInterval == 0 {
		s.TokenRefreshInterval = 30 * time.Minute
	}
}

func applyTelemetryDefaults(t *TelemetryConfig) {
	if t.ServiceName == "" {
		t.ServiceName = "kompara"
	}
	if t.SampleRatio == nil {
		r := defaultSampleRatio
		t.SampleRatio = &r
	}
	if t.Interval == 0 {
		t.Interval = time.Minute
	}
}

func applyLoggingDefaults(l *LoggingConfig) {
	if l.Level == "" {
		l.Level = "info"
	}
	if l.Format == "" {
		l.Format = "text"
	}
}

func validate(cfg *Config) error {
	var errs []error

	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535 (got %d)", cfg.Server.Port))
	}

	if _, err := affiliate.ParseScheme(cfg.Provider.Scheme); err != nil {
		errs = append(
			errs,
			fmt.Errorf("provider.scheme must be one of: graphql, rest (got %q)", cfg.Provider.Scheme),
		)
	}
	if cfg.Provider.Timeout < 0 {
		errs = append(errs, fmt.Errorf("provider.timeout must not be negative"))
	}
	if cfg.Provider.Retries() < 0 {
		errs = append(errs, fmt.Errorf("provider.max_retries must not be negative"))
	}
	if cfg.Provider.TokenSafetyMargin < 0 {
		errs = append(errs, fmt.Errorf("provider.token_safety_margin must not be negative"))
	}
	if cfg.Provider.RateLimit.Enabled {
		if cfg.Provider.RateLimit.PerSecond <= 0 {
			errs = append(errs, fmt.Errorf("provider.rate_limit.per_second must be positive"))
		}
		if cfg.Provider.RateLimit.Burst < 1 {
			errs = append(errs, fmt.Errorf("provider.rate_limit.burst must be at least 1"))
		}
	}

	if cfg.Schedule.TokenRefreshInterval < time.Minute {
		errs = append(errs, fmt.Errorf("schedule.token_refresh_interval must be at least 1m"))
	}

	if r := *cfg.Telemetry.SampleRatio; r < 0 || r > 1 {
		errs = append(errs, fmt.Errorf("telemetry.sample_ratio must be between 0 and 1 (got %g)", r))
	}

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(
			errs,
			fmt.Errorf("logging.level must be one of: debug, info, warn, error (got %q)", cfg.Logging.Level),
		)
	}
	switch cfg.Logging.Format {
	case "text", "json":
	default:
		errs = append(
			errs,
			fmt.Errorf("logging.format must be one of: text, json (got %q)", cfg.Logging.Format),
		)
	}

	return errors.Join(errs...)
}
