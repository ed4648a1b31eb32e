package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the service configuration, read from the environment with an
// optional .env file in the working directory.
type Config struct {
	Port     string `mapstructure:"PORT"`
	Env      string `mapstructure:"ENV"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	CoreAPIBaseURL      string        `mapstructure:"CORE_API_BASE_URL"`
	DischargeAPIBaseURL string        `mapstructure:"DISCHARGE_API_BASE_URL"`
	UpstreamTimeout     time.Duration `mapstructure:"UPSTREAM_TIMEOUT"`

	DBHost     string `mapstructure:"DB_HOST"`
	DBPort     string `mapstructure:"DB_PORT"`
	DBUser     string `mapstructure:"DB_USER"`
	DBPassword string `mapstructure:"DB_PASSWORD"`
	DBName     string `mapstructure:"DB_NAME"`

	RabbitMQURL string `mapstructure:"RABBITMQ_URL"`

	AuthIssuer      string `mapstructure:"AUTH_ISSUER"`
	AuthJWKSURL     string `mapstructure:"AUTH_JWKS_URL"`
	AuthAudience    string `mapstructure:"AUTH_AUD"`
	PermissionsFile string `mapstructure:"PERMISSIONS_FILE"`

	AllowedOrigins []string `mapstructure:"-"`

	HandoffRetention time.Duration `mapstructure:"HANDOFF_RETENTION"`
	LedgerRetention  time.Duration `mapstructure:"LEDGER_RETENTION"`

	OTLPEndpoint         string        `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTELServiceName      string        `mapstructure:"OTEL_SERVICE_NAME"`
	OTELServiceNamespace string        `mapstructure:"OTEL_SERVICE_NAMESPACE"`
	OTELServiceVersion   string        `mapstructure:"OTEL_SERVICE_VERSION"`
	OTELTracesSampler    string        `mapstructure:"OTEL_TRACES_SAMPLER"`
	OTELMetricsInterval  time.Duration `mapstructure:"OTEL_METRICS_EXPORT_INTERVAL"`
}

var keys = []string{
	"PORT", "ENV", "LOG_LEVEL",
	"CORE_API_BASE_URL", "DISCHARGE_API_BASE_URL", "UPSTREAM_TIMEOUT",
	"DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME",
	"RABBITMQ_URL",
	"AUTH_ISSUER", "AUTH_JWKS_URL", "AUTH_AUD", "PERMISSIONS_FILE",
	"ALLOWED_ORIGINS",
	"HANDOFF_RETENTION", "LEDGER_RETENTION",
	"OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_SERVICE_NAME", "OTEL_SERVICE_NAMESPACE",
	"OTEL_SERVICE_VERSION", "OTEL_TRACES_SAMPLER", "OTEL_METRICS_EXPORT_INTERVAL",
}

// Load reads configuration. A missing .env file is not an error.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "production")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CORE_API_BASE_URL", "http://localhost:8082")
	v.SetDefault("DISCHARGE_API_BASE_URL", "http://localhost:5053")
	v.SetDefault("UPSTREAM_TIMEOUT", "30s")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("AUTH_ISSUER", "https://keycloak-wailsalutem-suite.apps.inholland-minor.openshift.eu/realms/wailsalutem")
	v.SetDefault("AUTH_JWKS_URL", "https://keycloak-wailsalutem-suite.apps.inholland-minor.openshift.eu/realms/wailsalutem/protocol/openid-connect/certs")
	v.SetDefault("PERMISSIONS_FILE", "permissions.yml")
	v.SetDefault("ALLOWED_ORIGINS", "http://localhost:3000")
	v.SetDefault("HANDOFF_RETENTION", "24h")
	v.SetDefault("LEDGER_RETENTION", "26280h")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")
	v.SetDefault("OTEL_SERVICE_NAME", "preauth-service")
	v.SetDefault("OTEL_SERVICE_NAMESPACE", "wailsalutem")
	v.SetDefault("OTEL_SERVICE_VERSION", "1.0.0")
	v.SetDefault("OTEL_TRACES_SAMPLER", "always_on")
	v.SetDefault("OTEL_METRICS_EXPORT_INTERVAL", "30s")

	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	for _, origin := range strings.Split(v.GetString("ALLOWED_ORIGINS"), ",") {
		if o := strings.TrimSpace(origin); o != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
		}
	}

	cfg.CoreAPIBaseURL = strings.TrimSuffix(cfg.CoreAPIBaseURL, "/")
	cfg.DischargeAPIBaseURL = strings.TrimSuffix(cfg.DischargeAPIBaseURL, "/")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail late at request time.
func (c *Config) Validate() error {
	if c.CoreAPIBaseURL == "" {
		return fmt.Errorf("CORE_API_BASE_URL is required")
	}
	if c.DischargeAPIBaseURL == "" {
		return fmt.Errorf("DISCHARGE_API_BASE_URL is required")
	}
	if c.UpstreamTimeout <= 0 {
		return fmt.Errorf("UPSTREAM_TIMEOUT must be positive, got %s", c.UpstreamTimeout)
	}
	if c.HandoffRetention <= 0 || c.LedgerRetention <= 0 {
		return fmt.Errorf("retention periods must be positive")
	}
	return nil
}

// IsDev reports whether the service runs in development mode.
func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// DatabaseConfigured reports whether enough DB settings exist to connect.
// Without them the service keeps handoff snapshots and the ledger in memory.
func (c *Config) DatabaseConfigured() bool {
	return c.DBHost != "" && c.DBUser != "" && c.DBPassword != "" && c.DBName != ""
}
