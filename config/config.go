package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/spf13/viper"
)

const VERSION = "1.0"

// Config is the top-level configuration for the webhook delivery service,
// scaled down from the teacher's multi-tenant SaaS config to this module's
// single-process, multi-site deployment (spec §6, §9).
type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Delivery    DeliveryConfig
	Security    SecurityConfig
	Tracing     TracingConfig
	Environment string
	LogLevel    string
	Version     string

	// DeclarativePath points at an optional YAML file of statically
	// configured subscriptions, applied by config/declarative.go at
	// startup (SPEC_FULL §6, grounded on
	// original_source/src/nti/webhooks/generations.py).
	DeclarativePath string

	// DeclarativeStatePath records the previously applied declared set so
	// reconciliation can diff kept/added/removed on the next startup. When
	// unset it defaults to DeclarativePath with a ".state" suffix; empty
	// when DeclarativePath is empty.
	DeclarativeStatePath string
}

type ServerConfig struct {
	Port int
	Host string
	SSL  SSLConfig
}

type SSLConfig struct {
	Enabled  bool
	CertFile string
	KeyFile  string
}

type DatabaseConfig struct {
	Host                  string
	Port                  int
	User                  string
	Password              string
	DBName                string
	SSLMode               string
	MaxOpenConns          int
	MaxIdleConns          int
	ConnectionMaxLifetime time.Duration
	ConnectionMaxIdleTime time.Duration
}

// DSN builds a PostgreSQL connection string, omitting the password segment
// when it's empty, the way the teacher's getSystemDSN does.
func (c DatabaseConfig) DSN() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "require"
	}
	if c.Password == "" {
		return fmt.Sprintf("host=%s port=%d user=%s dbname=%s sslmode=%s",
			c.Host, c.Port, c.User, c.DBName, sslMode)
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, sslMode)
}

// DeliveryConfig tunes the Engine's worker pool and per-host throttling
// (internal/delivery/engine.go). DefaultAttemptLimit and
// DefaultApplicablePreconditionFailureLimit are loaded but not read
// elsewhere: new subscriptions take domain.DefaultAttemptLimit and
// domain.DefaultPreconditionFailureLimit.
type DeliveryConfig struct {
	Concurrency      int
	RequestTimeout   time.Duration
	MaxResponseBytes int64

	// Per-host rate limiting; PerHostMaxAttempts <= 0 disables it.
	PerHostMaxAttempts int
	PerHostWindow      time.Duration

	DefaultAttemptLimit                       int
	DefaultApplicablePreconditionFailureLimit int

	// DestinationValidationCacheTTL controls how long DestinationValidator
	// caches a host's resolvability outcome; 0 disables the cache.
	DestinationValidationCacheTTL time.Duration
}

// SecurityConfig holds the HMAC secret used to sign and verify bearer
// tokens (internal/http/middleware/auth.go).
type SecurityConfig struct {
	JWTSecret []byte
}

type TracingConfig struct {
	Enabled             bool
	ServiceName         string
	SamplingProbability float64

	TraceExporter string // "jaeger", "stackdriver", "zipkin", "azure", "datadog", "xray", "none"

	JaegerEndpoint string
	ZipkinEndpoint string

	StackdriverProjectID string

	AzureInstrumentationKey string

	DatadogAgentAddress string
	DatadogAPIKey       string

	XRayRegion string

	AgentEndpoint string

	MetricsExporter string // "prometheus", "stackdriver", "datadog", "none" or comma-separated list
	PrometheusPort  int
}

// LoadOptions contains options for loading configuration.
type LoadOptions struct {
	EnvFile string // Optional environment file to load (e.g., ".env", ".env.test")
}

// Load loads the configuration with default options.
func Load() (*Config, error) {
	return LoadWithOptions(LoadOptions{EnvFile: ".env"})
}

// LoadWithOptions loads the configuration with the specified options,
// following the teacher's viper idiom: defaults, then optional dotenv file,
// then real environment variables, which always win.
func LoadWithOptions(opts LoadOptions) (*Config, error) {
	v := viper.New()

	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("SERVER_HOST", "0.0.0.0")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "webhooks")
	v.SetDefault("DB_SSLMODE", "require")
	v.SetDefault("DB_MAX_OPEN_CONNS", 20)
	v.SetDefault("DB_MAX_IDLE_CONNS", 10)
	v.SetDefault("DB_CONN_MAX_LIFETIME", "30m")
	v.SetDefault("DB_CONN_MAX_IDLE_TIME", "5m")

	v.SetDefault("DELIVERY_CONCURRENCY", 10)
	v.SetDefault("DELIVERY_REQUEST_TIMEOUT", "30s")
	v.SetDefault("DELIVERY_MAX_RESPONSE_BYTES", 64*1024)
	v.SetDefault("DELIVERY_PER_HOST_MAX_ATTEMPTS", 0)
	v.SetDefault("DELIVERY_PER_HOST_WINDOW", "1s")
	v.SetDefault("DELIVERY_DEFAULT_ATTEMPT_LIMIT", 50)
	v.SetDefault("DELIVERY_DEFAULT_PRECONDITION_FAILURE_LIMIT", 50)
	v.SetDefault("DELIVERY_DESTINATION_VALIDATION_CACHE_TTL", "5m")

	v.SetDefault("ENVIRONMENT", "production")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("VERSION", VERSION)
	v.SetDefault("DECLARATIVE_SUBSCRIPTIONS_PATH", "")

	v.SetDefault("TRACING_ENABLED", false)
	v.SetDefault("TRACING_SERVICE_NAME", "webhookd")
	v.SetDefault("TRACING_SAMPLING_PROBABILITY", 0.1)
	v.SetDefault("TRACING_TRACE_EXPORTER", "none")
	v.SetDefault("TRACING_JAEGER_ENDPOINT", "http://localhost:14268/api/traces")
	v.SetDefault("TRACING_ZIPKIN_ENDPOINT", "http://localhost:9411/api/v2/spans")
	v.SetDefault("TRACING_STACKDRIVER_PROJECT_ID", "")
	v.SetDefault("TRACING_AZURE_INSTRUMENTATION_KEY", "")
	v.SetDefault("TRACING_DATADOG_AGENT_ADDRESS", "localhost:8126")
	v.SetDefault("TRACING_DATADOG_API_KEY", "")
	v.SetDefault("TRACING_XRAY_REGION", "us-west-2")
	v.SetDefault("TRACING_AGENT_ENDPOINT", "localhost:8126")
	v.SetDefault("TRACING_METRICS_EXPORTER", "none")
	v.SetDefault("TRACING_PROMETHEUS_PORT", 9464)

	if opts.EnvFile != "" {
		v.SetConfigName(opts.EnvFile)
		v.SetConfigType("env")

		currentPath, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("error getting current directory: %w", err)
		}
		v.AddConfigPath(currentPath)

		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	jwtSecret := v.GetString("JWT_SECRET")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET must be set")
	}

	dbMaxLifetime, err := time.ParseDuration(v.GetString("DB_CONN_MAX_LIFETIME"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_CONN_MAX_LIFETIME: %w", err)
	}
	dbMaxIdleTime, err := time.ParseDuration(v.GetString("DB_CONN_MAX_IDLE_TIME"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_CONN_MAX_IDLE_TIME: %w", err)
	}
	deliveryTimeout, err := time.ParseDuration(v.GetString("DELIVERY_REQUEST_TIMEOUT"))
	if err != nil {
		return nil, fmt.Errorf("invalid DELIVERY_REQUEST_TIMEOUT: %w", err)
	}
	perHostWindow, err := time.ParseDuration(v.GetString("DELIVERY_PER_HOST_WINDOW"))
	if err != nil {
		return nil, fmt.Errorf("invalid DELIVERY_PER_HOST_WINDOW: %w", err)
	}
	destinationValidationCacheTTL, err := time.ParseDuration(v.GetString("DELIVERY_DESTINATION_VALIDATION_CACHE_TTL"))
	if err != nil {
		return nil, fmt.Errorf("invalid DELIVERY_DESTINATION_VALIDATION_CACHE_TTL: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: v.GetInt("SERVER_PORT"),
			Host: v.GetString("SERVER_HOST"),
			SSL: SSLConfig{
				Enabled:  v.GetBool("SSL_ENABLED"),
				CertFile: v.GetString("SSL_CERT_FILE"),
				KeyFile:  v.GetString("SSL_KEY_FILE"),
			},
		},
		Database: DatabaseConfig{
			Host:                  v.GetString("DB_HOST"),
			Port:                  v.GetInt("DB_PORT"),
			User:                  v.GetString("DB_USER"),
			Password:              v.GetString("DB_PASSWORD"),
			DBName:                v.GetString("DB_NAME"),
			SSLMode:               v.GetString("DB_SSLMODE"),
			MaxOpenConns:          v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:          v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnectionMaxLifetime: dbMaxLifetime,
			ConnectionMaxIdleTime: dbMaxIdleTime,
		},
		Delivery: DeliveryConfig{
			Concurrency:                                v.GetInt("DELIVERY_CONCURRENCY"),
			RequestTimeout:                              deliveryTimeout,
			MaxResponseBytes:                            v.GetInt64("DELIVERY_MAX_RESPONSE_BYTES"),
			PerHostMaxAttempts:                          v.GetInt("DELIVERY_PER_HOST_MAX_ATTEMPTS"),
			PerHostWindow:                               perHostWindow,
			DefaultAttemptLimit:                         v.GetInt("DELIVERY_DEFAULT_ATTEMPT_LIMIT"),
			DefaultApplicablePreconditionFailureLimit:   v.GetInt("DELIVERY_DEFAULT_PRECONDITION_FAILURE_LIMIT"),
			DestinationValidationCacheTTL:                destinationValidationCacheTTL,
		},
		Security: SecurityConfig{
			JWTSecret: []byte(jwtSecret),
		},
		Tracing: TracingConfig{
			Enabled:                 v.GetBool("TRACING_ENABLED"),
			ServiceName:             v.GetString("TRACING_SERVICE_NAME"),
			SamplingProbability:     v.GetFloat64("TRACING_SAMPLING_PROBABILITY"),
			TraceExporter:           v.GetString("TRACING_TRACE_EXPORTER"),
			JaegerEndpoint:          v.GetString("TRACING_JAEGER_ENDPOINT"),
			ZipkinEndpoint:          v.GetString("TRACING_ZIPKIN_ENDPOINT"),
			StackdriverProjectID:    v.GetString("TRACING_STACKDRIVER_PROJECT_ID"),
			AzureInstrumentationKey: v.GetString("TRACING_AZURE_INSTRUMENTATION_KEY"),
			DatadogAgentAddress:     v.GetString("TRACING_DATADOG_AGENT_ADDRESS"),
			DatadogAPIKey:           v.GetString("TRACING_DATADOG_API_KEY"),
			XRayRegion:              v.GetString("TRACING_XRAY_REGION"),
			AgentEndpoint:           v.GetString("TRACING_AGENT_ENDPOINT"),
			MetricsExporter:         v.GetString("TRACING_METRICS_EXPORTER"),
			PrometheusPort:          v.GetInt("TRACING_PROMETHEUS_PORT"),
		},
		Environment:          v.GetString("ENVIRONMENT"),
		LogLevel:             v.GetString("LOG_LEVEL"),
		Version:              v.GetString("VERSION"),
		DeclarativePath:      v.GetString("DECLARATIVE_SUBSCRIPTIONS_PATH"),
		DeclarativeStatePath: v.GetString("DECLARATIVE_SUBSCRIPTIONS_STATE_PATH"),
	}

	if cfg.DeclarativePath != "" && cfg.DeclarativeStatePath == "" {
		cfg.DeclarativeStatePath = cfg.DeclarativePath + ".state"
	}

	return cfg, nil
}

// IsDevelopment returns true if the environment is set to development.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true if the environment is set to production.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
