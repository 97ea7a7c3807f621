package core

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for a nodemesh daemon.
// It supports layered configuration priority:
//  1. Default values (lowest priority)
//  2. Environment variables, optionally seeded from a .env file
//  3. Config file (JSON or YAML) when WithConfigFile is used
//  4. Functional options (highest priority)
//
// Example usage:
//
//	cfg, err := NewConfig(
//	    WithName("registry-eu"),
//	    WithPort(8080),
//	    WithMirror("redis://localhost:6379"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
type Config struct {
	Name      string `json:"name" yaml:"name" env:"NODEMESH_NAME" default:"nodemesh"`
	Port      int    `json:"port" yaml:"port" env:"NODEMESH_PORT,PORT" default:"8080"`
	Address   string `json:"address" yaml:"address" env:"NODEMESH_ADDRESS"`
	Namespace string `json:"namespace" yaml:"namespace" env:"NODEMESH_NAMESPACE" default:"nodemesh"`

	HTTP        HTTPConfig        `json:"http" yaml:"http"`
	Discovery   DiscoveryConfig   `json:"discovery" yaml:"discovery"`
	Mirror      MirrorConfig      `json:"mirror" yaml:"mirror"`
	Telemetry   TelemetryConfig   `json:"telemetry" yaml:"telemetry"`
	Logging     LoggingConfig     `json:"logging" yaml:"logging"`
	Development DevelopmentConfig `json:"development" yaml:"development"`
}

// HTTPConfig contains HTTP server configuration including timeouts and CORS settings.
type HTTPConfig struct {
	ReadTimeout     time.Duration `json:"read_timeout" yaml:"read_timeout" env:"NODEMESH_HTTP_READ_TIMEOUT" default:"30s"`
	WriteTimeout    time.Duration `json:"write_timeout" yaml:"write_timeout" env:"NODEMESH_HTTP_WRITE_TIMEOUT" default:"30s"`
	IdleTimeout     time.Duration `json:"idle_timeout" yaml:"idle_timeout" env:"NODEMESH_HTTP_IDLE_TIMEOUT" default:"120s"`
	MaxHeaderBytes  int           `json:"max_header_bytes" yaml:"max_header_bytes" default:"1048576"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout" env:"NODEMESH_HTTP_SHUTDOWN_TIMEOUT" default:"10s"`
	CORS            CORSConfig    `json:"cors" yaml:"cors"`
}

// CORSConfig contains Cross-Origin Resource Sharing (CORS) configuration.
// Supports wildcard domains (e.g., *.example.com) and wildcard ports (e.g., http://localhost:*).
type CORSConfig struct {
	Enabled          bool     `json:"enabled" yaml:"enabled" env:"NODEMESH_CORS_ENABLED" default:"false"`
	AllowedOrigins   []string `json:"allowed_origins" yaml:"allowed_origins" env:"NODEMESH_CORS_ORIGINS"`
	AllowedMethods   []string `json:"allowed_methods" yaml:"allowed_methods" env:"NODEMESH_CORS_METHODS" default:"GET,POST,OPTIONS"`
	AllowedHeaders   []string `json:"allowed_headers" yaml:"allowed_headers" env:"NODEMESH_CORS_HEADERS" default:"Content-Type,Authorization"`
	ExposedHeaders   []string `json:"exposed_headers" yaml:"exposed_headers"`
	AllowCredentials bool     `json:"allow_credentials" yaml:"allow_credentials" env:"NODEMESH_CORS_CREDENTIALS" default:"false"`
	MaxAge           int      `json:"max_age" yaml:"max_age" default:"86400"`
}

// DiscoveryConfig controls announcement handling and the expiry sweep.
// DefaultTTL applies to announcements that arrive without an explicit TTL.
type DiscoveryConfig struct {
	DefaultTTL    time.Duration `json:"default_ttl" yaml:"default_ttl" env:"NODEMESH_DISCOVERY_TTL" default:"300s"`
	PruneInterval time.Duration `json:"prune_interval" yaml:"prune_interval" env:"NODEMESH_PRUNE_INTERVAL" default:"30s"`
	SharedStore   bool          `json:"shared_store" yaml:"shared_store" env:"NODEMESH_SHARED_STORE" default:"false"`
}

// MirrorConfig controls the Redis export of registry entries.
// Entries written to Redis expire after TTL unless the next sync refreshes them.
type MirrorConfig struct {
	Enabled        bool                 `json:"enabled" yaml:"enabled" env:"NODEMESH_MIRROR_ENABLED" default:"false"`
	RedisURL       string               `json:"redis_url" yaml:"redis_url" env:"NODEMESH_REDIS_URL,REDIS_URL"`
	Namespace      string               `json:"namespace" yaml:"namespace" env:"NODEMESH_MIRROR_NAMESPACE" default:"nodemesh"`
	TTL            time.Duration        `json:"ttl" yaml:"ttl" env:"NODEMESH_MIRROR_TTL" default:"90s"`
	CircuitBreaker CircuitBreakerConfig `json:"circuit_breaker" yaml:"circuit_breaker"`
}

// CircuitBreakerConfig defines circuit breaker pattern settings.
// The circuit breaker prevents cascading failures by failing fast when a threshold
// of errors is reached. After a timeout period, it allows limited requests to test
// if the service has recovered.
type CircuitBreakerConfig struct {
	Enabled          bool          `json:"enabled" yaml:"enabled" default:"true"`
	Threshold        int           `json:"threshold" yaml:"threshold" default:"5"`
	Timeout          time.Duration `json:"timeout" yaml:"timeout" default:"30s"`
	HalfOpenRequests int           `json:"half_open_requests" yaml:"half_open_requests" default:"1"`
}

// TelemetryConfig contains OpenTelemetry tracing configuration.
// Exporter is one of "otlp", "stdout" or "none".
type TelemetryConfig struct {
	Enabled      bool    `json:"enabled" yaml:"enabled" env:"NODEMESH_TELEMETRY_ENABLED" default:"false"`
	Exporter     string  `json:"exporter" yaml:"exporter" env:"NODEMESH_TELEMETRY_EXPORTER" default:"otlp"`
	Endpoint     string  `json:"endpoint" yaml:"endpoint" env:"NODEMESH_TELEMETRY_ENDPOINT,OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName  string  `json:"service_name" yaml:"service_name" env:"NODEMESH_TELEMETRY_SERVICE_NAME,OTEL_SERVICE_NAME"`
	SamplingRate float64 `json:"sampling_rate" yaml:"sampling_rate" env:"NODEMESH_TELEMETRY_SAMPLING_RATE" default:"1.0"`
	Insecure     bool    `json:"insecure" yaml:"insecure" default:"true"`

	// MetricsEndpoint is an OTLP/HTTP collector (host:port) for registry
	// metrics. Empty keeps metrics in-process.
	MetricsEndpoint string `json:"metrics_endpoint" yaml:"metrics_endpoint" env:"NODEMESH_TELEMETRY_METRICS_ENDPOINT"`
}

// LoggingConfig contains logging configuration.
// Supports structured (JSON) and human-readable (text) formats.
type LoggingConfig struct {
	Level  string `json:"level" yaml:"level" env:"NODEMESH_LOG_LEVEL" default:"info"`
	Format string `json:"format" yaml:"format" env:"NODEMESH_LOG_FORMAT" default:"json"`
}

// DevelopmentConfig relaxes logging for local runs.
type DevelopmentConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled" env:"NODEMESH_DEV_MODE" default:"false"`
}

// Option is a functional option for configuring the daemon.
// Options are applied in order and can return an error if the configuration is invalid.
type Option func(*Config) error

// DefaultConfig returns a configuration with sensible defaults.
// The defaults are adjusted based on the detected environment:
//   - Kubernetes: 0.0.0.0 binding, JSON logging
//   - Local: localhost binding
func DefaultConfig() *Config {
	cfg := &Config{
		Name:      "nodemesh",
		Port:      8080,
		Namespace: "nodemesh",
		HTTP: HTTPConfig{
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     120 * time.Second,
			MaxHeaderBytes:  1 << 20,
			ShutdownTimeout: 10 * time.Second,
			CORS:            *DefaultCORSConfig(),
		},
		Discovery: DiscoveryConfig{
			DefaultTTL:    DefaultAnnouncementTTL,
			PruneInterval: DefaultPruneInterval,
			SharedStore:   false,
		},
		Mirror: MirrorConfig{
			Enabled:   false,
			Namespace: "nodemesh",
			TTL:       DefaultMirrorTTL,
			CircuitBreaker: CircuitBreakerConfig{
				Enabled:          true,
				Threshold:        5,
				Timeout:          30 * time.Second,
				HalfOpenRequests: 1,
			},
		},
		Telemetry: TelemetryConfig{
			Enabled:      false,
			Exporter:     "otlp",
			SamplingRate: 1.0,
			Insecure:     true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}

	cfg.DetectEnvironment()

	return cfg
}

// DetectEnvironment adjusts defaults for the detected runtime.
// Kubernetes is detected through KUBERNETES_SERVICE_HOST.
func (c *Config) DetectEnvironment() {
	if os.Getenv("KUBERNETES_SERVICE_HOST") != "" {
		c.Address = "0.0.0.0"
		c.Logging.Format = "json"
		return
	}
	c.Address = "localhost"
}

// LoadDotEnv seeds the process environment from a .env file.
// Variables already present in the environment are not overwritten.
func (c *Config) LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		return &MeshError{
			Op:      "Config.LoadDotEnv",
			Kind:    KindConfig,
			Message: fmt.Sprintf("failed to load env file %s: %v", path, err),
			Err:     ErrInvalidConfiguration,
		}
	}
	return nil
}

// LoadFromEnv loads configuration from environment variables.
// Environment variables take precedence over defaults but are overridden by functional options.
//
// Variable naming convention:
//   - Daemon-specific: NODEMESH_<SETTING>
//   - Standard variables: PORT, REDIS_URL, OTEL_EXPORTER_OTLP_ENDPOINT, OTEL_SERVICE_NAME
//
// Returns an error if environment variables contain invalid values.
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv("NODEMESH_NAME"); v != "" {
		c.Name = v
	}
	if v := firstEnv("NODEMESH_PORT", "PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return envError("NODEMESH_PORT", v)
		}
		c.Port = port
	}
	if v := os.Getenv("NODEMESH_ADDRESS"); v != "" {
		c.Address = v
	}
	if v := os.Getenv("NODEMESH_NAMESPACE"); v != "" {
		c.Namespace = v
	}

	// HTTP settings
	durations := []struct {
		key    string
		target *time.Duration
	}{
		{"NODEMESH_HTTP_READ_TIMEOUT", &c.HTTP.ReadTimeout},
		{"NODEMESH_HTTP_WRITE_TIMEOUT", &c.HTTP.WriteTimeout},
		{"NODEMESH_HTTP_IDLE_TIMEOUT", &c.HTTP.IdleTimeout},
		{"NODEMESH_HTTP_SHUTDOWN_TIMEOUT", &c.HTTP.ShutdownTimeout},
		{"NODEMESH_DISCOVERY_TTL", &c.Discovery.DefaultTTL},
		{"NODEMESH_PRUNE_INTERVAL", &c.Discovery.PruneInterval},
		{"NODEMESH_MIRROR_TTL", &c.Mirror.TTL},
	}
	for _, d := range durations {
		v := os.Getenv(d.key)
		if v == "" {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return envError(d.key, v)
		}
		*d.target = parsed
	}

	// CORS settings
	if v := os.Getenv("NODEMESH_CORS_ENABLED"); v != "" {
		c.HTTP.CORS.Enabled = parseBool(v)
	}
	if v := os.Getenv("NODEMESH_CORS_ORIGINS"); v != "" {
		c.HTTP.CORS.AllowedOrigins = parseStringList(v)
	}
	if v := os.Getenv("NODEMESH_CORS_METHODS"); v != "" {
		c.HTTP.CORS.AllowedMethods = parseStringList(v)
	}
	if v := os.Getenv("NODEMESH_CORS_HEADERS"); v != "" {
		c.HTTP.CORS.AllowedHeaders = parseStringList(v)
	}
	if v := os.Getenv("NODEMESH_CORS_CREDENTIALS"); v != "" {
		c.HTTP.CORS.AllowCredentials = parseBool(v)
	}

	// Discovery settings
	if v := os.Getenv("NODEMESH_SHARED_STORE"); v != "" {
		c.Discovery.SharedStore = parseBool(v)
	}

	// Mirror settings
	if v := os.Getenv("NODEMESH_MIRROR_ENABLED"); v != "" {
		c.Mirror.Enabled = parseBool(v)
	}
	if v := firstEnv("NODEMESH_REDIS_URL", "REDIS_URL"); v != "" {
		c.Mirror.RedisURL = v
	}
	if v := os.Getenv("NODEMESH_MIRROR_NAMESPACE"); v != "" {
		c.Mirror.Namespace = v
	}

	// Telemetry settings
	if v := os.Getenv("NODEMESH_TELEMETRY_ENABLED"); v != "" {
		c.Telemetry.Enabled = parseBool(v)
	}
	if v := os.Getenv("NODEMESH_TELEMETRY_EXPORTER"); v != "" {
		c.Telemetry.Exporter = strings.ToLower(v)
	}
	if v := firstEnv("NODEMESH_TELEMETRY_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		c.Telemetry.Endpoint = v
		c.Telemetry.Enabled = true // Auto-enable if an endpoint is provided
	}
	if v := os.Getenv("NODEMESH_TELEMETRY_METRICS_ENDPOINT"); v != "" {
		c.Telemetry.MetricsEndpoint = v
	}
	if v := firstEnv("NODEMESH_TELEMETRY_SERVICE_NAME", "OTEL_SERVICE_NAME"); v != "" {
		c.Telemetry.ServiceName = v
	}
	if v := os.Getenv("NODEMESH_TELEMETRY_SAMPLING_RATE"); v != "" {
		rate, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return envError("NODEMESH_TELEMETRY_SAMPLING_RATE", v)
		}
		c.Telemetry.SamplingRate = rate
	}

	// Logging settings
	if v := os.Getenv("NODEMESH_LOG_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("NODEMESH_LOG_FORMAT"); v != "" {
		c.Logging.Format = strings.ToLower(v)
	}

	if v := os.Getenv("NODEMESH_DEV_MODE"); v != "" {
		c.Development.Enabled = parseBool(v)
		if c.Development.Enabled {
			c.Logging.Level = "debug"
			c.Logging.Format = "text"
		}
	}

	return nil
}

// LoadFromFile loads configuration from a JSON or YAML file.
// File settings override environment variables but are overridden by functional options.
//
// Example YAML:
//
//	name: registry-eu
//	port: 8080
//	discovery:
//	  default_ttl: 300s
//	  prune_interval: 15s
//	mirror:
//	  enabled: true
//	  redis_url: redis://localhost:6379
func (c *Config) LoadFromFile(path string) error {
	cleanPath := filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(cleanPath))
	if ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("unsupported config file extension %s: %w", ext, ErrInvalidConfiguration)
	}

	data, err := os.ReadFile(cleanPath) // nosec G304 -- operator supplied path
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", cleanPath, err)
	}

	switch ext {
	case ".json":
		if err := json.Unmarshal(data, c); err != nil {
			return fmt.Errorf("failed to parse JSON config file: %v: %w", err, ErrInvalidConfiguration)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("failed to parse YAML config file: %v: %w", err, ErrInvalidConfiguration)
		}
	}

	return nil
}

// Validate checks if the configuration is valid and returns an error if not.
// This method is called automatically by NewConfig().
//
// Validation rules:
//   - Port must be between 1 and 65535
//   - Name is required
//   - Announcement TTL must not be negative, prune interval must be positive
//   - Redis URL is required when the mirror is enabled
//   - Telemetry exporter must be known; otlp needs an endpoint
//   - Log format must be json or text
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return configError(fmt.Sprintf("invalid port: %d", c.Port), ErrInvalidConfiguration)
	}

	if c.Name == "" {
		return configError("name is required", ErrMissingConfiguration)
	}

	if c.Discovery.DefaultTTL < 0 {
		return configError(fmt.Sprintf("invalid announcement ttl: %s", c.Discovery.DefaultTTL), ErrInvalidConfiguration)
	}
	if c.Discovery.PruneInterval <= 0 {
		return configError(fmt.Sprintf("invalid prune interval: %s", c.Discovery.PruneInterval), ErrInvalidConfiguration)
	}

	if c.Mirror.Enabled {
		if c.Mirror.RedisURL == "" {
			return configError("redis URL is required when the mirror is enabled", ErrMissingConfiguration)
		}
		if c.Mirror.TTL <= 0 {
			return configError(fmt.Sprintf("invalid mirror ttl: %s", c.Mirror.TTL), ErrInvalidConfiguration)
		}
	}

	if c.Telemetry.Enabled {
		switch c.Telemetry.Exporter {
		case "otlp":
			if c.Telemetry.Endpoint == "" {
				return configError("telemetry endpoint is required for the otlp exporter", ErrMissingConfiguration)
			}
		case "stdout", "none":
		default:
			return configError(fmt.Sprintf("unknown telemetry exporter: %s", c.Telemetry.Exporter), ErrInvalidConfiguration)
		}
		if c.Telemetry.SamplingRate < 0 || c.Telemetry.SamplingRate > 1 {
			return configError(fmt.Sprintf("invalid sampling rate: %v", c.Telemetry.SamplingRate), ErrInvalidConfiguration)
		}
	}

	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		return configError(fmt.Sprintf("invalid log format: %s", c.Logging.Format), ErrInvalidConfiguration)
	}

	return nil
}

// Helper functions

func configError(message string, err error) *MeshError {
	return &MeshError{
		Op:      "Config.Validate",
		Kind:    KindConfig,
		Message: message,
		Err:     err,
	}
}

func envError(key, value string) *MeshError {
	return &MeshError{
		Op:      "Config.LoadFromEnv",
		Kind:    KindConfig,
		Message: fmt.Sprintf("invalid value for %s: %q", key, value),
		Err:     ErrInvalidConfiguration,
	}
}

// firstEnv returns the value of the first variable that is set.
func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

// parseStringList splits a comma-separated string into a slice of strings.
// Whitespace is trimmed from each element, and empty strings are filtered out.
// Example: "a, b, c" -> ["a", "b", "c"]
func parseStringList(s string) []string {
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// parseBool converts a string to a boolean value.
// Accepts: "true", "1", "yes", "on" (case-insensitive) as true.
// Everything else is false.
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

// Functional Options

// WithName sets the daemon name used in logs and telemetry.
func WithName(name string) Option {
	return func(c *Config) error {
		c.Name = name
		return nil
	}
}

// WithPort sets the HTTP server port.
// Returns an error if the port is outside 1-65535.
func WithPort(port int) Option {
	return func(c *Config) error {
		if port < 1 || port > 65535 {
			return &MeshError{
				Op:      "WithPort",
				Kind:    KindConfig,
				Message: fmt.Sprintf("invalid port: %d", port),
				Err:     ErrInvalidConfiguration,
			}
		}
		c.Port = port
		return nil
	}
}

// WithAddress sets the bind address.
func WithAddress(address string) Option {
	return func(c *Config) error {
		c.Address = address
		return nil
	}
}

// WithNamespace sets the namespace used in telemetry resources.
func WithNamespace(namespace string) Option {
	return func(c *Config) error {
		c.Namespace = namespace
		return nil
	}
}

// WithCORS enables CORS for the given origins.
func WithCORS(origins []string, credentials bool) Option {
	return func(c *Config) error {
		c.HTTP.CORS.Enabled = true
		c.HTTP.CORS.AllowedOrigins = origins
		c.HTTP.CORS.AllowCredentials = credentials
		return nil
	}
}

// WithDiscoveryTTL sets the TTL applied to announcements without one.
func WithDiscoveryTTL(ttl time.Duration) Option {
	return func(c *Config) error {
		if ttl < 0 {
			return &MeshError{
				Op:      "WithDiscoveryTTL",
				Kind:    KindConfig,
				Message: fmt.Sprintf("invalid announcement ttl: %s", ttl),
				Err:     ErrInvalidConfiguration,
			}
		}
		c.Discovery.DefaultTTL = ttl
		return nil
	}
}

// WithPruneInterval sets how often the sweeper prunes expired announcements.
func WithPruneInterval(interval time.Duration) Option {
	return func(c *Config) error {
		c.Discovery.PruneInterval = interval
		return nil
	}
}

// WithSharedStore makes discovery and the network share one node registry.
func WithSharedStore(enabled bool) Option {
	return func(c *Config) error {
		c.Discovery.SharedStore = enabled
		return nil
	}
}

// WithMirror enables the Redis export at the given URL.
func WithMirror(redisURL string) Option {
	return func(c *Config) error {
		c.Mirror.Enabled = true
		c.Mirror.RedisURL = redisURL
		return nil
	}
}

// WithMirrorNamespace sets the Redis key prefix used by the mirror.
func WithMirrorNamespace(namespace string) Option {
	return func(c *Config) error {
		c.Mirror.Namespace = namespace
		return nil
	}
}

// WithCircuitBreaker configures the breaker guarding mirror writes.
func WithCircuitBreaker(threshold int, timeout time.Duration) Option {
	return func(c *Config) error {
		c.Mirror.CircuitBreaker.Enabled = true
		c.Mirror.CircuitBreaker.Threshold = threshold
		c.Mirror.CircuitBreaker.Timeout = timeout
		return nil
	}
}

// WithTelemetry enables tracing through the given exporter.
// For "otlp" the endpoint is the collector's gRPC address.
func WithTelemetry(exporter, endpoint string) Option {
	return func(c *Config) error {
		c.Telemetry.Enabled = true
		c.Telemetry.Exporter = strings.ToLower(exporter)
		c.Telemetry.Endpoint = endpoint
		return nil
	}
}

// WithLogLevel sets the log level (debug, info, warn, error).
func WithLogLevel(level string) Option {
	return func(c *Config) error {
		c.Logging.Level = strings.ToLower(level)
		return nil
	}
}

// WithLogFormat sets the log format (json or text).
func WithLogFormat(format string) Option {
	return func(c *Config) error {
		c.Logging.Format = strings.ToLower(format)
		return nil
	}
}

// WithConfigFile loads configuration from a JSON or YAML file.
// Options listed after it override file settings.
func WithConfigFile(path string) Option {
	return func(c *Config) error {
		return c.LoadFromFile(path)
	}
}

// WithDotEnv loads a .env file and re-reads the environment.
func WithDotEnv(path string) Option {
	return func(c *Config) error {
		if err := c.LoadDotEnv(path); err != nil {
			return err
		}
		return c.LoadFromEnv()
	}
}

// WithDevelopmentMode switches to debug text logs.
func WithDevelopmentMode(enabled bool) Option {
	return func(c *Config) error {
		c.Development.Enabled = enabled
		if enabled {
			c.Logging.Format = "text"
			c.Logging.Level = "debug"
		}
		return nil
	}
}

// NewConfig creates a new configuration with the provided options.
// Configuration is applied in the following order:
//  1. Default values from DefaultConfig()
//  2. The .env file named by NODEMESH_ENV_FILE, if any
//  3. Environment variables via LoadFromEnv()
//  4. Functional options (highest priority)
//  5. Validation via Validate()
func NewConfig(opts ...Option) (*Config, error) {
	cfg := DefaultConfig()

	if path := os.Getenv("NODEMESH_ENV_FILE"); path != "" {
		if err := cfg.LoadDotEnv(path); err != nil {
			return nil, fmt.Errorf("failed to load env file: %w", err)
		}
	}

	if err := cfg.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load env config: %w", err)
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}
