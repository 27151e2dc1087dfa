package internal

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"http_server"`
	Backend       BackendConfig       `mapstructure:"backend"`
	Session       SessionConfig       `mapstructure:"session"`
	Cache         CacheConfig         `mapstructure:"cache"`
	RateLimit     RateLimitConfig     `mapstructure:"rate_limit"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

type ServerConfig struct {
	Port              int           `mapstructure:"port" validate:"required,min=1,max=65535"`
	BaseURL           string        `mapstructure:"base_url"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
}

// BackendConfig describes the remote helpdesk API every page delegates to.
type BackendConfig struct {
	BaseURL           string        `mapstructure:"base_url" validate:"required,url"`
	Timeout           time.Duration `mapstructure:"timeout"`
	UploadTimeout     time.Duration `mapstructure:"upload_timeout"`
	UploadConcurrency int           `mapstructure:"upload_concurrency" validate:"min=0,max=16"`
	ValidateResponses bool          `mapstructure:"validate_responses"`
}

type SessionConfig struct {
	CookieName string        `mapstructure:"cookie_name"`
	Secret     string        `mapstructure:"secret" validate:"required,min=32"`
	MaxAge     time.Duration `mapstructure:"max_age"`
	Secure     bool          `mapstructure:"secure"`
}

type CacheConfig struct {
	Driver string        `mapstructure:"driver" validate:"omitempty,oneof=memory redis"`
	TTL    time.Duration `mapstructure:"ttl"`
	Redis  RedisConfig   `mapstructure:"redis"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"min=0"`
}

type RateLimitConfig struct {
	AuthRequestsPerMinute int `mapstructure:"auth_requests_per_minute" validate:"min=0"`
}

type ObservabilityConfig struct {
	Metrics MetricsConfig `mapstructure:"metrics"`
	Logging LoggingConfig `mapstructure:"logging"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path" validate:"required_if=Enabled true"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"omitempty,oneof=json text"`
}

const (
	DefaultBackendTimeout    = 60 * time.Second
	DefaultUploadTimeout     = 120 * time.Second
	DefaultUploadConcurrency = 4
	DefaultSessionMaxAge     = 7 * 24 * time.Hour
	DefaultCookieName        = "token"
	DefaultCacheTTL          = 30 * time.Second
)

// ApplyDefaults fills every optional knob left empty by the loader.
func (c *Config) ApplyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadHeaderTimeout == 0 {
		c.Server.ReadHeaderTimeout = 5 * time.Second
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 30 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		// uploads are proxied inside the request, so the write deadline must outlive them
		c.Server.WriteTimeout = 150 * time.Second
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = 120 * time.Second
	}
	if c.Backend.Timeout == 0 {
		c.Backend.Timeout = DefaultBackendTimeout
	}
	if c.Backend.UploadTimeout == 0 {
		c.Backend.UploadTimeout = DefaultUploadTimeout
	}
	if c.Backend.UploadConcurrency == 0 {
		c.Backend.UploadConcurrency = DefaultUploadConcurrency
	}
	if c.Session.CookieName == "" {
		c.Session.CookieName = DefaultCookieName
	}
	if c.Session.MaxAge == 0 {
		c.Session.MaxAge = DefaultSessionMaxAge
	}
	if c.Cache.Driver == "" {
		c.Cache.Driver = "memory"
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = DefaultCacheTTL
	}
	if c.Observability.Metrics.Enabled && c.Observability.Metrics.Path == "" {
		c.Observability.Metrics.Path = "/metrics"
	}
	if c.Observability.Logging.Level == "" {
		c.Observability.Logging.Level = "info"
	}
	if c.Observability.Logging.Format == "" {
		c.Observability.Logging.Format = "text"
	}
}

// ----------------- ENV LOADING -----------------

// LoadConfigFromEnv builds the configuration from plain environment variables,
// used for container deployments where no config.yml is mounted.
func LoadConfigFromEnv() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnvAsInt("HTTP_SERVER_PORT", 8080),
			BaseURL:      getEnv("HTTP_SERVER_BASE_URL", ""),
			ReadTimeout:  getEnvAsDuration("HTTP_SERVER_READ_TIMEOUT", 0),
			WriteTimeout: getEnvAsDuration("HTTP_SERVER_WRITE_TIMEOUT", 0),
			IdleTimeout:  getEnvAsDuration("HTTP_SERVER_IDLE_TIMEOUT", 0),
		},
		Backend: BackendConfig{
			BaseURL:           getEnv("BACKEND_BASE_URL", ""),
			Timeout:           getEnvAsDuration("BACKEND_TIMEOUT", 0),
			UploadTimeout:     getEnvAsDuration("BACKEND_UPLOAD_TIMEOUT", 0),
			UploadConcurrency: getEnvAsInt("BACKEND_UPLOAD_CONCURRENCY", 0),
			ValidateResponses: getEnvAsBool("BACKEND_VALIDATE_RESPONSES", true),
		},
		Session: SessionConfig{
			CookieName: getEnv("SESSION_COOKIE_NAME", ""),
			Secret:     getEnv("SESSION_SECRET", ""),
			MaxAge:     getEnvAsDuration("SESSION_MAX_AGE", 0),
			Secure:     getEnvAsBool("SESSION_SECURE", true),
		},
		Cache: CacheConfig{
			Driver: getEnv("CACHE_DRIVER", ""),
			TTL:    getEnvAsDuration("CACHE_TTL", 0),
			Redis: RedisConfig{
				Addr:     getEnv("CACHE_REDIS_ADDR", ""),
				Password: getEnv("CACHE_REDIS_PASSWORD", ""),
				DB:       getEnvAsInt("CACHE_REDIS_DB", 0),
			},
		},
		RateLimit: RateLimitConfig{
			AuthRequestsPerMinute: getEnvAsInt("RATE_LIMIT_AUTH_REQUESTS_PER_MINUTE", 10),
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: getEnvAsBool("METRICS_ENABLED", true),
				Path:    getEnv("METRICS_PATH", "/metrics"),
			},
			Logging: LoggingConfig{
				Level:  getEnv("LOG_LEVEL", "info"),
				Format: getEnv("LOG_FORMAT", "json"),
			},
		},
	}
	cfg.ApplyDefaults()
	return cfg
}

// ----------------- HELPERS -----------------

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultVal
}

// ----------------- VALIDATION -----------------

var structValidator = validator.New(validator.WithRequiredStructEnabled())

func (c *Config) Validate() error {
	var errs []string

	if err := structValidator.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				errs = append(errs, fmt.Sprintf("%s failed on '%s'", fe.Namespace(), fe.Tag()))
			}
		} else {
			errs = append(errs, err.Error())
		}
	}

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}

	if err := c.Backend.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("backend config: %v", err))
	}

	if err := c.Cache.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("cache config: %v", err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

func (c *ServerConfig) Validate() error {
	if c.ReadTimeout < c.ReadHeaderTimeout {
		return errors.New("read_timeout must be >= read_header_timeout")
	}
	return nil
}

func (c *BackendConfig) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base_url %s: %w", c.BaseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("base_url must be http or https, got %q", u.Scheme)
	}
	if c.UploadTimeout < c.Timeout {
		return errors.New("upload_timeout must be >= timeout")
	}
	return nil
}

func (c *CacheConfig) Validate() error {
	if c.Driver == "redis" && c.Redis.Addr == "" {
		return errors.New("redis.addr is required when driver is redis")
	}
	return nil
}
