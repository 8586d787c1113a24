// Package config provides functionality for loading and accessing application configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Search backends understood by the extractor wiring
const (
	SearchBackendPiped   = "piped"
	SearchBackendYouTube = "youtube"
)

// Rate limiter stores
const (
	RateLimitStoreMemory = "memory"
	RateLimitStoreRedis  = "redis"
)

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	// Port is the HTTP server port
	Port int `mapstructure:"port" validate:"min=1,max=65535"`
	// Host is the HTTP server host
	Host string `mapstructure:"host"`
	// ReadTimeout is the maximum duration for reading the entire request
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout must exceed the transport ceiling, stream resolution can take a minute
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// IdleTimeout is the maximum amount of time to wait for the next request
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
	// ShutdownTimeout bounds graceful shutdown
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// ExtractorConfig selects and configures the extraction backends.
type ExtractorConfig struct {
	// PipedBaseURL is the base URL of a Piped-compatible API
	PipedBaseURL string `mapstructure:"piped_base_url" validate:"required,url"`
	// SearchBackend is either "piped" or "youtube"
	SearchBackend string `mapstructure:"search_backend" validate:"oneof=piped youtube"`
	// YouTubeAPIKey is required when SearchBackend is "youtube"
	YouTubeAPIKey string `mapstructure:"youtube_api_key" validate:"required_if=SearchBackend youtube"`
	// UserAgent is sent by the transport when an exchange sets none
	UserAgent string `mapstructure:"user_agent"`
}

// BridgeConfig sizes the asynchronous bridge.
type BridgeConfig struct {
	// Workers is the number of concurrent invocations
	Workers int `mapstructure:"workers" validate:"min=1,max=1024"`
	// QueueSize is the number of invocations that may wait for a worker
	QueueSize int `mapstructure:"queue_size" validate:"min=0"`
}

// RateLimitConfig configures inbound request limiting.
type RateLimitConfig struct {
	// Enabled toggles the middleware
	Enabled bool `mapstructure:"enabled"`
	// Store is "memory" or "redis"
	Store string `mapstructure:"store" validate:"oneof=memory redis"`
	// Requests allowed per Window per client
	Requests int `mapstructure:"requests" validate:"min=1"`
	// Window is the sliding window length
	Window time.Duration `mapstructure:"window" validate:"min=1s"`
}

// RedisConfig holds the Redis connection settings.
type RedisConfig struct {
	// Enabled turns the Redis connection on
	Enabled bool `mapstructure:"enabled"`
	// Addresses is the list of Redis server addresses, the first one is used
	Addresses []string `mapstructure:"addresses" validate:"required_if=Enabled true,dive,hostname_port"`
	// Username is the Redis username
	Username string `mapstructure:"username"`
	// Password is the Redis password
	Password string `mapstructure:"password"`
	// Database is the Redis database index
	Database int `mapstructure:"database" validate:"min=0"`
	// MaxRetries is the maximum number of retries for Redis operations
	MaxRetries int `mapstructure:"max_retries"`
	// PoolSize is the Redis connection pool size
	PoolSize int `mapstructure:"pool_size"`
	// DialTimeout is the timeout for establishing new connections
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
	// ReadTimeout is the timeout for Redis reads
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout is the timeout for Redis writes
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// WebSocketConfig holds the JSON-RPC WebSocket settings.
type WebSocketConfig struct {
	// MaxMessageSize is the maximum inbound message size
	MaxMessageSize int64 `mapstructure:"max_message_size" validate:"min=512"`
	// WriteWait is the time allowed to write a message to the peer
	WriteWait time.Duration `mapstructure:"write_wait"`
	// PongWait is the time allowed to read the next pong message from the peer
	PongWait time.Duration `mapstructure:"pong_wait"`
	// PingPeriod must be shorter than PongWait
	PingPeriod time.Duration `mapstructure:"ping_period" validate:"ltfield=PongWait"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	// Level is the logging level
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	// Format is the logging format (json or console)
	Format string `mapstructure:"format" validate:"oneof=json console"`
	// OutputPaths is the list of output paths for logs
	OutputPaths []string `mapstructure:"output_paths"`
	// ErrorOutputPaths is the list of output paths for logger errors
	ErrorOutputPaths []string `mapstructure:"error_output_paths"`
}

// Config represents the application configuration
type Config struct {
	// Environment is the current running environment (development, staging, production)
	Environment string `mapstructure:"environment"`

	Server    ServerConfig    `mapstructure:"server"`
	Extractor ExtractorConfig `mapstructure:"extractor"`
	Bridge    BridgeConfig    `mapstructure:"bridge"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	WebSocket WebSocketConfig `mapstructure:"websocket"`
	Logging   LoggingConfig   `mapstructure:"logging"`

	// Database configuration
	Database struct {
		Redis RedisConfig `mapstructure:"redis"`
	} `mapstructure:"database"`
}

// LoadConfig loads the configuration from file and environment variables.
// It looks for app.yaml in the path from CONFIG_FILE, ./configs, ../configs
// and /etc/listenify, then merges app.<APP_ENV>.yaml on top.
func LoadConfig() (*Config, error) {
	return LoadConfigFrom(os.Getenv("CONFIG_FILE"))
}

// LoadConfigFrom is LoadConfig with an explicit config file. An empty path
// falls back to the default search locations.
func LoadConfigFrom(configFile string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("app")
	v.SetConfigType("yaml")

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.AddConfigPath("./configs")
		v.AddConfigPath("../configs")
		v.AddConfigPath("/etc/listenify")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}

	// Environment overlay only applies to searched locations
	if configFile == "" {
		v.SetConfigName(fmt.Sprintf("app.%s", env))
		if err := v.MergeInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to merge environment config file: %w", err)
			}
		}
	}

	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.Environment = env

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets the default values for the configuration
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "75s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "15s")

	// Extractor defaults
	v.SetDefault("extractor.piped_base_url", "https://pipedapi.kavin.rocks")
	v.SetDefault("extractor.search_backend", SearchBackendPiped)
	v.SetDefault("extractor.youtube_api_key", "")
	v.SetDefault("extractor.user_agent", "")

	// Bridge defaults
	v.SetDefault("bridge.workers", 8)
	v.SetDefault("bridge.queue_size", 64)

	// Rate limit defaults
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.store", RateLimitStoreMemory)
	v.SetDefault("rate_limit.requests", 60)
	v.SetDefault("rate_limit.window", "1m")

	// Redis defaults
	v.SetDefault("database.redis.enabled", false)
	v.SetDefault("database.redis.addresses", []string{"localhost:6379"})
	v.SetDefault("database.redis.database", 0)
	v.SetDefault("database.redis.max_retries", 3)
	v.SetDefault("database.redis.pool_size", 20)
	v.SetDefault("database.redis.dial_timeout", "5s")
	v.SetDefault("database.redis.read_timeout", "3s")
	v.SetDefault("database.redis.write_timeout", "3s")

	// WebSocket defaults
	v.SetDefault("websocket.max_message_size", 8192)
	v.SetDefault("websocket.write_wait", "10s")
	v.SetDefault("websocket.pong_wait", "60s")
	v.SetDefault("websocket.ping_period", "54s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output_paths", []string{"stdout"})
	v.SetDefault("logging.error_output_paths", []string{"stderr"})
}

// validateConfig runs the struct tag rules and the cross-section checks
func validateConfig(config *Config) error {
	if err := validator.New().Struct(config); err != nil {
		return err
	}

	if config.RateLimit.Enabled && config.RateLimit.Store == RateLimitStoreRedis && !config.Database.Redis.Enabled {
		return errors.New("rate_limit.store is redis but database.redis is disabled")
	}

	return nil
}

// GetConfigString returns a formatted string with the current configuration
func GetConfigString(config *Config) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Environment: %s\n", config.Environment)
	fmt.Fprintf(&sb, "Server: %s:%d\n", config.Server.Host, config.Server.Port)
	fmt.Fprintf(&sb, "Extractor: %s (search via %s)\n", config.Extractor.PipedBaseURL, config.Extractor.SearchBackend)
	fmt.Fprintf(&sb, "Bridge: %d workers, queue %d\n", config.Bridge.Workers, config.Bridge.QueueSize)
	fmt.Fprintf(&sb, "Rate limit: enabled=%t store=%s %d/%s\n",
		config.RateLimit.Enabled, config.RateLimit.Store, config.RateLimit.Requests, config.RateLimit.Window)
	fmt.Fprintf(&sb, "Redis: enabled=%t db=%d\n", config.Database.Redis.Enabled, config.Database.Redis.Database)

	return sb.String()
}
