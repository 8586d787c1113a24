// Package config provides functionality for loading and accessing application configuration.
package config

import (
	"fmt"
	"net"
	"strings"
	"time"

	"norelock.dev/listenify/gateway/internal/utils"
)

// transportCeiling is the longest a single upstream exchange may take.
const transportCeiling = 60 * time.Second

// ValidateAndFixConfig checks soft constraints, fixes what it can and
// returns human readable warnings for the operator.
func ValidateAndFixConfig(config *Config) []string {
	var warnings []string

	minTimeout := 1 * time.Second

	if config.Server.ReadTimeout < minTimeout {
		warnings = append(warnings, fmt.Sprintf("Server read timeout is too short (%v), setting to %v", config.Server.ReadTimeout, minTimeout))
		config.Server.ReadTimeout = minTimeout
	}

	// Stream resolution may legitimately take the whole transport ceiling
	if config.Server.WriteTimeout <= transportCeiling {
		fixed := transportCeiling + 15*time.Second
		warnings = append(warnings, fmt.Sprintf("Server write timeout (%v) does not cover the upstream ceiling, setting to %v", config.Server.WriteTimeout, fixed))
		config.Server.WriteTimeout = fixed
	}

	if config.Server.IdleTimeout < minTimeout {
		warnings = append(warnings, fmt.Sprintf("Server idle timeout is too short (%v), setting to %v", config.Server.IdleTimeout, minTimeout))
		config.Server.IdleTimeout = minTimeout
	}

	if config.Server.ShutdownTimeout <= 0 {
		warnings = append(warnings, "Server shutdown timeout is not set, using 15s")
		config.Server.ShutdownTimeout = 15 * time.Second
	}

	if config.Database.Redis.Enabled {
		for _, addr := range config.Database.Redis.Addresses {
			host, port, err := net.SplitHostPort(addr)
			if err != nil {
				warnings = append(warnings, fmt.Sprintf("Invalid Redis address: %s", addr))
				continue
			}
			if host == "" || port == "" {
				warnings = append(warnings, fmt.Sprintf("Redis address is incomplete: %s", addr))
			}
		}
	}

	if config.Extractor.SearchBackend == SearchBackendPiped && config.Extractor.YouTubeAPIKey != "" {
		warnings = append(warnings, "YouTube API key is set but search backend is piped, the key is ignored")
	}

	config.Extractor.PipedBaseURL = strings.TrimRight(config.Extractor.PipedBaseURL, "/")

	if config.Bridge.QueueSize < config.Bridge.Workers {
		warnings = append(warnings, fmt.Sprintf("Bridge queue (%d) is smaller than the worker count (%d), raising it", config.Bridge.QueueSize, config.Bridge.Workers))
		config.Bridge.QueueSize = config.Bridge.Workers
	}

	return warnings
}

// NewLogger builds the application logger from the logging section.
func NewLogger(config *Config) *utils.Logger {
	return utils.NewLogger(utils.LoggerOptions{
		Development:      config.Logging.Format == "console",
		Level:            utils.ParseLevel(config.Logging.Level),
		OutputPaths:      config.Logging.OutputPaths,
		ErrorOutputPaths: config.Logging.ErrorOutputPaths,
	})
}

// DefaultConfig returns the configuration LoadConfig produces with no file
// and no environment overrides.
func DefaultConfig() *Config {
	config := &Config{Environment: "development"}

	config.Server.Port = 8080
	config.Server.Host = "0.0.0.0"
	config.Server.ReadTimeout = 15 * time.Second
	config.Server.WriteTimeout = 75 * time.Second
	config.Server.IdleTimeout = 60 * time.Second
	config.Server.ShutdownTimeout = 15 * time.Second

	config.Extractor.PipedBaseURL = "https://pipedapi.kavin.rocks"
	config.Extractor.SearchBackend = SearchBackendPiped

	config.Bridge.Workers = 8
	config.Bridge.QueueSize = 64

	config.RateLimit.Enabled = true
	config.RateLimit.Store = RateLimitStoreMemory
	config.RateLimit.Requests = 60
	config.RateLimit.Window = time.Minute

	config.Database.Redis.Addresses = []string{"localhost:6379"}
	config.Database.Redis.MaxRetries = 3
	config.Database.Redis.PoolSize = 20
	config.Database.Redis.DialTimeout = 5 * time.Second
	config.Database.Redis.ReadTimeout = 3 * time.Second
	config.Database.Redis.WriteTimeout = 3 * time.Second

	config.WebSocket.MaxMessageSize = 8192
	config.WebSocket.WriteWait = 10 * time.Second
	config.WebSocket.PongWait = 60 * time.Second
	config.WebSocket.PingPeriod = 54 * time.Second

	config.Logging.Level = "info"
	config.Logging.Format = "json"
	config.Logging.OutputPaths = []string{"stdout"}
	config.Logging.ErrorOutputPaths = []string{"stderr"}

	return config
}
