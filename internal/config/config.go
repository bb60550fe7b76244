// Package config provides configuration loading for metricsd.
//
// Configuration is layered: hardcoded defaults, then an optional YAML file,
// then environment variables. See LoadWithFile for the precedence rules.
package config

import (
	"errors"
	"fmt"
	"net"
	"regexp"
	"strconv"
	"time"
)

// Config holds the complete metricsd configuration.
type Config struct {
	Metrics   MetricsConfig   `koanf:"metrics"`
	Logging   LoggingConfig   `koanf:"logging"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	Server    ServerConfig    `koanf:"server"`
}

// MetricsConfig holds the exporter configuration. The bind address is the
// only option the exporter itself reads.
type MetricsConfig struct {
	Address string `koanf:"address"`
}

// LoggingConfig holds the subset of logging options exposed through
// configuration files and environment variables.
type LoggingConfig struct {
	Level            string   `koanf:"level"`
	Format           string   `koanf:"format"`
	Output           string   `koanf:"output"`
	Sampling         bool     `koanf:"sampling"`
	ThrottleInterval Duration `koanf:"throttle_interval"`
}

// TelemetryConfig holds metric collection configuration.
type TelemetryConfig struct {
	Namespace        string `koanf:"namespace"`
	ServiceName      string `koanf:"service_name"`
	GoCollector      bool   `koanf:"go_collector"`
	ProcessCollector bool   `koanf:"process_collector"`
	OTELBridge       bool   `koanf:"otel_bridge"`
}

// ServerConfig holds host process lifecycle configuration.
type ServerConfig struct {
	ShutdownTimeout   Duration `koanf:"shutdown_timeout"`
	HeartbeatInterval Duration `koanf:"heartbeat_interval"`
}

const (
	defaultAddress           = "127.0.0.1:9100"
	defaultThrottleInterval  = 300 * time.Second
	defaultShutdownTimeout   = 10 * time.Second
	defaultHeartbeatInterval = 15 * time.Second
)

// namespacePattern matches a legal Prometheus metric name prefix.
var namespacePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// NewDefaultConfig returns the configuration used when no file or
// environment overrides are present.
func NewDefaultConfig() *Config {
	return &Config{
		Metrics: MetricsConfig{
			Address: defaultAddress,
		},
		Logging: LoggingConfig{
			Level:            "info",
			Format:           "json",
			Output:           "stderr",
			Sampling:         true,
			ThrottleInterval: Duration(defaultThrottleInterval),
		},
		Telemetry: TelemetryConfig{
			Namespace:        "metricsd",
			ServiceName:      "metricsd",
			GoCollector:      true,
			ProcessCollector: true,
			OTELBridge:       true,
		},
		Server: ServerConfig{
			ShutdownTimeout:   Duration(defaultShutdownTimeout),
			HeartbeatInterval: Duration(defaultHeartbeatInterval),
		},
	}
}

// Validate validates the configuration.
//
// Returns an error if:
//   - the metrics address is not a host:port pair with a numeric port
//   - the log level, format or output is unknown
//   - the telemetry namespace is not a legal metric name prefix
//   - the shutdown timeout is not positive
func (c *Config) Validate() error {
	if err := validateAddress(c.Metrics.Address); err != nil {
		return fmt.Errorf("invalid metrics address: %w", err)
	}

	switch c.Logging.Level {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %q", c.Logging.Level)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("log format must be 'json' or 'console', got %q", c.Logging.Format)
	}
	if c.Logging.Output != "stdout" && c.Logging.Output != "stderr" {
		return fmt.Errorf("log output must be 'stdout' or 'stderr', got %q", c.Logging.Output)
	}
	if c.Logging.ThrottleInterval.Duration() <= 0 {
		return errors.New("log throttle interval must be positive")
	}

	if !namespacePattern.MatchString(c.Telemetry.Namespace) {
		return fmt.Errorf("invalid telemetry namespace: %q", c.Telemetry.Namespace)
	}
	if c.Telemetry.ServiceName == "" {
		return errors.New("telemetry service name is required")
	}

	if c.Server.ShutdownTimeout.Duration() <= 0 {
		return errors.New("shutdown timeout must be positive")
	}
	if c.Server.HeartbeatInterval.Duration() <= 0 {
		return errors.New("heartbeat interval must be positive")
	}

	return nil
}

// validateAddress checks that addr looks like a TCP bind target. Whether the
// address can actually be bound is only known when the listener opens.
func validateAddress(addr string) error {
	if addr == "" {
		return errors.New("address is required")
	}
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return err
	}
	n, err := strconv.Atoi(port)
	if err != nil {
		return fmt.Errorf("port %q is not numeric", port)
	}
	if n < 0 || n > 65535 {
		return fmt.Errorf("port %d out of range (0-65535)", n)
	}
	return nil
}
