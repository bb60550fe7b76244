package telemetry

import (
	"fmt"
	"regexp"
	"time"

	"github.com/fyrsmithlabs/metricsd/internal/config"
)

// Config holds telemetry configuration.
type Config struct {
	Namespace        string         `koanf:"namespace"`
	ServiceName      string         `koanf:"service_name"`
	ServiceVersion   string         `koanf:"service_version"`
	InstanceID       string         `koanf:"instance_id"` // generated when empty
	GoCollector      bool           `koanf:"go_collector"`
	ProcessCollector bool           `koanf:"process_collector"`
	OTELBridge       bool           `koanf:"otel_bridge"`
	Shutdown         ShutdownConfig `koanf:"shutdown"`
}

// ShutdownConfig controls graceful shutdown behavior.
type ShutdownConfig struct {
	Timeout config.Duration `koanf:"timeout"`
}

var namespacePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// NewDefaultConfig returns telemetry defaults with every collector enabled.
func NewDefaultConfig() *Config {
	return &Config{
		Namespace:        "metricsd",
		ServiceName:      "metricsd",
		ServiceVersion:   "dev",
		GoCollector:      true,
		ProcessCollector: true,
		OTELBridge:       true,
		Shutdown: ShutdownConfig{
			Timeout: config.Duration(5 * time.Second),
		},
	}
}

// NewConfigFrom builds a telemetry config from the file/env configuration
// section and the binary's version string.
func NewConfigFrom(tc config.TelemetryConfig, version string) *Config {
	cfg := NewDefaultConfig()
	cfg.Namespace = tc.Namespace
	cfg.ServiceName = tc.ServiceName
	cfg.GoCollector = tc.GoCollector
	cfg.ProcessCollector = tc.ProcessCollector
	cfg.OTELBridge = tc.OTELBridge
	if version != "" {
		cfg.ServiceVersion = version
	}
	return cfg
}

// Validate checks configuration for errors.
func (c *Config) Validate() error {
	if !namespacePattern.MatchString(c.Namespace) {
		return fmt.Errorf("namespace %q is not a valid metric name prefix", c.Namespace)
	}

	if c.ServiceName == "" {
		return fmt.Errorf("service_name is required")
	}

	if c.ServiceVersion == "" {
		return fmt.Errorf("service_version is required")
	}

	if c.Shutdown.Timeout.Duration() <= 0 {
		return fmt.Errorf("shutdown.timeout must be positive")
	}

	return nil
}
