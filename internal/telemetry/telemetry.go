package telemetry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Telemetry owns a Prometheus registry and, optionally, an OpenTelemetry
// MeterProvider exporting into that registry.
//
// Telemetry failures do not crash the application. If the OTel bridge
// cannot be created the instance is marked degraded and Meter returns no-op
// meters; native collectors keep working.
type Telemetry struct {
	config     *Config
	instanceID string

	registry      *prometheus.Registry
	meterProvider *sdkmetric.MeterProvider

	// Health tracking
	healthy        atomic.Bool
	degraded       atomic.Bool
	degradedReason atomic.Value // string
}

// New creates a Telemetry instance and registers the configured collectors.
func New(cfg *Config) (*Telemetry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid telemetry config: %w", err)
	}

	instanceID := cfg.InstanceID
	if instanceID == "" {
		instanceID = uuid.NewString()
	}

	t := &Telemetry{
		config:     cfg,
		instanceID: instanceID,
		registry:   prometheus.NewRegistry(),
	}
	t.healthy.Store(true)

	if err := registerCollectors(cfg, t.registry, instanceID); err != nil {
		return nil, err
	}

	if cfg.OTELBridge {
		mp, err := newMeterProvider(cfg, newResource(cfg, instanceID), t.registry)
		if err != nil {
			t.setDegraded("meter provider failed: %v", err)
		} else {
			t.meterProvider = mp
		}
	}

	return t, nil
}

// InstanceID returns the per-process identifier carried by build_info.
func (t *Telemetry) InstanceID() string {
	if t == nil {
		return ""
	}
	return t.instanceID
}

// Namespace returns the metric name prefix.
func (t *Telemetry) Namespace() string {
	if t == nil || t.config == nil {
		return ""
	}
	return t.config.Namespace
}

// Register adds a collector to the registry.
func (t *Telemetry) Register(c prometheus.Collector) error {
	return t.registry.Register(c)
}

// MustRegister adds collectors to the registry and panics on conflict.
func (t *Telemetry) MustRegister(cs ...prometheus.Collector) {
	t.registry.MustRegister(cs...)
}

// Unregister removes a collector from the registry.
func (t *Telemetry) Unregister(c prometheus.Collector) bool {
	return t.registry.Unregister(c)
}

// Gather collects every registered metric family.
func (t *Telemetry) Gather() ([]*dto.MetricFamily, error) {
	return t.registry.Gather()
}

// Render encodes every registered metric family in the Prometheus text
// exposition format (version 0.0.4).
//
// OTel observable callbacks run during Render. They must not call back into
// the Handle holding this Telemetry.
func (t *Telemetry) Render() (string, error) {
	families, err := t.registry.Gather()
	if err != nil {
		return "", fmt.Errorf("gathering metrics: %w", err)
	}

	var b strings.Builder
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(&b, mf); err != nil {
			return "", fmt.Errorf("encoding %s: %w", mf.GetName(), err)
		}
	}
	return b.String(), nil
}

// Meter returns a meter for the given instrumentation scope.
//
// Returns a no-op meter if the OTel bridge is disabled or degraded.
func (t *Telemetry) Meter(name string, opts ...metric.MeterOption) metric.Meter {
	if t == nil || t.meterProvider == nil {
		return noop.NewMeterProvider().Meter(name, opts...)
	}
	return t.meterProvider.Meter(name, opts...)
}

// MeterProvider returns the bridge's provider, or nil when the bridge is
// disabled or degraded.
func (t *Telemetry) MeterProvider() *sdkmetric.MeterProvider {
	if t == nil {
		return nil
	}
	return t.meterProvider
}

// Shutdown stops the OTel bridge. Native collectors stay registered.
// Uses the shutdown timeout from config if ctx has no deadline.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if t == nil {
		return nil
	}

	if _, ok := ctx.Deadline(); !ok && t.config != nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.config.Shutdown.Timeout.Duration())
		defer cancel()
	}

	var errs []error
	if t.meterProvider != nil {
		if err := t.meterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider shutdown: %w", err))
		}
	}

	t.healthy.Store(false)
	return errors.Join(errs...)
}

// HealthStatus reports the current telemetry state.
type HealthStatus struct {
	Healthy  bool
	Degraded bool
	Reason   string
}

// Health returns the current telemetry health status.
func (t *Telemetry) Health() HealthStatus {
	if t == nil {
		return HealthStatus{Healthy: false, Degraded: true, Reason: "telemetry not initialized"}
	}
	reason, _ := t.degradedReason.Load().(string)
	return HealthStatus{
		Healthy:  t.healthy.Load(),
		Degraded: t.degraded.Load(),
		Reason:   reason,
	}
}

// setDegraded marks telemetry as degraded due to an error.
func (t *Telemetry) setDegraded(format string, args ...interface{}) {
	t.degraded.Store(true)
	t.degradedReason.Store(fmt.Sprintf(format, args...))
}
