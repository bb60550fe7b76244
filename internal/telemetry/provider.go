package telemetry

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

// newResource creates a resource describing the service.
func newResource(cfg *Config, instanceID string) *resource.Resource {
	// Standalone resource; resource.Default() uses a different semconv schema.
	return resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
		attribute.String("service.instance.id", instanceID),
	)
}

// newMeterProvider creates a MeterProvider whose only reader is a Prometheus
// exporter registered on reg. OTel instruments show up in the same
// rendering as native collectors.
func newMeterProvider(cfg *Config, res *resource.Resource, reg prometheus.Registerer) (*metric.MeterProvider, error) {
	exporter, err := otelprom.New(
		otelprom.WithRegisterer(reg),
		otelprom.WithNamespace(cfg.Namespace),
		otelprom.WithoutScopeInfo(),
	)
	if err != nil {
		return nil, fmt.Errorf("creating prometheus exporter: %w", err)
	}

	return metric.NewMeterProvider(
		metric.WithReader(exporter),
		metric.WithResource(res),
	), nil
}

// registerCollectors registers the runtime collectors enabled in cfg and the
// build info gauge.
func registerCollectors(cfg *Config, reg prometheus.Registerer, instanceID string) error {
	if cfg.GoCollector {
		if err := reg.Register(collectors.NewGoCollector()); err != nil {
			return fmt.Errorf("registering go collector: %w", err)
		}
	}

	if cfg.ProcessCollector {
		if err := reg.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
			return fmt.Errorf("registering process collector: %w", err)
		}
	}

	buildInfo := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: cfg.Namespace,
		Name:      "build_info",
		Help:      "Build information about the running binary. Always 1.",
		ConstLabels: prometheus.Labels{
			"version":     cfg.ServiceVersion,
			"instance_id": instanceID,
		},
	})
	buildInfo.Set(1)
	if err := reg.Register(buildInfo); err != nil {
		return fmt.Errorf("registering build info: %w", err)
	}

	return nil
}
