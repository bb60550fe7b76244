// Package telemetry owns the metrics a metricsd host exposes.
//
// # Overview
//
// A Telemetry holds a Prometheus registry with the Go and process runtime
// collectors, a build_info gauge and, when the OTel bridge is enabled, an
// OpenTelemetry MeterProvider whose reader exports into the same registry.
// Render encodes everything in the Prometheus text exposition format.
//
// The host shares one Telemetry through a Handle, which guards it with a
// readers/writer lock. The metrics endpoint only ever reads a rendering;
// host code mutates under Update.
//
// # Usage
//
//	tel, err := telemetry.New(telemetry.NewDefaultConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer tel.Shutdown(ctx)
//
//	handle := telemetry.NewHandle(tel)
//	body, err := handle.Snapshot()
//
// Instrument with OTel:
//
//	meter := tel.Meter("metricsd/host")
//	counter, _ := meter.Int64Counter("jobs")
//	counter.Add(ctx, 1)
//
// # Poisoning
//
// If the function passed to Handle.Update panics, the handle is poisoned:
// Snapshot and Read return ErrPoisoned until ClearPoison is called. The
// panic itself still propagates to the writer.
//
// # Configuration
//
//	telemetry:
//	  namespace: "metricsd"
//	  service_name: "metricsd"
//	  go_collector: true
//	  process_collector: true
//	  otel_bridge: true
//
// # Testing
//
// Use NewTestHandle for a handle with runtime collectors disabled, and
// StaticProvider where a fixed rendering is enough.
package telemetry
