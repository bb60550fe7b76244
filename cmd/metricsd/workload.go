package main

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/metricsd/internal/logging"
	"github.com/fyrsmithlabs/metricsd/internal/telemetry"
)

// hostWorkload is the daemon's own instrumented activity: an uptime gauge
// observed at scrape time and a heartbeat counter bumped on a ticker.
type hostWorkload struct {
	handle   *telemetry.Handle
	logger   *logging.Logger
	interval time.Duration
	started  time.Time

	heartbeats prometheus.Counter
	updateDur  metric.Float64Histogram
	throttle   *logging.Throttle
}

func newHostWorkload(handle *telemetry.Handle, logger *logging.Logger, interval time.Duration) (*hostWorkload, error) {
	w := &hostWorkload{
		handle:   handle,
		logger:   logger.Named("host"),
		interval: interval,
		started:  time.Now(),
		throttle: logging.NewThrottle(time.Minute),
	}

	err := handle.Update(func(t *telemetry.Telemetry) error {
		w.heartbeats = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: t.Namespace(),
			Name:      "heartbeats_total",
			Help:      "Heartbeats emitted by the host workload.",
		})
		if err := t.Register(w.heartbeats); err != nil {
			return err
		}

		meter := t.Meter("metricsd/host")

		var err error
		w.updateDur, err = meter.Float64Histogram("update_duration",
			metric.WithDescription("Time to acquire the telemetry write lock and apply a heartbeat, in seconds. High values mean scrapes are holding the read lock."),
			metric.WithUnit("s"),
			metric.WithExplicitBucketBoundaries(0.00001, 0.0001, 0.001, 0.01, 0.1, 1.0),
		)
		if err != nil {
			return err
		}

		// The callback runs during Render, under the handle's read lock. It
		// must not call back into the handle.
		_, err = meter.Float64ObservableGauge("uptime",
			metric.WithDescription("Seconds since the host workload started."),
			metric.WithUnit("s"),
			metric.WithFloat64Callback(func(_ context.Context, o metric.Float64Observer) error {
				o.Observe(time.Since(w.started).Seconds())
				return nil
			}),
		)
		return err
	})
	if err != nil {
		return nil, err
	}
	return w, nil
}

// run emits a heartbeat every interval until ctx is cancelled.
func (w *hostWorkload) run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.beat(ctx)
		}
	}
}

func (w *hostWorkload) beat(ctx context.Context) {
	start := time.Now()
	err := w.handle.Update(func(*telemetry.Telemetry) error {
		w.heartbeats.Inc()
		return nil
	})
	if errors.Is(err, telemetry.ErrPoisoned) {
		w.logger.WarnThrottled(ctx, w.throttle, "telemetry poisoned, heartbeat skipped")
		return
	}
	if err != nil {
		w.logger.Debug(ctx, "heartbeat failed", zap.Error(err))
		return
	}
	w.updateDur.Record(ctx, time.Since(start).Seconds())
	w.logger.Trace(ctx, "heartbeat")
}
