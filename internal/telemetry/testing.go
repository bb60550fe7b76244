package telemetry

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
)

// StaticProvider serves a fixed rendering. Safe for concurrent use.
type StaticProvider struct {
	mu    sync.Mutex
	body  string
	err   error
	calls atomic.Int64
}

// NewStaticProvider returns a provider whose Snapshot returns body.
func NewStaticProvider(body string) *StaticProvider {
	return &StaticProvider{body: body}
}

// Set replaces the rendering and error returned by Snapshot.
func (p *StaticProvider) Set(body string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.body = body
	p.err = err
}

// Snapshot returns the configured rendering.
func (p *StaticProvider) Snapshot() (string, error) {
	p.calls.Add(1)
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.body, p.err
}

// Calls returns how many times Snapshot ran.
func (p *StaticProvider) Calls() int64 {
	return p.calls.Load()
}

// NewTestTelemetry creates telemetry with runtime collectors disabled so
// renderings are small and deterministic. The instance id is fixed to
// "test-instance".
func NewTestTelemetry(tb testing.TB) *Telemetry {
	tb.Helper()

	cfg := NewDefaultConfig()
	cfg.InstanceID = "test-instance"
	cfg.ServiceVersion = "test"
	cfg.GoCollector = false
	cfg.ProcessCollector = false

	t, err := New(cfg)
	if err != nil {
		tb.Fatalf("creating test telemetry: %v", err)
	}
	tb.Cleanup(func() { _ = t.Shutdown(context.Background()) })
	return t
}

// NewTestHandle wraps NewTestTelemetry in a Handle.
func NewTestHandle(tb testing.TB) *Handle {
	tb.Helper()
	return NewHandle(NewTestTelemetry(tb))
}

// PoisonHandle poisons h by panicking inside Update.
func PoisonHandle(h *Handle) {
	defer func() { _ = recover() }()
	_ = h.Update(func(*Telemetry) error {
		panic("telemetry writer panicked")
	})
}
