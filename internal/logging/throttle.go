package logging

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// maxThrottleKeys bounds the number of distinct keys tracked. When exceeded
// the table is reset, which at worst lets one extra entry per key through.
const maxThrottleKeys = 1024

// Throttle lets at most one log entry per key through per interval and
// counts the entries it drops in between.
type Throttle struct {
	interval time.Duration
	now      func() time.Time

	mu   sync.Mutex
	keys map[string]*throttleState
}

type throttleState struct {
	limiter    *rate.Limiter
	suppressed int64
}

// ThrottleOption configures a Throttle.
type ThrottleOption func(*Throttle)

// WithThrottleClock overrides the time source (for testing).
func WithThrottleClock(now func() time.Time) ThrottleOption {
	return func(t *Throttle) {
		t.now = now
	}
}

// NewThrottle creates a throttle with the given interval. A non-positive
// interval disables throttling.
func NewThrottle(interval time.Duration, opts ...ThrottleOption) *Throttle {
	t := &Throttle{
		interval: interval,
		now:      time.Now,
		keys:     make(map[string]*throttleState),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Interval returns the configured interval.
func (t *Throttle) Interval() time.Duration {
	return t.interval
}

// Allow reports whether an entry for key may be logged now. When it may,
// the second result is the number of entries dropped since the last
// allowed one.
func (t *Throttle) Allow(key string) (bool, int64) {
	if t == nil || t.interval <= 0 {
		return true, 0
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	st, ok := t.keys[key]
	if !ok {
		if len(t.keys) >= maxThrottleKeys {
			t.keys = make(map[string]*throttleState)
		}
		st = &throttleState{limiter: rate.NewLimiter(rate.Every(t.interval), 1)}
		t.keys[key] = st
	}

	if !st.limiter.AllowN(t.now(), 1) {
		st.suppressed++
		return false, 0
	}

	suppressed := st.suppressed
	st.suppressed = 0
	return true, suppressed
}

// Suppressed returns the number of entries currently held back for key.
func (t *Throttle) Suppressed(key string) int64 {
	if t == nil {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if st, ok := t.keys[key]; ok {
		return st.suppressed
	}
	return 0
}
