// Package logging provides structured logging for metricsd.
//
// # Overview
//
// Logging package wraps Zap with:
//   - Custom Trace level (-2, below Debug)
//   - Automatic context field injection (conn.id, conn.remote)
//   - Level-aware sampling (errors never sampled)
//   - Keyed throttling for error storms
//
// # Usage
//
// Create logger from config:
//
//	cfg := logging.NewDefaultConfig()
//	logger, err := logging.NewLogger(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer logger.Sync()
//
// Log with context:
//
//	ctx := logging.WithConnection(ctx, logging.Connection{ID: 7, Remote: "10.0.0.3:51234"})
//	logger.Debug(ctx, "response written", zap.Int("bytes", n))
//
// # Throttling
//
// Sampling bounds overall volume per level but never drops errors. Call
// sites that can fail in a tight loop (accept errors on an exhausted file
// descriptor table, for example) use a Throttle instead, which lets one
// entry per key through per interval and reports how many were dropped:
//
//	throttle := logging.NewThrottle(5 * time.Minute)
//	logger.ErrorThrottled(ctx, throttle, "accept failed", zap.Error(err))
//
// The first entry after a quiet period carries a "suppressed" field with the
// number of entries dropped since the previous one.
//
// # Testing
//
// Use TestLogger for test assertions:
//
//	tl := logging.NewTestLogger()
//	tl.Info(ctx, "test message", zap.String("key", "value"))
//	tl.AssertLogged(t, zapcore.InfoLevel, "test message")
//	tl.AssertField(t, "test message", "key", "value")
//
// # Concurrency Safety
//
// Logger and Throttle are safe for concurrent use. Child loggers (With,
// Named) are independent and do not affect parent or siblings.
package logging
