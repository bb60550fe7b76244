// Package metricsserver serves a telemetry snapshot to Prometheus scrapers.
//
// # Overview
//
// Run binds a TCP listener and starts exactly one worker goroutine that
// accepts connections and handles them one at a time, in accept order.
// Every connection gets the same treatment regardless of what the client
// sends:
//
//  1. one read of up to 1024 bytes, discarded
//  2. one Snapshot call on the SnapshotProvider
//  3. one write of a complete HTTP/1.1 200 response
//  4. close
//
// There is no request parsing, routing, keep-alive or TLS. The worker never
// exits on a per-connection failure: accept errors are logged through a
// throttle and retried, read errors are ignored, snapshot errors are
// replaced by FallbackBody and write errors are logged at debug level.
// A panic while handling one connection is recovered and counted.
//
// # Usage
//
//	handle := telemetry.NewHandle(tel)
//	srv, err := metricsserver.Run("127.0.0.1:9100", handle,
//	    metricsserver.WithLogger(logger),
//	)
//	if err != nil {
//	    var bindErr *metricsserver.BindError
//	    if errors.As(err, &bindErr) {
//	        // address unusable
//	    }
//	    return err
//	}
//	defer srv.Shutdown(ctx)
//
// # Blocking
//
// A client that connects and sends nothing blocks the worker until it
// sends, closes or WithDrainTimeout expires. The default has no timeout.
package metricsserver
