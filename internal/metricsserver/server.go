package metricsserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"runtime/pprof"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fyrsmithlabs/metricsd/internal/logging"
	"go.uber.org/zap"
)

const (
	// drainBufferSize bounds the single read performed on each request.
	drainBufferSize = 1024

	// maxLingerBytes bounds how much unread request data is discarded
	// after the response has been sent.
	maxLingerBytes = 64 * 1024

	defaultAcceptErrorThrottle = 300 * time.Second
	defaultLingerTimeout       = 500 * time.Millisecond

	workerName = "metrics-server"
)

// SnapshotProvider supplies the text served on every request.
//
// Snapshot is called once per connection from the server's worker. An
// error makes the server answer with FallbackBody instead.
type SnapshotProvider interface {
	Snapshot() (string, error)
}

// ErrNilProvider is returned when Run or Serve is given no provider.
var ErrNilProvider = errors.New("metricsserver: snapshot provider is nil")

// BindError reports that the listening socket could not be opened. It is the
// only error the server surfaces to its caller.
type BindError struct {
	Address string
	Err     error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("metrics endpoint: bind %s: %v", e.Address, e.Err)
}

func (e *BindError) Unwrap() error {
	return e.Err
}

type options struct {
	logger         *logging.Logger
	acceptThrottle time.Duration
	drainTimeout   time.Duration
	lingerTimeout  time.Duration
}

// Option configures a Server.
type Option func(*options)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *logging.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithAcceptErrorThrottle sets how often a repeated accept error is logged.
// Default 300s. A non-positive value logs every occurrence.
func WithAcceptErrorThrottle(d time.Duration) Option {
	return func(o *options) {
		o.acceptThrottle = d
	}
}

// WithDrainTimeout bounds the wait for the client's request bytes. Default
// 0, meaning a silent client blocks the worker until it sends or closes.
func WithDrainTimeout(d time.Duration) Option {
	return func(o *options) {
		o.drainTimeout = d
	}
}

// WithLingerTimeout bounds how long unread request bytes are discarded after
// the response is written. Closing with unread data would reset the
// connection and could destroy the response in flight. Default 500ms; 0
// closes immediately.
func WithLingerTimeout(d time.Duration) Option {
	return func(o *options) {
		o.lingerTimeout = d
	}
}

// Server is a running metrics endpoint.
type Server struct {
	listener net.Listener
	provider SnapshotProvider
	logger   *logging.Logger
	throttle *logging.Throttle

	drainTimeout  time.Duration
	lingerTimeout time.Duration

	// Only touched by the worker.
	drainBuf [drainBufferSize]byte
	nextID   uint64

	stats counters

	mu     sync.Mutex
	active net.Conn
	forced bool

	closing      atomic.Bool
	shutdownOnce sync.Once
	done         chan struct{}
}

// Run binds address and starts serving provider on a background worker. It
// returns as soon as the listener is open; failure to bind is reported as a
// *BindError.
func Run(address string, provider SnapshotProvider, opts ...Option) (*Server, error) {
	if provider == nil {
		return nil, ErrNilProvider
	}

	ln, err := net.Listen("tcp", address)
	if err != nil {
		return nil, &BindError{Address: address, Err: err}
	}

	return Serve(ln, provider, opts...)
}

// Serve starts serving provider on an already open listener. The server
// owns ln from then on and closes it on Shutdown.
func Serve(ln net.Listener, provider SnapshotProvider, opts ...Option) (*Server, error) {
	if provider == nil {
		return nil, ErrNilProvider
	}
	if ln == nil {
		return nil, errors.New("metricsserver: listener is nil")
	}

	o := options{
		logger:         logging.NewNop(),
		acceptThrottle: defaultAcceptErrorThrottle,
		lingerTimeout:  defaultLingerTimeout,
	}
	for _, opt := range opts {
		opt(&o)
	}

	s := &Server{
		listener:      ln,
		provider:      provider,
		logger:        o.logger.Named(workerName),
		throttle:      logging.NewThrottle(o.acceptThrottle),
		drainTimeout:  o.drainTimeout,
		lingerTimeout: o.lingerTimeout,
		done:          make(chan struct{}),
	}

	s.logger.Info(context.Background(), "prometheus metrics endpoint listening",
		zap.String("address", ln.Addr().String()),
	)

	go pprof.Do(context.Background(), pprof.Labels("worker", workerName), s.serve)

	return s, nil
}

// Addr returns the listener's address.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Done is closed when the worker has exited.
func (s *Server) Done() <-chan struct{} {
	return s.done
}

// Shutdown stops accepting connections and waits for the in-flight one to
// finish. If ctx ends first the in-flight connection is closed and ctx's
// error is returned. Safe to call more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	s.shutdownOnce.Do(func() {
		s.closing.Store(true)
		if err := s.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			s.logger.Debug(ctx, "closing metrics listener", zap.Error(err))
		}
	})

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
	}

	s.mu.Lock()
	s.forced = true
	if s.active != nil {
		_ = s.active.Close()
	}
	s.mu.Unlock()

	return ctx.Err()
}

func (s *Server) serve(ctx context.Context) {
	defer close(s.done)

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || s.closing.Load() {
				s.logger.Info(ctx, "prometheus metrics endpoint stopped")
				return
			}
			s.stats.acceptErrors.Add(1)
			s.logger.ErrorThrottled(ctx, s.throttle, "metrics endpoint accept error", zap.Error(err))
			continue
		}

		s.stats.accepted.Add(1)
		s.handle(ctx, conn)
	}
}

// handle runs one exchange: drain, snapshot, respond, close.
func (s *Server) handle(ctx context.Context, conn net.Conn) {
	s.nextID++
	ctx = logging.WithConnection(ctx, logging.Connection{ID: s.nextID, Remote: remoteAddr(conn)})

	if !s.track(conn) {
		_ = conn.Close()
		return
	}
	defer s.untrack()
	defer s.close(ctx, conn)
	defer func() {
		if r := recover(); r != nil {
			s.stats.panics.Add(1)
			s.logger.Error(ctx, "metrics endpoint handler panicked",
				zap.Any("panic", r),
				zap.Stack("stack"),
			)
		}
	}()

	s.logger.Trace(ctx, "connection accepted")

	s.drain(conn)

	response := BuildResponse(http.StatusOK, s.snapshot(ctx))
	if n, err := conn.Write(response); err != nil {
		s.stats.writeErrors.Add(1)
		s.logger.Debug(ctx, "metrics endpoint write error",
			zap.Error(err),
			zap.Int("written", n),
			zap.Int("size", len(response)),
		)
		return
	}
	s.stats.served.Add(1)
}

// drain reads once and discards the bytes. Errors mean "nothing sent".
func (s *Server) drain(conn net.Conn) {
	if s.drainTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(s.drainTimeout))
	}
	_, _ = conn.Read(s.drainBuf[:])
}

func (s *Server) snapshot(ctx context.Context) string {
	body, err := s.provider.Snapshot()
	if err != nil {
		s.stats.fallbacks.Add(1)
		s.logger.WarnThrottled(ctx, s.throttle, "telemetry snapshot unavailable, serving fallback body", zap.Error(err))
		return FallbackBody
	}
	return body
}

// close half-closes the write side so the client sees the end of the
// response, discards leftover request bytes for at most lingerTimeout and
// then closes the connection.
func (s *Server) close(ctx context.Context, conn net.Conn) {
	if cw, ok := conn.(interface{ CloseWrite() error }); ok && s.lingerTimeout > 0 {
		if err := cw.CloseWrite(); err == nil {
			_ = conn.SetReadDeadline(time.Now().Add(s.lingerTimeout))
			_, _ = io.CopyN(io.Discard, conn, maxLingerBytes)
		}
	}

	if err := conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		s.logger.Trace(ctx, "closing connection", zap.Error(err))
		return
	}
	s.logger.Trace(ctx, "connection closed")
}

func (s *Server) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.forced {
		return false
	}
	s.active = conn
	return true
}

func (s *Server) untrack() {
	s.mu.Lock()
	s.active = nil
	s.mu.Unlock()
}

func remoteAddr(conn net.Conn) string {
	if addr := conn.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return ""
}
