// Package server implements the TCP frame server shared by the name
// node and storage node listeners.
//
// A Server owns one listening socket. Each accepted connection is
// served by its own goroutine running a read-dispatch-reply loop over
// wire frames. Graceful shutdown drains in-flight connections up to a
// timeout, then force-closes stragglers.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/scribefs/scribefs/internal/logger"
	"github.com/scribefs/scribefs/pkg/metrics"
	"github.com/scribefs/scribefs/pkg/wire"
)

// Handler dispatches one request frame and returns the response frame.
// A nil response means the connection should be closed without replying.
//
// Handlers must be safe for concurrent use: the server invokes them from
// one goroutine per connection.
type Handler interface {
	Handle(ctx context.Context, remote net.Addr, f *wire.Frame) *wire.Frame
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, remote net.Addr, f *wire.Frame) *wire.Frame

func (fn HandlerFunc) Handle(ctx context.Context, remote net.Addr, f *wire.Frame) *wire.Frame {
	return fn(ctx, remote, f)
}

// Config holds the listener settings.
type Config struct {
	// Name labels the listener in logs ("namenode", "ss-1 client", ...)
	Name string

	// Port is the TCP port to listen on. Zero picks a free port, which
	// tests rely on; Addr reports the bound address.
	Port int

	// MaxConnections bounds concurrent connections. Zero means unlimited.
	MaxConnections int

	// ShutdownTimeout is how long graceful shutdown waits for in-flight
	// connections before force-closing them.
	ShutdownTimeout time.Duration

	// IdleTimeout closes connections with no traffic for this long.
	// Zero disables the idle deadline.
	IdleTimeout time.Duration
}

// Server is a TCP frame listener. Construct with New; Serve may be
// called only once per instance.
type Server struct {
	config  Config
	handler Handler
	metrics metrics.ServerMetrics

	listener      net.Listener
	listenerMu    sync.Mutex
	listenerReady chan struct{}

	// shutdown closes when shutdown begins; shutdownCtx aborts in-flight
	// requests.
	shutdown       chan struct{}
	shutdownOnce   sync.Once
	shutdownCtx    context.Context
	cancelRequests context.CancelFunc

	// activeConns tracks open connections for graceful shutdown.
	activeConns sync.WaitGroup
	connCount   atomic.Int32
	// conns maps remote address to net.Conn for forced closure.
	conns sync.Map

	// connSemaphore limits concurrent connections when MaxConnections > 0.
	connSemaphore chan struct{}
}

// New creates a Server for the given handler.
func New(cfg Config, h Handler, m metrics.ServerMetrics) *Server {
	var sem chan struct{}
	if cfg.MaxConnections > 0 {
		sem = make(chan struct{}, cfg.MaxConnections)
	}

	shutdownCtx, cancel := context.WithCancel(context.Background())

	return &Server{
		config:         cfg,
		handler:        h,
		metrics:        m,
		listenerReady:  make(chan struct{}),
		shutdown:       make(chan struct{}),
		shutdownCtx:    shutdownCtx,
		cancelRequests: cancel,
		connSemaphore:  sem,
	}
}

// Addr returns the bound listen address. It blocks until the listener
// is up or ctx expires.
func (s *Server) Addr(ctx context.Context) (net.Addr, error) {
	select {
	case <-s.listenerReady:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	s.listenerMu.Lock()
	defer s.listenerMu.Unlock()
	return s.listener.Addr(), nil
}

// Serve accepts connections until ctx is cancelled, then drains.
//
// Returns nil on graceful shutdown, or an error if the listener fails
// or the shutdown timeout forces connections closed.
func (s *Server) Serve(ctx context.Context) error {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", s.config.Port))
	if err != nil {
		return fmt.Errorf("%s: listen on port %d: %w", s.config.Name, s.config.Port, err)
	}

	s.listenerMu.Lock()
	s.listener = listener
	s.listenerMu.Unlock()
	close(s.listenerReady)

	logger.Info("listener up", "name", s.config.Name, "addr", listener.Addr().String())

	go func() {
		<-ctx.Done()
		s.initiateShutdown()
	}()

	for {
		// Block on the semaphore before Accept so a full server never
		// takes connections it cannot serve.
		if s.connSemaphore != nil {
			select {
			case s.connSemaphore <- struct{}{}:
			case <-s.shutdown:
				return s.gracefulShutdown()
			}
		}

		conn, err := listener.Accept()
		if err != nil {
			if s.connSemaphore != nil {
				<-s.connSemaphore
			}
			select {
			case <-s.shutdown:
				// Expected: listener closed during shutdown.
				return s.gracefulShutdown()
			default:
				logger.Debug("accept failed", "name", s.config.Name, "error", err)
				continue
			}
		}

		s.activeConns.Add(1)
		current := s.connCount.Add(1)

		addr := conn.RemoteAddr().String()
		s.conns.Store(addr, conn)

		if s.metrics != nil {
			s.metrics.RecordConnectionAccepted()
			s.metrics.SetActiveConnections(current)
		}
		logger.Debug("connection accepted", "name", s.config.Name, "remote", addr, "active", current)

		go func(addr string, conn net.Conn) {
			defer func() {
				conn.Close()
				s.conns.Delete(addr)
				s.activeConns.Done()
				current := s.connCount.Add(-1)
				if s.connSemaphore != nil {
					<-s.connSemaphore
				}
				if s.metrics != nil {
					s.metrics.RecordConnectionClosed()
					s.metrics.SetActiveConnections(current)
				}
				logger.Debug("connection closed", "name", s.config.Name, "remote", addr, "active", current)
			}()

			s.serveConn(s.shutdownCtx, conn)
		}(addr, conn)
	}
}

// serveConn runs the frame loop for one connection.
func (s *Server) serveConn(ctx context.Context, conn net.Conn) {
	remote := conn.RemoteAddr()

	clientIP := remote.String()
	if host, _, err := net.SplitHostPort(clientIP); err == nil {
		clientIP = host
	}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if s.config.IdleTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(s.config.IdleTimeout))
		}

		f, err := wire.ReadFrame(conn)
		if err != nil {
			if !errors.Is(err, io.EOF) && ctx.Err() == nil {
				logger.Debug("read frame failed", "name", s.config.Name, "remote", remote.String(), "error", err)
			}
			return
		}

		start := time.Now()
		lc := logger.NewLogContext(clientIP).
			WithCommand(wire.Command(f.Command).String(), f.Identity, f.Filename)
		reqCtx := logger.WithContext(ctx, lc)

		resp := s.handler.Handle(reqCtx, remote, f)
		if resp == nil {
			return
		}
		metrics.ObserveRequest(s.metrics, wire.Command(f.Command).String(), wire.Status(resp.Status).String(), start)
		logger.DebugCtx(reqCtx, "request served",
			"name", s.config.Name,
			logger.Status(resp.Status),
			logger.DurationMs(lc.DurationMs()))

		if err := wire.WriteFrame(conn, resp); err != nil {
			logger.Debug("write frame failed", "name", s.config.Name, "remote", remote.String(), "error", err)
			return
		}
	}
}

// initiateShutdown begins graceful shutdown. Safe to call multiple
// times from multiple goroutines.
func (s *Server) initiateShutdown() {
	s.shutdownOnce.Do(func() {
		logger.Debug("shutdown initiated", "name", s.config.Name)

		close(s.shutdown)

		s.listenerMu.Lock()
		if s.listener != nil {
			if err := s.listener.Close(); err != nil {
				logger.Debug("close listener failed", "name", s.config.Name, "error", err)
			}
		}
		s.listenerMu.Unlock()

		// A short deadline unblocks reads parked on idle connections so
		// their loops notice cancellation without waiting out the idle
		// timeout.
		s.interruptBlockingReads()

		s.cancelRequests()
	})
}

// interruptBlockingReads sets a near-immediate deadline on all open
// connections.
func (s *Server) interruptBlockingReads() {
	deadline := time.Now().Add(100 * time.Millisecond)
	s.conns.Range(func(key, value any) bool {
		if conn, ok := value.(net.Conn); ok {
			_ = conn.SetReadDeadline(deadline)
		}
		return true
	})
}

// gracefulShutdown waits for in-flight connections, force-closing any
// that outlive the shutdown timeout.
func (s *Server) gracefulShutdown() error {
	active := s.connCount.Load()
	logger.Info("draining connections", "name", s.config.Name, "active", active, "timeout", s.config.ShutdownTimeout)

	done := make(chan struct{})
	go func() {
		s.activeConns.Wait()
		close(done)
	}()

	timeout := s.config.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	select {
	case <-done:
		logger.Info("shutdown complete", "name", s.config.Name)
		return nil
	case <-time.After(timeout):
		remaining := s.connCount.Load()
		s.forceCloseConnections()
		return fmt.Errorf("%s: shutdown timeout, %d connections force-closed", s.config.Name, remaining)
	}
}

// forceCloseConnections closes every remaining connection.
func (s *Server) forceCloseConnections() {
	s.conns.Range(func(key, value any) bool {
		if conn, ok := value.(net.Conn); ok {
			logger.Warn("force closing connection", "name", s.config.Name, "remote", key)
			conn.Close()
			if s.metrics != nil {
				s.metrics.RecordConnectionForceClosed()
			}
		}
		return true
	})
}
