package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muurk/smartdevice/internal/logging"
	"github.com/muurk/smartdevice/internal/session"
)

const (
	// DefaultPushInterval is used when Config.PushInterval is not positive
	DefaultPushInterval = time.Second

	// shutdownTimeout caps how long Start waits for connections to drain
	shutdownTimeout = 10 * time.Second
)

// Config holds the server configuration
type Config struct {
	Host         string
	Port         int
	PushInterval time.Duration // Interval between WebSocket snapshot messages
	CertPath     string        // Serve HTTPS when both CertPath and KeyPath are set
	KeyPath      string
}

// NicknameFunc looks up a user-assigned nickname for a device address
type NicknameFunc func(address string) string

// Server exposes one discovery session over HTTP and WebSocket
type Server struct {
	config    *Config
	sess      *session.Session
	nicknames NicknameFunc
	handler   http.Handler
	upgrader  websocket.Upgrader

	mu          sync.Mutex
	httpServer  *http.Server
	listener    net.Listener
	activeConns map[string]*websocket.Conn
	wg          sync.WaitGroup
	quit        chan struct{}
	quitOnce    sync.Once
}

// New creates a Server for sess
func New(config *Config, sess *session.Session) *Server {
	if config.PushInterval <= 0 {
		config.PushInterval = DefaultPushInterval
	}

	s := &Server{
		config:      config,
		sess:        sess,
		activeConns: make(map[string]*websocket.Conn),
		quit:        make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/session", s.handleSession)
	mux.HandleFunc("/api/devices", s.handleDevices)
	mux.HandleFunc("/ws", s.handleWebSocket)
	s.handler = logRequests(mux)

	return s
}

// SetNicknames installs a nickname lookup used to annotate devices
func (s *Server) SetNicknames(fn NicknameFunc) {
	s.nicknames = fn
}

// Handler returns the server's HTTP handler
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start listens on the configured address and serves until ctx is done, then
// shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	addr := net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))

	var tlsConfig *tls.Config
	if s.config.CertPath != "" && s.config.KeyPath != "" {
		var err error
		tlsConfig, err = NewTLSConfig(s.config.CertPath, s.config.KeyPath)
		if err != nil {
			return fmt.Errorf("failed to create TLS config: %w", err)
		}
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	if tlsConfig != nil {
		listener = tls.NewListener(listener, tlsConfig)
	}

	httpServer := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.mu.Lock()
	s.listener = listener
	s.httpServer = httpServer
	s.mu.Unlock()

	logging.Info("Server listening for connections",
		zap.String("addr", listener.Addr().String()),
		zap.String("session_id", s.sess.ID()),
		zap.Duration("push_interval", s.config.PushInterval),
		zap.Any("tls", GetTLSInfo(tlsConfig)),
	)

	errChan := make(chan error, 1)
	go func() {
		errChan <- httpServer.Serve(listener)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	}
}

// Addr returns the listening address once Start has bound it
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Shutdown gracefully shuts down the server. WebSocket clients receive a
// close frame before their connections are dropped.
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down server...")

	s.mu.Lock()
	s.quitOnce.Do(func() { close(s.quit) })
	httpServer := s.httpServer
	s.mu.Unlock()

	var shutdownErr error
	if httpServer != nil {
		if err := httpServer.Shutdown(ctx); err != nil {
			logging.Error("Error shutting down HTTP server", zap.Error(err))
			shutdownErr = err
		}
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logging.Info("All connections closed gracefully")
	case <-ctx.Done():
		logging.Warn("Shutdown timeout, forcing close")
		s.mu.Lock()
		for addr, conn := range s.activeConns {
			logging.Info("Closing active connection", zap.String("remote_addr", addr))
			_ = conn.Close()
		}
		s.mu.Unlock()
	}

	logging.Sync()
	return shutdownErr
}

// GetActiveConnections returns the number of open WebSocket connections
func (s *Server) GetActiveConnections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.activeConns)
}

// trackConn registers a WebSocket connection. It returns false once
// shutdown has begun.
func (s *Server) trackConn(remoteAddr string, conn *websocket.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case <-s.quit:
		return false
	default:
	}

	s.activeConns[remoteAddr] = conn
	s.wg.Add(1)
	return true
}

func (s *Server) untrackConn(remoteAddr string) {
	s.mu.Lock()
	delete(s.activeConns, remoteAddr)
	s.mu.Unlock()
	s.wg.Done()
}
