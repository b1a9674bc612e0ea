package pop3

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/shineum/mailkit-lite/internal/mailerr"
)

// DefaultListenAddr is the standard POP3 port on all interfaces.
const DefaultListenAddr = ":110"

// shutdownTimeout bounds how long shutdown waits for in-flight sessions.
const shutdownTimeout = 30 * time.Second

// ServerConfig holds the configuration for a POP3 server.
type ServerConfig struct {
	// ListenAddr is the address to listen on. Defaults to ":110".
	ListenAddr string

	// MailDir holds one mailbox file per user. Defaults to "/var/mail".
	MailDir string
}

// Server accepts POP3 connections and runs one Session per connection.
type Server struct {
	config ServerConfig

	mu       sync.Mutex
	listener net.Listener

	// wg tracks in-flight session goroutines for graceful shutdown.
	wg sync.WaitGroup
}

// NewServer creates a POP3 server with the given configuration.
func NewServer(cfg ServerConfig) *Server {
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = DefaultListenAddr
	}
	if cfg.MailDir == "" {
		cfg.MailDir = DefaultMailDir
	}
	return &Server{config: cfg}
}

// ListenAndServe binds the configured address and serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.ListenAddr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then stops
// accepting and waits up to 30 seconds for in-flight sessions. Sessions are
// not limited in number.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	slog.Info("POP3 server listening",
		"addr", ln.Addr().String(),
		"mail_dir", s.config.MailDir,
	)

	stop := context.AfterFunc(ctx, func() {
		slog.Info("shutting down POP3 server")
		ln.Close()
	})
	defer stop()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				s.waitForSessions()
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				s.waitForSessions()
				return err
			}
			slog.Error("accept error", "error", err)
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			sess := NewSession(conn, s.config.MailDir)
			if err := sess.Serve(ctx); err != nil && !errors.Is(err, mailerr.ErrSession) {
				slog.Debug("pop3 session error", "session", sess.ID(), "error", err)
			}
		}()
	}
}

func (s *Server) waitForSessions() {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		slog.Info("all POP3 sessions completed")
	case <-time.After(shutdownTimeout):
		slog.Warn("shutdown timeout reached, abandoning POP3 sessions")
	}
}

// Addr returns the listener address, or an empty string if not listening.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}
