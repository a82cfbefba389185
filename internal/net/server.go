package net

import (
	"errors"
	"fmt"
	"net"
	"sync"

	"go.uber.org/zap"

	"github.com/delvegame/delve/internal/config"
)

// ConnHandler is invoked once per accepted connection, on the connection's
// own goroutine. It owns the connection until it returns.
type ConnHandler func(c *Conn)

// Server accepts TCP connections and hands each one to a ConnHandler. It
// implements the lifecycle Service interface.
type Server struct {
	cfg     config.ServerConfig
	logger  *zap.Logger
	handler ConnHandler

	mu       sync.Mutex
	listener net.Listener
	conns    map[*Conn]struct{}
	closed   bool
	wg       sync.WaitGroup
}

// NewServer creates a server that will listen per cfg and dispatch accepted
// connections to handler.
//
// Precondition: logger and handler must be non-nil.
func NewServer(cfg config.ServerConfig, logger *zap.Logger, handler ConnHandler) *Server {
	return &Server{
		cfg:     cfg,
		logger:  logger.With(zap.String("component", "net")),
		handler: handler,
		conns:   make(map[*Conn]struct{}),
	}
}

// Start listens on the configured address and accepts connections until
// Stop is called. It blocks for the server's lifetime.
//
// Postcondition: Returns nil after Stop, or a non-nil error if the listener
// cannot be created.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.Addr(), err)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		ln.Close()
		return nil
	}
	s.listener = ln
	s.mu.Unlock()

	s.logger.Info("listening", zap.String("addr", s.cfg.Addr()))

	for {
		nc, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.logger.Warn("accept failed", zap.Error(err))
			continue
		}
		conn := NewConn(nc, s.logger, s.cfg.OutQueueSize, s.cfg.WriteTimeout)

		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			conn.Close()
			continue
		}
		s.conns[conn] = struct{}{}
		s.mu.Unlock()

		s.logger.Info("connection accepted",
			zap.String("conn_id", conn.ID().String()),
			zap.String("remote", nc.RemoteAddr().String()),
		)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer func() {
				s.mu.Lock()
				delete(s.conns, conn)
				s.mu.Unlock()
			}()
			s.handler(conn)
		}()
	}
}

// BoundAddr returns the listener's actual address, or nil before Start.
// Useful when the configured port is 0.
func (s *Server) BoundAddr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop closes the listener and all active connections, then waits for
// connection handlers to return.
func (s *Server) Stop() {
	s.mu.Lock()
	s.closed = true
	ln := s.listener
	conns := make([]*Conn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	if ln != nil {
		if err := ln.Close(); err != nil {
			s.logger.Debug("closing listener", zap.Error(err))
		}
	}
	for _, c := range conns {
		c.Close()
	}
	s.wg.Wait()
}
