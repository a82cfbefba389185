package net

import (
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Sink receives inbound traffic and lifecycle events for a connection.
// ReceivedMessage is called from the connection's read goroutine, so
// messages from one client arrive strictly in order.
type Sink interface {
	ReceivedMessage(c *Conn, msg []byte)
	Disconnected(c *Conn)
}

// Conn is one client connection. Outbound sends are queued and written by a
// dedicated goroutine; a client whose queue fills up is disconnected rather
// than allowed to stall the sender.
type Conn struct {
	id           uuid.UUID
	nc           net.Conn
	logger       *zap.Logger
	writeTimeout time.Duration

	out chan []byte

	closeOnce sync.Once
	closed    chan struct{}
}

// NewConn wraps an accepted network connection and starts its write loop.
//
// Precondition: nc and logger must be non-nil; outQueueSize >= 1.
func NewConn(nc net.Conn, logger *zap.Logger, outQueueSize int, writeTimeout time.Duration) *Conn {
	id := uuid.New()
	c := &Conn{
		id:           id,
		nc:           nc,
		logger:       logger.With(zap.String("conn_id", id.String())),
		writeTimeout: writeTimeout,
		out:          make(chan []byte, outQueueSize),
		closed:       make(chan struct{}),
	}
	go c.writeLoop()
	return c
}

// ID returns the connection's unique identifier.
func (c *Conn) ID() uuid.UUID { return c.id }

// RemoteAddr returns the client's network address.
func (c *Conn) RemoteAddr() net.Addr { return c.nc.RemoteAddr() }

// Start begins reading frames and delivering them to sink. It blocks until
// the connection closes, then calls sink.Disconnected exactly once.
//
// Precondition: sink must be non-nil.
func (c *Conn) Start(sink Sink) {
	defer func() {
		c.Close()
		sink.Disconnected(c)
	}()
	for {
		payload, err := ReadFrame(c.nc)
		if err != nil {
			select {
			case <-c.closed:
				// Closed locally, the read error is expected.
			default:
				c.logger.Debug("read loop ended", zap.Error(err))
			}
			return
		}
		sink.ReceivedMessage(c, payload)
	}
}

// Send queues msg for delivery. If the outbound queue is full the client is
// considered too slow and the connection is closed.
//
// Postcondition: msg is either queued or the connection is closed; Send
// never blocks on the client.
func (c *Conn) Send(msg []byte) {
	select {
	case <-c.closed:
		return
	default:
	}
	select {
	case c.out <- msg:
	default:
		c.logger.Warn("outbound queue full, disconnecting slow client",
			zap.Int("queue_size", cap(c.out)),
		)
		c.Close()
	}
}

func (c *Conn) writeLoop() {
	for {
		select {
		case <-c.closed:
			return
		case msg := <-c.out:
			if c.writeTimeout > 0 {
				_ = c.nc.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			}
			if err := WriteFrame(c.nc, msg); err != nil {
				c.logger.Debug("write failed, closing", zap.Error(err))
				c.Close()
				return
			}
		}
	}
}

// Close shuts the connection down. Safe to call multiple times.
func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		close(c.closed)
		if err := c.nc.Close(); err != nil {
			c.logger.Debug("closing connection", zap.Error(err))
		}
	})
}
