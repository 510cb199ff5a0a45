// Package ws adapts the persistent duplex channel onto gorilla websockets:
// one read/write pump pair per connection, a buffered outbound channel and
// tagged-event dispatch into the orchestrator.
package ws

import (
	"errors"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/wosunheizhu/e2ee-chat/internal/app"
)

var (
	ErrBackpressure = errors.New("backpressure")
	ErrClosed       = errors.New("connection closed")
)

type wsConn struct {
	conn *websocket.Conn
	send chan app.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *wsConn) TrySend(f app.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClosed
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *wsConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}
