package realtime

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Close codes for the authentication gate
const (
	CloseMissingToken = 4001
	CloseInvalidToken = 4002
)

// Group name helpers. Chat rooms reuse the domain room key directly.
func UserGroup(id uuid.UUID) string        { return fmt.Sprintf("user_%s", id) }
func SidebarGroup(id uuid.UUID) string     { return fmt.Sprintf("sidebar_%s", id) }
func NotifyGroup(id uuid.UUID) string      { return fmt.Sprintf("notify_user_%s", id) }
func CollectorGroup(id uuid.UUID) string   { return fmt.Sprintf("collector_%s", id) }
func FleetGroup(id string) string          { return "fleet_" + id }
func PaymentGroup(reference string) string { return "payments_" + reference }

// Client is one websocket connection. All writes to the socket go through a
// single writer goroutine reading the send channel, so message order within
// the connection is the enqueue order.
type Client struct {
	id           string
	principalID  uuid.UUID
	conn         *websocket.Conn
	send         chan []byte
	writeTimeout time.Duration
	pingInterval time.Duration

	closeOnce sync.Once
	done      chan struct{}
}

// NewClient wraps an upgraded connection with a bounded outbound buffer
func NewClient(conn *websocket.Conn, principalID uuid.UUID, bufferSize int, writeTimeout, pingInterval time.Duration) *Client {
	if bufferSize <= 0 {
		bufferSize = 1000
	}
	return &Client{
		id:           uuid.NewString(),
		principalID:  principalID,
		conn:         conn,
		send:         make(chan []byte, bufferSize),
		writeTimeout: writeTimeout,
		pingInterval: pingInterval,
		done:         make(chan struct{}),
	}
}

// ID returns the connection's identifier (not the principal's)
func (c *Client) ID() string { return c.id }

// PrincipalID returns the authenticated principal behind the connection
func (c *Client) PrincipalID() uuid.UUID { return c.principalID }

// enqueue buffers a message for the writer goroutine. Returns false when the
// buffer is full or the client is closing; the hub treats that as a slow
// client.
func (c *Client) enqueue(message []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- message:
		return true
	default:
		return false
	}
}

// Close tears the connection down. Safe to call from any goroutine and more
// than once.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// WritePump is the single writer goroutine. It drains the send channel and
// keeps the connection alive with pings. Returns when the client closes or a
// write fails.
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.pingInterval)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-c.done:
			return
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ReadPump reads inbound frames and hands each to the handler. The handler
// must not block; socket commands go onto the command bus, not straight to
// the database. Returns when the peer disconnects or the client closes.
func (c *Client) ReadPump(handler func(message []byte)) {
	defer c.Close()
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(2 * c.pingInterval))
		return nil
	})
	c.conn.SetReadDeadline(time.Now().Add(2 * c.pingInterval))

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		if handler != nil {
			handler(message)
		}
	}
}
