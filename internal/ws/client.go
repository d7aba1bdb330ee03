package ws

import (
	"time"

	"github.com/gorilla/websocket"
)

// client is one subscriber connection. The hub goroutine is the only writer
// to the send channel; writePump is its only reader.
type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// disconnect hands the client back to the hub for removal. Selects on stop so
// pumps never hang once the hub has shut down.
func (c *client) disconnect() {
	select {
	case c.hub.unregister <- c:
	case <-c.hub.stop:
	}
}

// writePump drains the send channel onto the connection. Every write is
// bounded by the hub's write timeout so a stalled peer surfaces as an error
// here instead of blocking the hub.
func (c *client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.hub.writeTimeout)); err != nil {
			c.disconnect()
			return
		}
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			c.disconnect()
			return
		}
	}
	// send closed: the hub already removed us, say goodbye politely.
	_ = c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
}

// readPump discards inbound frames (the subscription channel is
// outbound-only) and exists to detect the peer closing the connection.
func (c *client) readPump() {
	defer func() {
		c.disconnect()
		c.conn.Close()
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
