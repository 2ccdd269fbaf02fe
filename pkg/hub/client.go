package hub

import (
	"time"

	"github.com/gofiber/websocket/v2"
)

// Keepalive and flow-control settings for dashboard clients.
const (
	writeTimeout = 10 * time.Second
	idleTimeout  = 60 * time.Second
	pingInterval = idleTimeout * 9 / 10 // must stay below idleTimeout

	readLimit  = 64 * 1024
	sendBuffer = 64
)

// Client represents a single websocket connection.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan Message
}

// NewClient creates a client and registers it with the hub. initial
// messages are queued ahead of any broadcast.
func NewClient(hub *Hub, conn *websocket.Conn, initial ...Message) *Client {
	client := &Client{
		hub:  hub,
		conn: conn,
		send: make(chan Message, sendBuffer+len(initial)),
	}
	for _, msg := range initial {
		client.send <- msg
	}
	if !hub.add(client) {
		close(client.send)
	}
	return client
}

// Run starts the client's read and write pumps. It blocks until the
// connection closes and should be called from the websocket handler.
func (c *Client) Run() {
	go c.writePump()
	c.readPump()
}

// readPump discards inbound frames; reading is what surfaces pongs and
// disconnects.
func (c *Client) readPump() {
	defer c.hub.remove(c)
	defer c.conn.Close()

	extend := func() { c.conn.SetReadDeadline(time.Now().Add(idleTimeout)) }
	c.conn.SetReadLimit(readLimit)
	extend()
	c.conn.SetPongHandler(func(string) error {
		extend()
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump owns every write to the connection. A closed send channel
// means the hub dropped the client.
func (c *Client) writePump() {
	ping := time.NewTicker(pingInterval)
	defer ping.Stop()
	defer c.conn.Close()

	for {
		var (
			kind int
			data []byte
		)
		select {
		case msg, ok := <-c.send:
			kind, data = websocket.TextMessage, msg.Data
			if !ok {
				kind, data = websocket.CloseMessage, []byte{}
			}
		case <-ping.C:
			kind = websocket.PingMessage
		}

		c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteMessage(kind, data); err != nil || kind == websocket.CloseMessage {
			return
		}
	}
}
