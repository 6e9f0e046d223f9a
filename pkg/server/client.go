package server

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBufferSize = 256
)

// Client is one websocket connection. Reads and writes run on their
// own goroutines; the hub owns registration and teardown.
type Client struct {
	id     string
	conn   *websocket.Conn
	server *Server
	send   chan []byte
}

func newClient(server *Server, conn *websocket.Conn) *Client {
	return &Client{
		id:     uuid.New().String(),
		conn:   conn,
		server: server,
		send:   make(chan []byte, sendBufferSize),
	}
}

func (c *Client) readPump(ctx context.Context) {
	defer func() {
		c.server.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.server.logger.Debug().Err(err).Str("client_id", c.id).Msg("Websocket read error")
			}
			return
		}
		c.handleMessage(ctx, message)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage dispatches a frame received from the client.
func (c *Client) handleMessage(ctx context.Context, data []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.trySend(newErrorMessage("invalid message format"))
		return
	}

	switch msg.Type {
	case TypeSwitchStock:
		if err := c.server.registry.SwitchActive(ctx, msg.Symbol); err != nil {
			c.trySend(newErrorMessage("unknown instrument: " + msg.Symbol))
			return
		}
		// Confirm the switch with a fresh snapshot of the new book.
		if frame, err := c.server.snapshotFrame(TypeSnapshot); err == nil {
			c.trySend(frame)
		}
	default:
		c.trySend(newErrorMessage("unknown message type: " + msg.Type))
	}
}

func (c *Client) trySend(message []byte) {
	select {
	case c.send <- message:
	default:
	}
}
