// Package rpc exposes the gateway operations over JSON-RPC 2.0, both on
// WebSocket connections and on plain HTTP.
package rpc

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"norelock.dev/listenify/gateway/internal/bridge"
	"norelock.dev/listenify/gateway/internal/utils"
)

// sendBuffer is the number of outbound messages queued per client
const sendBuffer = 64

// Client represents a WebSocket client connection. Every reply for the
// connection is produced on its own looper, one at a time.
type Client struct {
	// ID is a unique identifier for the client.
	ID string

	// server is the WebSocket server that created this client.
	server *Server

	// conn is the WebSocket connection.
	conn *websocket.Conn

	// send is a channel of outbound messages.
	send chan []byte

	// looper runs reply callbacks for this connection
	looper *bridge.Looper

	// stop ends the looper
	stop context.CancelFunc

	logger *utils.Logger

	// mutex protects closed and the send channel
	mutex  sync.RWMutex
	closed bool

	connectedAt time.Time
}

// newClient creates a client and starts its looper.
func newClient(id string, server *Server, conn *websocket.Conn) *Client {
	ctx, cancel := context.WithCancel(context.Background())

	c := &Client{
		ID:          id,
		server:      server,
		conn:        conn,
		send:        make(chan []byte, sendBuffer),
		looper:      bridge.NewLooper(sendBuffer),
		stop:        cancel,
		logger:      server.logger.Named("client").With("clientID", id),
		connectedAt: time.Now(),
	}

	go func() { _ = c.looper.Run(ctx) }()
	return c
}

// safelySendMessage sends a message only if the channel isn't closed.
// Uses non-blocking send to prevent deadlocks if channel is full.
func (c *Client) safelySendMessage(message []byte) bool {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	if c.closed {
		c.logger.Debug("Client send channel is closed")
		return false
	}

	select {
	case c.send <- message:
		return true
	default:
		c.logger.Warn("Client send channel is full, message dropped")
		return false
	}
}

// close stops the looper and closes the send channel once.
func (c *Client) close() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	c.stop()
	close(c.send)
}

// readPump pumps messages from the WebSocket connection to the router.
func (c *Client) readPump() {
	cfg := c.server.cfg

	defer func() {
		c.server.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(cfg.MaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(cfg.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(cfg.PongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Error("Unexpected close error", err)
			} else {
				c.logger.Debug("Connection closed", "error", err.Error())
			}
			return
		}

		c.server.observeMessage("in", "request", len(message))
		c.handleMessage(message)
	}
}

// writePump pumps messages from the send channel to the WebSocket connection.
func (c *Client) writePump() {
	cfg := c.server.cfg
	ticker := time.NewTicker(cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(cfg.WriteWait))
			if !ok {
				// The client was unregistered
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.Error("Failed to write message", err)
				return
			}
			c.server.observeMessage("out", "response", len(message))

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(cfg.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Debug("Failed to write ping message", "error", err.Error())
				return
			}
		}
	}
}

// handleMessage routes one inbound message. The reply is posted to the
// client's looper.
func (c *Client) handleMessage(message []byte) {
	if isBatch(message) {
		c.looper.Post(func() {
			c.reply(NewErrorResponse(nil, NewInvalidRequestError("batches are only accepted over HTTP")))
		})
		return
	}

	var request Request
	if err := json.Unmarshal(message, &request); err != nil {
		c.logger.Warn("Failed to parse message", "error", err.Error(), "message", utils.TruncateString(string(message), 200))
		c.looper.Post(func() { c.reply(NewErrorResponse(nil, NewParseError(err))) })
		return
	}

	c.logger.Debug("RPC request", "method", request.Method, "id", request.ID)
	c.server.router.Route(&request, c.looper, c.reply)
}

// reply marshals response and queues it for the write pump.
func (c *Client) reply(response *Response) {
	if response == nil {
		return
	}

	payload, err := json.Marshal(response)
	if err != nil {
		c.logger.Error("Failed to marshal response", err)
		payload, _ = json.Marshal(NewErrorResponse(response.ID, &Error{
			Code:    ErrInternalError,
			Message: ErrInternalError.String(),
		}))
	}
	c.safelySendMessage(payload)
}
