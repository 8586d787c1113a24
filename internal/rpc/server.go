// Package rpc exposes the gateway operations over JSON-RPC 2.0, both on
// WebSocket connections and on plain HTTP.
package rpc

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"norelock.dev/listenify/gateway/internal/config"
	"norelock.dev/listenify/gateway/internal/utils"
)

// Recorder receives WebSocket measurements.
type Recorder interface {
	IncWSConnectionsActive()
	DecWSConnectionsActive()
	ObserveWSConnection(duration time.Duration)
	ObserveWSMessage(direction, msgType string, size int)
}

// Server handles WebSocket connections and RPC requests.
type Server struct {
	router   *Router
	cfg      config.WebSocketConfig
	upgrader websocket.Upgrader
	logger   *utils.Logger
	recorder Recorder
	clients  map[*Client]struct{}
	mutex    sync.Mutex
}

// NewServer creates a new WebSocket server.
func NewServer(router *Router, cfg config.WebSocketConfig, logger *utils.Logger, recorder Recorder) *Server {
	if logger == nil {
		logger = utils.GetLogger()
	}

	return &Server{
		router: router,
		cfg:    cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // The gateway serves any origin
			},
		},
		logger:   logger.Named("rpc_server"),
		recorder: recorder,
		clients:  make(map[*Client]struct{}),
	}
}

// HandleWebSocket upgrades an HTTP connection to WebSocket and serves it.
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection", err)
		return
	}

	client := newClient(uuid.NewString(), s, conn)
	s.register(client)

	go client.writePump()
	go client.readPump()

	s.logger.Info("WebSocket connection established", "clientID", client.ID, "remote", utils.GetRequestIP(r))
}

func (s *Server) register(client *Client) {
	s.mutex.Lock()
	s.clients[client] = struct{}{}
	s.mutex.Unlock()

	if s.recorder != nil {
		s.recorder.IncWSConnectionsActive()
	}
	s.logger.Debug("Client registered", "clientID", client.ID)
}

func (s *Server) unregister(client *Client) {
	s.mutex.Lock()
	_, ok := s.clients[client]
	delete(s.clients, client)
	s.mutex.Unlock()

	if !ok {
		return
	}

	client.close()
	if s.recorder != nil {
		s.recorder.DecWSConnectionsActive()
		s.recorder.ObserveWSConnection(time.Since(client.connectedAt))
	}
	s.logger.Debug("Client unregistered", "clientID", client.ID)
}

func (s *Server) observeMessage(direction, msgType string, size int) {
	if s.recorder != nil {
		s.recorder.ObserveWSMessage(direction, msgType, size)
	}
}

// GetClientCount gets the number of connected clients.
func (s *Server) GetClientCount() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return len(s.clients)
}

// Shutdown sends a close frame to every client and drops the connections.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down RPC server")

	s.mutex.Lock()
	clients := make([]*Client, 0, len(s.clients))
	for client := range s.clients {
		clients = append(clients, client)
	}
	s.mutex.Unlock()

	deadline := time.Now().Add(s.cfg.WriteWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
	for _, client := range clients {
		_ = client.conn.WriteControl(websocket.CloseMessage, msg, deadline)
		s.unregister(client)
		client.conn.Close()
	}

	return nil
}
