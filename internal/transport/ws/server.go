// Package ws provides the WebSocket transport: it accepts connections,
// assigns each an opaque id, pumps frames in both directions, and
// funnels every inbound event from every connection into one serialized
// stream consumed by a single dispatch goroutine.
package ws

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/romgon-game/coordinator/internal/config"
	"github.com/romgon-game/coordinator/internal/game/coordinator"
	"github.com/romgon-game/coordinator/internal/protocol"
)

// Dispatcher consumes the serialized inbound event stream.
type Dispatcher interface {
	HandleEvent(ev coordinator.Event)
}

// Server accepts WebSocket connections on /ws and bridges them to the
// dispatcher. It implements server.Service and coordinator.Sender.
type Server struct {
	serverCfg config.ServerConfig
	wsCfg     config.WebSocketConfig
	logger    *zap.Logger

	dispatcher Dispatcher
	upgrader   websocket.Upgrader
	httpSrv    *http.Server

	mu      sync.RWMutex
	clients map[string]*client

	incoming chan coordinator.Event
	quit     chan struct{}
	once     sync.Once
	wg       sync.WaitGroup
}

// NewServer creates a WebSocket server.
//
// Precondition: dispatcher and logger must be non-nil.
// Postcondition: Returns a Server ready to Start.
func NewServer(serverCfg config.ServerConfig, wsCfg config.WebSocketConfig, dispatcher Dispatcher, logger *zap.Logger) *Server {
	return &Server{
		serverCfg:  serverCfg,
		wsCfg:      wsCfg,
		logger:     logger,
		dispatcher: dispatcher,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  wsCfg.ReadBufferSize,
			WriteBufferSize: wsCfg.WriteBufferSize,
			// Room codes are the access control; any origin may connect.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients:  make(map[string]*client),
		incoming: make(chan coordinator.Event, 256),
		quit:     make(chan struct{}),
	}
}

// Start runs the dispatch loop and the HTTP listener. Blocks until Stop.
//
// Postcondition: Returns nil on graceful shutdown, or the listener error.
func (s *Server) Start() error {
	s.wg.Add(1)
	go s.dispatchLoop()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleUpgrade)

	s.httpSrv = &http.Server{
		Addr:    s.serverCfg.Addr(),
		Handler: mux,
	}

	s.logger.Info("websocket server listening",
		zap.String("addr", s.serverCfg.Addr()),
	)

	err := s.httpSrv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.serverCfg.Addr(), err)
	}
	return nil
}

// Stop shuts the listener down, closes every live connection, and
// drains the dispatch loop. Idempotent.
func (s *Server) Stop() {
	s.once.Do(func() {
		if s.httpSrv != nil {
			ctx, cancel := context.WithTimeout(context.Background(), s.serverCfg.ShutdownTimeout)
			defer cancel()
			if err := s.httpSrv.Shutdown(ctx); err != nil {
				s.logger.Warn("http shutdown", zap.Error(err))
			}
		}

		s.mu.Lock()
		for _, c := range s.clients {
			close(c.send)
			delete(s.clients, c.id)
		}
		s.mu.Unlock()

		close(s.quit)
		s.wg.Wait()
	})
}

// Send implements coordinator.Sender. Delivery is fire-and-forget: a
// full send buffer or an unknown connection drops the frame.
func (s *Server) Send(connID string, env protocol.Envelope) {
	// The send attempt stays under the read lock so the channel cannot
	// be closed out from under it; the select never blocks.
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.clients[connID]
	if !ok {
		return
	}

	select {
	case c.send <- env:
	default:
		s.logger.Debug("send buffer full, dropping frame",
			zap.String("conn_id", connID),
			zap.String("type", string(env.Type)),
		)
	}
}

// ClientCount returns the number of live connections.
func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// dispatchLoop is the single goroutine that hands inbound events to the
// dispatcher, one at a time, preserving the serialized-processing
// discipline every room mutation relies on.
func (s *Server) dispatchLoop() {
	defer s.wg.Done()
	for {
		select {
		case ev := <-s.incoming:
			s.dispatcher.HandleEvent(ev)
		case <-s.quit:
			// Drain whatever arrived before shutdown.
			for {
				select {
				case ev := <-s.incoming:
					s.dispatcher.HandleEvent(ev)
				default:
					return
				}
			}
		}
	}
}

// enqueue feeds one event into the serialized stream.
func (s *Server) enqueue(ev coordinator.Event) {
	select {
	case s.incoming <- ev:
	case <-s.quit:
	}
}

// handleUpgrade promotes an HTTP request to a WebSocket connection and
// starts its pumps.
func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed",
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(err),
		)
		return
	}

	c := &client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan protocol.Envelope, s.wsCfg.SendBuffer),
		srv:  s,
	}

	s.mu.Lock()
	s.clients[c.id] = c
	s.mu.Unlock()

	s.logger.Info("client connected",
		zap.String("conn_id", c.id),
		zap.String("remote_addr", conn.RemoteAddr().String()),
	)

	go c.writePump(s.wsCfg)
	go c.readPump(s.wsCfg)
}

// dropClient removes a client whose read pump has exited and emits the
// synthetic disconnect event for it.
func (s *Server) dropClient(c *client) {
	start := time.Now()

	s.mu.Lock()
	if _, ok := s.clients[c.id]; ok {
		delete(s.clients, c.id)
		close(c.send)
	}
	s.mu.Unlock()

	s.enqueue(coordinator.Event{
		ConnID: c.id,
		Kind:   protocol.KindDisconnect,
	})

	s.logger.Info("client disconnected",
		zap.String("conn_id", c.id),
		zap.Duration("teardown", time.Since(start)),
	)
}
