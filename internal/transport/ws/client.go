package ws

import (
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/romgon-game/coordinator/internal/config"
	"github.com/romgon-game/coordinator/internal/game/coordinator"
	"github.com/romgon-game/coordinator/internal/protocol"
)

// client is one live WebSocket connection: the socket, its identity,
// and the buffered outbound channel drained by the write pump.
type client struct {
	id   string
	conn *websocket.Conn
	send chan protocol.Envelope
	srv  *Server
}

// readPump reads frames off the socket, decodes them into events, and
// feeds them to the server's single inbound stream. It owns the read
// side of the connection; when it returns, the connection is torn down
// and a synthetic disconnect event is emitted.
func (c *client) readPump(cfg config.WebSocketConfig) {
	defer func() {
		c.srv.dropClient(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(cfg.MaxMessageBytes)
	_ = c.conn.SetReadDeadline(time.Now().Add(cfg.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(cfg.PongWait))
	})

	for {
		var env protocol.Envelope
		if err := c.conn.ReadJSON(&env); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.srv.logger.Warn("unexpected close",
					zap.String("conn_id", c.id),
					zap.Error(err),
				)
			}
			return
		}

		if !protocol.ValidInbound(env.Type) {
			c.srv.logger.Warn("dropping unknown event type",
				zap.String("conn_id", c.id),
				zap.String("type", string(env.Type)),
			)
			continue
		}

		c.srv.enqueue(coordinator.Event{
			ConnID:  c.id,
			Kind:    env.Type,
			Payload: env.Payload,
		})
	}
}

// writePump drains the send channel onto the socket and keeps the
// connection alive with periodic pings. It returns when the send
// channel is closed or a write fails.
func (c *client) writePump(cfg config.WebSocketConfig) {
	ticker := time.NewTicker(cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case env, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
			if !ok {
				// dropClient closed the channel; say goodbye.
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(env); err != nil {
				c.srv.logger.Debug("write failed",
					zap.String("conn_id", c.id),
					zap.Error(err),
				)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
