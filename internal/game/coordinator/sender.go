package coordinator

import "github.com/romgon-game/coordinator/internal/protocol"

// Sender delivers outbound envelopes to connections. The transport
// layer implements it; delivery is fire-and-forget with no
// acknowledgment or backpressure contract. Sending to an unknown or
// dead connection is a no-op.
type Sender interface {
	Send(connID string, env protocol.Envelope)
}

// SenderFunc adapts a function to the Sender interface.
type SenderFunc func(connID string, env protocol.Envelope)

// Send calls the underlying function.
func (f SenderFunc) Send(connID string, env protocol.Envelope) { f(connID, env) }
