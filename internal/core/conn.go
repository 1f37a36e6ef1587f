package core

import "context"

// CloseStatus mirrors websocket close codes so transports can map it directly.
type CloseStatus int

const (
	CloseNormal          CloseStatus = 1000
	ClosePolicyViolation CloseStatus = 1008
	CloseInternalError   CloseStatus = 1011
)

// Conn is one live bidirectional text connection. The session that accepted
// the connection is its sole owner; the registry only holds a non-owning
// reference between Register and Unregister.
type Conn interface {
	// Receive blocks until the next inbound text payload arrives.
	Receive(ctx context.Context) (string, error)

	// Send delivers one text payload to the remote endpoint.
	Send(ctx context.Context, text string) error

	// Close tears the connection down with the given status and reason.
	Close(status CloseStatus, reason string) error
}
