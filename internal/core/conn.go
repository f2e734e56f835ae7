package core

import "context"

// CloseReason explains why a connection is being shut down.
type CloseReason int

const (
	// CloseNormal is a regular shutdown after the command loop ends.
	CloseNormal CloseReason = iota
	// CloseError closes a connection after a rejected request or failed write.
	CloseError
	// CloseKicked is the forced shutdown of a kicked connection.
	CloseKicked
)

// Conn is the transport-side handle for one live client connection. The core
// owns a Conn from admission until removal and never reads it concurrently.
type Conn interface {
	// ID identifies the connection for logging and failure reports.
	ID() string

	// ReadCommand blocks until the client sends the next command frame.
	// Returns an error once the transport is closed or broken.
	ReadCommand(ctx context.Context) (Command, error)

	// Deliver sends one event frame to the client. A failure marks the
	// connection dead; it does not affect other connections.
	Deliver(ctx context.Context, ev Event) error

	// Close shuts the transport down. Safe to call more than once.
	Close(reason CloseReason)
}

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandUnknown is any option the protocol does not recognize.
	CommandUnknown CommandKind = iota
	// CommandMessage sends a chat message to the room.
	CommandMessage
	// CommandKick asks to remove another user from the room.
	CommandKick
	// CommandHeartbeat is a keepalive no-op.
	CommandHeartbeat
)

// Command represents an action requested by a client.
type Command struct {
	Kind    CommandKind
	Content string // CommandMessage
	Target  string // CommandKick
	Option  string // raw option, kept for logging unknown commands
}
