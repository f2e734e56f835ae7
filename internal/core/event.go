package core

import "github.com/rbschat/gateway/internal/store"

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventInfo delivers room details right after resolving a room.
	EventInfo EventKind = iota
	// EventMessage delivers a chat or system message.
	EventMessage
	// EventUsers delivers the current user-list snapshot for a room.
	EventUsers
	// EventError delivers a rejection before or instead of closing.
	EventError
	// EventKicked is the direct notice sent to a kicked connection only.
	EventKicked
)

// KickedNotice is the out-of-band message delivered to a kicked connection
// before it is force-closed.
const KickedNotice = "You have been kicked from the room."

// Event is sent to clients to describe what happened in the system.
type Event struct {
	Kind    EventKind
	Room    *store.Room    // EventInfo
	Message *store.Message // EventMessage
	Users   []string       // EventUsers
	Error   *Error         // EventError
	Notice  string         // EventKicked
}
