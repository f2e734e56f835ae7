package store

import (
	"context"
	"errors"
	"time"
)

// SystemUsername marks server-generated presence and notice messages.
const SystemUsername = "System"

var (
	// ErrRoomNotFound is returned when a room does not exist.
	ErrRoomNotFound = errors.New("room not found")
	// ErrRoomExists is returned when creating a room whose ID is taken.
	ErrRoomExists = errors.New("room already exists")
)

// Room is a named chat channel with exactly one recorded creator.
// Immutable after creation.
type Room struct {
	ID        string
	Creator   string
	CreatedAt time.Time
}

// Message is a persisted chat message. Append-only.
type Message struct {
	Username  string
	Content   string
	RoomID    string
	Timestamp time.Time
	System    bool
}

// SystemMessage builds a server-authored notice for a room.
func SystemMessage(roomID, content string) Message {
	return Message{
		Username:  SystemUsername,
		Content:   content,
		RoomID:    roomID,
		Timestamp: time.Now().UTC(),
		System:    true,
	}
}

// RoomStore handles room persistence.
type RoomStore interface {
	// CreateRoom creates a room with the given creator. Returns ErrRoomExists
	// if the ID is already taken; the check-and-create is atomic.
	CreateRoom(ctx context.Context, roomID, creator string) (*Room, error)

	// GetRoom retrieves a room by ID. Returns ErrRoomNotFound if absent.
	GetRoom(ctx context.Context, roomID string) (*Room, error)
}

// MessageStore handles message persistence.
type MessageStore interface {
	// SaveMessage appends a message to the room's history.
	SaveMessage(ctx context.Context, msg *Message) error

	// RecentMessages returns up to limit of the newest messages in a room,
	// ordered oldest first.
	RecentMessages(ctx context.Context, roomID string, limit int) ([]*Message, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	RoomStore
	MessageStore

	// Close closes the underlying database connection.
	Close() error
}
