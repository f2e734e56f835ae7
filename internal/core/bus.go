package core

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/rbschat/gateway/internal/store"
)

// Bus persists a message and fans it out to every connection in its room.
// System messages take the same path as user messages, so presence notices
// are persisted exactly like chat.
type Bus struct {
	reg      *Registry
	messages store.MessageStore
	log      *zerolog.Logger
}

// NewBus creates a broadcast bus over the given registry and message store.
func NewBus(reg *Registry, messages store.MessageStore, logger *zerolog.Logger) *Bus {
	return &Bus{reg: reg, messages: messages, log: logger}
}

// Broadcast writes the message to the store, then delivers it to a snapshot
// of the room's connections. Persistence strictly precedes fanout: a client
// reconnecting after receiving the message is guaranteed to find it in
// history. Individual delivery failures never block the remaining members;
// failed connections are removed from the registry and the failures come
// back as a *DeliveryError for the caller to log.
func (b *Bus) Broadcast(ctx context.Context, msg store.Message) error {
	if err := b.messages.SaveMessage(ctx, &msg); err != nil {
		return fmt.Errorf("persist message: %w", err)
	}

	return b.Fanout(ctx, msg.RoomID, Event{Kind: EventMessage, Message: &msg})
}

// Fanout delivers an event to a snapshot of the room's connections without
// persisting anything. Used for user-list frames; Broadcast routes through
// it after the store write.
func (b *Bus) Fanout(ctx context.Context, roomID string, ev Event) error {
	var failed []Conn
	for _, conn := range b.reg.ConnectionsIn(roomID) {
		if err := conn.Deliver(ctx, ev); err != nil {
			b.log.Warn().Err(err).
				Str("conn_id", conn.ID()).
				Str("room_id", roomID).
				Msg("delivery failed, dropping connection")
			failed = append(failed, conn)
		}
	}

	for _, conn := range failed {
		if _, _, ok := b.reg.Remove(conn); ok {
			conn.Close(CloseError)
		}
	}

	if len(failed) > 0 {
		return &DeliveryError{Failed: failed}
	}
	return nil
}
