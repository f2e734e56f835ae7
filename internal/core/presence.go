package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/rbschat/gateway/internal/store"
)

// Notifier derives and emits system messages for membership changes. For
// every change the notice is broadcast first and the refreshed user list
// second, so clients never render a list that predates the notice.
type Notifier struct {
	reg *Registry
	bus *Bus
	log *zerolog.Logger
}

// NewNotifier creates a presence notifier over the registry and bus.
func NewNotifier(reg *Registry, bus *Bus, logger *zerolog.Logger) *Notifier {
	return &Notifier{reg: reg, bus: bus, log: logger}
}

// AnnounceJoin broadcasts the join notice and the current user list. Called
// after the connection has been admitted, so the list includes the joiner.
func (n *Notifier) AnnounceJoin(ctx context.Context, username, roomID string) {
	n.broadcastSystem(ctx, roomID, fmt.Sprintf("%s joined the chat", username))
	n.sendUserList(ctx, roomID)
}

// AnnounceLeave broadcasts the leave notice and the refreshed user list.
// Callers invoke it only after a successful registry removal, so a racing
// double disconnect announces once.
func (n *Notifier) AnnounceLeave(ctx context.Context, username, roomID string) {
	n.broadcastSystem(ctx, roomID, fmt.Sprintf("%s left the chat", username))
	n.sendUserList(ctx, roomID)
}

// AnnounceKick notifies the target directly, force-closes it, removes it
// from the registry, and only then announces the kick to the room. The
// removal gates the announcement, so the target's own teardown racing in
// cannot produce a second notice, and the user list never includes the
// kicked user.
func (n *Notifier) AnnounceKick(ctx context.Context, target Conn, username, roomID string) {
	if err := target.Deliver(ctx, Event{Kind: EventKicked, Notice: KickedNotice}); err != nil {
		n.log.Warn().Err(err).Str("conn_id", target.ID()).Msg("failed to deliver kick notice")
	}
	target.Close(CloseKicked)

	if _, _, ok := n.reg.Remove(target); !ok {
		return
	}

	n.broadcastSystem(ctx, roomID, fmt.Sprintf("%s has been kicked from the chat", username))
	n.sendUserList(ctx, roomID)
}

func (n *Notifier) broadcastSystem(ctx context.Context, roomID, content string) {
	err := n.bus.Broadcast(ctx, store.SystemMessage(roomID, content))
	if err == nil {
		return
	}

	var delivery *DeliveryError
	if errors.As(err, &delivery) {
		n.log.Warn().Err(err).Str("room_id", roomID).Msg("partial system message delivery")
		return
	}
	n.log.Error().Err(err).Str("room_id", roomID).Msg("failed to broadcast system message")
}

func (n *Notifier) sendUserList(ctx context.Context, roomID string) {
	users := n.reg.UsernamesIn(roomID)
	if err := n.bus.Fanout(ctx, roomID, Event{Kind: EventUsers, Users: users}); err != nil {
		n.log.Warn().Err(err).Str("room_id", roomID).Msg("partial user list delivery")
	}
}
