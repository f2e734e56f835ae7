package core

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/rbschat/gateway/internal/auth"
	"github.com/rbschat/gateway/internal/store"
)

// DefaultHistoryLimit caps history replay when no limit is configured.
const DefaultHistoryLimit = 50

// State of the per-connection protocol machine. Active is reachable only
// through a successful Resolving.
type State int

const (
	StateConnecting State = iota
	StateAuthenticating
	StateResolving
	StateActive
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthenticating:
		return "authenticating"
	case StateResolving:
		return "resolving"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// JoinMode is the flag selecting between joining an existing room and
// creating a new one.
type JoinMode int

const (
	JoinModeUnknown JoinMode = iota
	JoinModeConnect
	JoinModeCreate
)

// ConnectParams are the parameters supplied when the transport connection is
// established.
type ConnectParams struct {
	RoomID string
	Mode   JoinMode
	Token  string
}

// CredentialVerifier resolves a bearer credential to an identity claim.
// Implemented by auth.Gate.
type CredentialVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// Handler drives one connection through the protocol: authentication, room
// resolution, admission, the command loop, and teardown.
type Handler struct {
	verifier     CredentialVerifier
	dir          *Directory
	reg          *Registry
	bus          *Bus
	presence     *Notifier
	history      store.MessageStore
	historyLimit int
	log          *zerolog.Logger
}

// NewHandler wires a protocol handler over the coordination components.
func NewHandler(
	verifier CredentialVerifier,
	dir *Directory,
	reg *Registry,
	bus *Bus,
	presence *Notifier,
	history store.MessageStore,
	historyLimit int,
	logger *zerolog.Logger,
) *Handler {
	if historyLimit <= 0 {
		historyLimit = DefaultHistoryLimit
	}
	return &Handler{
		verifier:     verifier,
		dir:          dir,
		reg:          reg,
		bus:          bus,
		presence:     presence,
		history:      history,
		historyLimit: historyLimit,
		log:          logger,
	}
}

// Run owns the connection until it closes. One call per connection; commands
// are read one at a time, never concurrently.
func (h *Handler) Run(ctx context.Context, conn Conn, params ConnectParams) {
	state := StateConnecting
	var username string

	for state != StateClosed {
		switch state {
		case StateConnecting:
			state = h.connecting(ctx, conn, params)
		case StateAuthenticating:
			username, state = h.authenticate(ctx, conn, params)
		case StateResolving:
			state = h.resolve(ctx, conn, params, username)
		case StateActive:
			state = h.active(ctx, conn, params.RoomID, username)
		case StateClosed:
		}
	}
}

func (h *Handler) connecting(ctx context.Context, conn Conn, params ConnectParams) State {
	if params.RoomID == "" || params.Token == "" || (params.Mode != JoinModeConnect && params.Mode != JoinModeCreate) {
		return h.reject(ctx, conn, ErrMissingParameter)
	}
	return StateAuthenticating
}

func (h *Handler) authenticate(ctx context.Context, conn Conn, params ConnectParams) (string, State) {
	claims, err := h.verifier.Verify(params.Token)
	if err != nil {
		var rejection *Error
		switch {
		case errors.Is(err, auth.ErrTokenMissing):
			rejection = ErrTokenMissing
		case errors.Is(err, auth.ErrTokenExpired):
			rejection = ErrTokenExpired
		default:
			rejection = ErrTokenInvalid
		}
		h.log.Debug().Err(err).Str("conn_id", conn.ID()).Msg("credential rejected")
		return "", h.reject(ctx, conn, rejection)
	}
	return claims.Username, StateResolving
}

func (h *Handler) resolve(ctx context.Context, conn Conn, params ConnectParams, username string) State {
	var (
		room *store.Room
		err  error
	)
	switch params.Mode {
	case JoinModeConnect:
		room, err = h.dir.Room(ctx, params.RoomID)
	case JoinModeCreate:
		// The recorded creator is always the authenticated identity.
		room, err = h.dir.Create(ctx, params.RoomID, username)
	}
	if err != nil {
		var rejection *Error
		if errors.As(err, &rejection) {
			return h.reject(ctx, conn, rejection)
		}
		h.log.Error().Err(err).Str("room_id", params.RoomID).Msg("room resolution failed")
		conn.Close(CloseError)
		return StateClosed
	}

	if err := conn.Deliver(ctx, Event{Kind: EventInfo, Room: room}); err != nil {
		conn.Close(CloseError)
		return StateClosed
	}

	if err := h.reg.Admit(conn, username, room.ID); err != nil {
		return h.reject(ctx, conn, ErrDuplicateConnection)
	}

	h.log.Info().
		Str("username", username).
		Str("room_id", room.ID).
		Str("conn_id", conn.ID()).
		Msg("connection admitted")
	return StateActive
}

func (h *Handler) active(ctx context.Context, conn Conn, roomID, username string) State {
	h.presence.AnnounceJoin(ctx, username, roomID)
	h.replayHistory(ctx, conn, roomID)

	for {
		cmd, err := conn.ReadCommand(ctx)
		if err != nil {
			h.log.Debug().Err(err).Str("conn_id", conn.ID()).Msg("command loop ended")
			break
		}

		switch cmd.Kind {
		case CommandMessage:
			msg := store.Message{
				Username:  username,
				Content:   cmd.Content,
				RoomID:    roomID,
				Timestamp: time.Now().UTC(),
				System:    false,
			}
			if err := h.bus.Broadcast(ctx, msg); err != nil {
				var delivery *DeliveryError
				if errors.As(err, &delivery) {
					h.log.Warn().Err(err).Str("room_id", roomID).Msg("partial broadcast delivery")
				} else {
					h.log.Error().Err(err).Str("room_id", roomID).Msg("broadcast failed")
				}
			}
		case CommandKick:
			h.handleKick(ctx, conn, username, roomID, cmd.Target)
		case CommandHeartbeat:
			// Keepalive, nothing to do.
		default:
			h.log.Debug().Str("option", cmd.Option).Str("conn_id", conn.ID()).Msg("ignoring unrecognized command")
		}
	}

	h.disconnect(ctx, conn)
	return StateClosed
}

// handleKick validates moderation authority and force-disconnects the
// target. Authorization failures answer the caller with an error frame but
// never terminate the caller's connection.
func (h *Handler) handleKick(ctx context.Context, conn Conn, username, roomID, target string) {
	creator, err := h.dir.Creator(ctx, roomID)
	if err != nil {
		h.log.Error().Err(err).Str("room_id", roomID).Msg("creator lookup failed")
		return
	}

	if username != creator {
		h.sendError(ctx, conn, ErrForbidden)
		return
	}
	if target == username {
		h.sendError(ctx, conn, ErrSelfKick)
		return
	}

	targetConn := h.reg.Find(target, roomID)
	if targetConn == nil {
		h.sendError(ctx, conn, ErrInvalidTarget)
		return
	}

	h.log.Info().
		Str("room_id", roomID).
		Str("by", username).
		Str("target", target).
		Msg("kicking user")
	h.presence.AnnounceKick(ctx, targetConn, target, roomID)
}

func (h *Handler) replayHistory(ctx context.Context, conn Conn, roomID string) {
	msgs, err := h.history.RecentMessages(ctx, roomID, h.historyLimit)
	if err != nil {
		h.log.Error().Err(err).Str("room_id", roomID).Msg("history replay failed")
		return
	}

	for _, msg := range msgs {
		if err := conn.Deliver(ctx, Event{Kind: EventMessage, Message: msg}); err != nil {
			h.log.Debug().Err(err).Str("conn_id", conn.ID()).Msg("history delivery interrupted")
			return
		}
	}
}

// disconnect runs the removal-and-announce path. The registry removal
// succeeds for exactly one of the racing close paths, so the leave
// announcement fires once no matter how the connection died.
func (h *Handler) disconnect(ctx context.Context, conn Conn) {
	conn.Close(CloseNormal)

	// The request context is usually dead by the time we get here; the
	// departure still has to be persisted and announced.
	ctx = context.WithoutCancel(ctx)

	if username, roomID, ok := h.reg.Remove(conn); ok {
		h.presence.AnnounceLeave(ctx, username, roomID)
		h.log.Info().
			Str("username", username).
			Str("room_id", roomID).
			Str("conn_id", conn.ID()).
			Msg("connection closed")
	}
}

// reject sends a single explanatory error frame and closes the connection.
func (h *Handler) reject(ctx context.Context, conn Conn, rejection *Error) State {
	h.sendError(ctx, conn, rejection)
	conn.Close(CloseError)
	return StateClosed
}

func (h *Handler) sendError(ctx context.Context, conn Conn, rejection *Error) {
	if err := conn.Deliver(ctx, Event{Kind: EventError, Error: rejection}); err != nil {
		h.log.Debug().Err(err).Str("conn_id", conn.ID()).Msg("failed to deliver error frame")
	}
}
