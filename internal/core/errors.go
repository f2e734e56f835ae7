package core

import (
	"fmt"
	"strings"
)

// Error codes for domain errors. Each code maps to exactly one wire-level
// error frame at the transport boundary.
const (
	ErrCodeTokenMissing        = "token_missing"
	ErrCodeTokenExpired        = "token_expired"
	ErrCodeTokenInvalid        = "token_invalid"
	ErrCodeRoomNotFound        = "room_not_found"
	ErrCodeRoomExists          = "room_exists"
	ErrCodeDuplicateConnection = "duplicate_connection"
	ErrCodeForbidden           = "forbidden"
	ErrCodeSelfKick            = "self_kick"
	ErrCodeInvalidTarget       = "invalid_target"
	ErrCodeMissingParameter    = "missing_parameter"
)

// Error wraps a code and the human-readable message sent to the client.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// The closed set of client-facing rejections. All are terminal for the
// current request only; none crash the process or affect other connections.
var (
	ErrTokenMissing        = &Error{ErrCodeTokenMissing, "Authentication token is missing."}
	ErrTokenExpired        = &Error{ErrCodeTokenExpired, "Your session has expired."}
	ErrTokenInvalid        = &Error{ErrCodeTokenInvalid, "Invalid authentication token."}
	ErrRoomNotFound        = &Error{ErrCodeRoomNotFound, "Room not found."}
	ErrRoomExists          = &Error{ErrCodeRoomExists, "Room already exists."}
	ErrDuplicateConnection = &Error{ErrCodeDuplicateConnection, "You are already connected."}
	ErrForbidden           = &Error{ErrCodeForbidden, "Only the room owner can perform this action"}
	ErrSelfKick            = &Error{ErrCodeSelfKick, "You cannot kick yourself."}
	ErrInvalidTarget       = &Error{ErrCodeInvalidTarget, "User is not in this room."}
	ErrMissingParameter    = &Error{ErrCodeMissingParameter, "Missing connection parameters."}
)

// DeliveryError reports connections that could not be reached during a
// broadcast. Recovered locally: the bus removes the failed connections and
// callers only log it.
type DeliveryError struct {
	Failed []Conn
}

func (e *DeliveryError) Error() string {
	ids := make([]string, 0, len(e.Failed))
	for _, c := range e.Failed {
		ids = append(ids, c.ID())
	}
	return fmt.Sprintf("delivery failed for %d connection(s): %s", len(e.Failed), strings.Join(ids, ", "))
}
