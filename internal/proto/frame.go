package proto

// Connection query parameters.
const (
	ParamMethod = "method"
	ParamToken  = "token"

	MethodConnect = "connect"
	MethodCreate  = "create"
)

// Inbound command options.
const (
	OptionMessage    = "message"
	OptionKick       = "kick"
	OptionConnection = "connection"
)

// Outbound frame types.
const (
	TypeInfo    = "info"
	TypeMessage = "message"
	TypeUsers   = "users"
	TypeError   = "error"
	TypeKicked  = "kicked"
)

// Inbound is a command frame received from the client.
type Inbound struct {
	Option  string `json:"option"`
	Content string `json:"content,omitempty"`
	Target  string `json:"target,omitempty"`
}

// Info describes the room a client connected to.
type Info struct {
	RoomID      string `json:"room_id"`
	RoomCreator string `json:"room_creator"`
}

// InfoFrame is sent once, right after the room is resolved.
type InfoFrame struct {
	Type string `json:"type"`
	Data Info   `json:"data"`
}

// MessageFrame carries one chat or system message. Timestamp is ISO-8601.
type MessageFrame struct {
	Type      string `json:"type"`
	Username  string `json:"username"`
	Content   string `json:"content"`
	RoomID    string `json:"room_id"`
	Timestamp string `json:"timestamp"`
	System    bool   `json:"system"`
}

// UsersFrame is the user-list snapshot for the room.
type UsersFrame struct {
	Type  string   `json:"type"`
	Users []string `json:"users"`
}

// ErrorFrame is the single explanatory frame sent for any rejection.
type ErrorFrame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// KickedFrame is the direct notice delivered to a kicked connection before
// it is force-closed.
type KickedFrame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
