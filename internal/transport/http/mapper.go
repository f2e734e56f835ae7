package http

import (
	"time"

	"github.com/rbschat/gateway/internal/core"
	"github.com/rbschat/gateway/internal/proto"
)

func parseJoinMode(method string) core.JoinMode {
	switch method {
	case proto.MethodConnect:
		return core.JoinModeConnect
	case proto.MethodCreate:
		return core.JoinModeCreate
	default:
		return core.JoinModeUnknown
	}
}

func inboundToCommand(inbound proto.Inbound) core.Command {
	switch inbound.Option {
	case proto.OptionMessage:
		return core.Command{Kind: core.CommandMessage, Content: inbound.Content, Option: inbound.Option}
	case proto.OptionKick:
		return core.Command{Kind: core.CommandKick, Target: inbound.Target, Option: inbound.Option}
	case proto.OptionConnection:
		return core.Command{Kind: core.CommandHeartbeat, Option: inbound.Option}
	default:
		return core.Command{Kind: core.CommandUnknown, Option: inbound.Option}
	}
}

func frameFromEvent(ev core.Event) any {
	switch ev.Kind {
	case core.EventInfo:
		return proto.InfoFrame{
			Type: proto.TypeInfo,
			Data: proto.Info{RoomID: ev.Room.ID, RoomCreator: ev.Room.Creator},
		}
	case core.EventMessage:
		return proto.MessageFrame{
			Type:      proto.TypeMessage,
			Username:  ev.Message.Username,
			Content:   ev.Message.Content,
			RoomID:    ev.Message.RoomID,
			Timestamp: ev.Message.Timestamp.UTC().Format(time.RFC3339Nano),
			System:    ev.Message.System,
		}
	case core.EventUsers:
		users := ev.Users
		if users == nil {
			users = []string{}
		}
		return proto.UsersFrame{Type: proto.TypeUsers, Users: users}
	case core.EventError:
		return proto.ErrorFrame{Type: proto.TypeError, Message: ev.Error.Message}
	case core.EventKicked:
		return proto.KickedFrame{Type: proto.TypeKicked, Message: ev.Notice}
	default:
		return proto.ErrorFrame{Type: proto.TypeError, Message: "unknown event"}
	}
}
