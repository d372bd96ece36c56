package http

import (
	"errors"
	"net/http"

	"github.com/samber/lo"

	"github.com/vovakirdan/roomchat-server/internal/core"
	"github.com/vovakirdan/roomchat-server/internal/proto"
)

func inboundToCommand(inbound proto.Inbound, maxLen int) (core.Command, *proto.Error) {
	switch inbound.Type {
	case proto.InboundTypeJoin:
		var join proto.JoinData
		if err := proto.Decode(inbound.Data, &join); err != nil {
			return core.Command{}, badRequest("room id is required")
		}
		return core.Command{Kind: core.CommandJoinRoom, RoomID: join.Room}, nil
	case proto.InboundTypeSend:
		var msg proto.SendData
		if err := proto.Decode(inbound.Data, &msg); err != nil {
			return core.Command{}, badRequest("invalid message")
		}
		if err := proto.ValidateText(msg.Message, maxLen); err != nil {
			return core.Command{}, badRequest("message is too long")
		}
		return core.Command{Kind: core.CommandSendMessage, Text: msg.Message}, nil
	case proto.InboundTypeLeave:
		var leave proto.LeaveData
		if err := proto.Decode(inbound.Data, &leave); err != nil {
			return core.Command{}, badRequest("invalid room id")
		}
		return core.Command{Kind: core.CommandLeaveRoom, RoomID: leave.Room}, nil
	default:
		return core.Command{}, badRequest(proto.ErrUnknownType.Error())
	}
}

func badRequest(msg string) *proto.Error {
	return &proto.Error{Code: core.ErrCodeBadRequest, Msg: msg}
}

func errorOutbound(perr *proto.Error) proto.Outbound {
	return proto.Outbound{Type: proto.OutboundTypeError, Error: perr}
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventRoomInfo:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventRoomInfo,
			Data:  roomInfoToProto(event.Room),
		}
	case core.EventHistory:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventHistory,
			Data: proto.History{
				Room:     event.RoomID,
				Messages: messagesToProto(event.Messages),
			},
		}
	case core.EventRoomMessage:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventMessage,
			Data:  messageToProto(event.Message),
		}
	case core.EventError:
		if event.Error == nil {
			return errorOutbound(&proto.Error{Code: "unknown", Msg: "unknown error"})
		}
		return errorOutbound(&proto.Error{Code: event.Error.Code, Msg: event.Error.Message})
	default:
		return proto.Outbound{Type: proto.OutboundTypeEvent}
	}
}

func roomInfoToProto(info *core.RoomInfo) proto.RoomInfo {
	if info == nil {
		return proto.RoomInfo{Members: []string{}}
	}
	members := info.Members
	if members == nil {
		members = []string{}
	}
	return proto.RoomInfo{
		ID:      info.ID,
		Name:    info.Name,
		Creator: info.Creator,
		Members: members,
	}
}

func messageToProto(msg core.Message) proto.Message {
	return proto.Message{
		ID:        msg.ID,
		Room:      msg.RoomID,
		Username:  msg.Username,
		Message:   msg.Text,
		Timestamp: msg.CreatedAt.UTC().Format(proto.TimeFormat),
		System:    msg.System,
	}
}

func messagesToProto(msgs []core.Message) []proto.Message {
	return lo.Map(msgs, func(m core.Message, _ int) proto.Message {
		return messageToProto(m)
	})
}

// statusForCoreError maps engine read errors to an HTTP status and message.
func statusForCoreError(err error) (int, string) {
	switch {
	case errors.Is(err, core.ErrUnauthenticated):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, core.ErrAccessDenied):
		return http.StatusForbidden, "unauthorized"
	case errors.Is(err, core.ErrRoomNotFound):
		return http.StatusNotFound, "room not found"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}
