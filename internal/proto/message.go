package proto

import (
	"encoding/json"
	"time"
)

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type" validate:"required"`
	Data json.RawMessage `json:"data"`
}

const (
	InboundTypeJoin  = "join_room"
	InboundTypeSend  = "send_message"
	InboundTypeLeave = "leave_room"

	OutboundTypeEvent = "event"
	OutboundTypeError = "error"

	EventRoomInfo = "room_info"
	EventHistory  = "message_history"
	EventMessage  = "message"
)

// TimeFormat is the layout of every timestamp on the wire.
const TimeFormat = time.RFC3339Nano

// JoinData requests to join a specific room.
type JoinData struct {
	Room int64 `json:"room" validate:"required,gt=0"`
}

// SendData is a chat message for the sender's current room. Blank text is
// accepted here and dropped by the hub.
type SendData struct {
	Message string `json:"message"`
}

// LeaveData requests to leave a room. Zero means the current room.
type LeaveData struct {
	Room int64 `json:"room" validate:"gte=0"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// RoomInfo describes the room a client just joined.
type RoomInfo struct {
	ID      int64    `json:"id"`
	Name    string   `json:"name"`
	Creator string   `json:"creator"`
	Members []string `json:"members"`
}

// Message is a chat message or a system notice. System notices have no id.
type Message struct {
	ID        int64  `json:"id,omitempty"`
	Room      int64  `json:"room"`
	Username  string `json:"username"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	System    bool   `json:"system,omitempty"`
}

// History carries the recent messages of a room, oldest first.
type History struct {
	Room     int64     `json:"room"`
	Messages []Message `json:"messages"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
