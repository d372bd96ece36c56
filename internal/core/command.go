package core

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandJoinRoom makes the room the connection's current room.
	CommandJoinRoom CommandKind = iota
	// CommandSendMessage posts a chat message to the current room.
	CommandSendMessage
	// CommandLeaveRoom drops the connection's current room.
	CommandLeaveRoom
)

func (k CommandKind) String() string {
	switch k {
	case CommandJoinRoom:
		return "join_room"
	case CommandSendMessage:
		return "send_message"
	case CommandLeaveRoom:
		return "leave_room"
	default:
		return "unknown"
	}
}

// Command represents an action requested by a client.
type Command struct {
	Kind   CommandKind
	RoomID int64
	Text   string
}
