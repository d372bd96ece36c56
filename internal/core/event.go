package core

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventRoomInfo describes the room a client just joined. Joiner only.
	EventRoomInfo EventKind = iota
	// EventHistory delivers recent messages to a client upon joining a room. Joiner only.
	EventHistory
	// EventRoomMessage carries a chat message or a system notice to room members.
	EventRoomMessage
	// EventError notifies a single client about a failure it caused.
	EventError
)

// Event is sent to clients to describe what happened in the system.
type Event struct {
	Kind     EventKind
	RoomID   int64
	Room     *RoomInfo // EventRoomInfo
	Message  Message   // EventRoomMessage
	Messages []Message // EventHistory
	Error    *CoreError

	remote bool // relayed from another node; its id is not comparable to local history
}
