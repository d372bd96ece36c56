package core

import "context"

// RelayEnvelope is a room broadcast exchanged between server nodes.
type RelayEnvelope struct {
	Origin  string  `json:"origin"`
	RoomID  int64   `json:"room_id"`
	Message Message `json:"message"`
}

// Relay carries room broadcasts to other nodes so their local members see them too.
type Relay interface {
	Publish(ctx context.Context, env RelayEnvelope) error
	// Subscribe blocks, calling deliver for every envelope, until ctx is done.
	Subscribe(ctx context.Context, deliver func(RelayEnvelope)) error
}
