package app

import (
	"context"
	"fmt"

	"github.com/vovakirdan/roomchat-server/internal/store"
)

// CreateRoom creates a room owned by the named user.
func CreateRoom(ctx context.Context, st store.Store, name, creator string) (*store.Room, error) {
	user, err := st.GetUserByUsername(ctx, creator)
	if err != nil {
		return nil, fmt.Errorf("creator %q: %w", creator, err)
	}
	room, err := st.CreateRoom(ctx, name, user.ID)
	if err != nil {
		return nil, fmt.Errorf("create room %q: %w", name, err)
	}
	return room, nil
}

// AddMember grants the named user membership in the named room.
func AddMember(ctx context.Context, st store.Store, roomName, username string) error {
	room, err := st.GetRoomByName(ctx, roomName)
	if err != nil {
		return fmt.Errorf("room %q: %w", roomName, err)
	}
	user, err := st.GetUserByUsername(ctx, username)
	if err != nil {
		return fmt.Errorf("user %q: %w", username, err)
	}
	if err := st.AddMember(ctx, user.ID, room.ID); err != nil {
		return fmt.Errorf("add %q to %q: %w", username, roomName, err)
	}
	return nil
}
