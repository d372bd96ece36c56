package core

import (
	"fmt"
	"time"

	"github.com/samber/lo"

	"github.com/vovakirdan/roomchat-server/internal/store"
)

// RoomInfo is the room metadata handed to a client when it joins.
type RoomInfo struct {
	ID      int64
	Name    string
	Creator string
	Members []string
}

func newRoomInfo(room *store.Room, members []store.Member) *RoomInfo {
	return &RoomInfo{
		ID:      room.ID,
		Name:    room.Name,
		Creator: room.CreatorName,
		Members: lo.Map(members, func(m store.Member, _ int) string { return m.Username }),
	}
}

type notice int

const (
	noticeJoined notice = iota
	noticeLeft
	noticeDisconnected
)

// systemMessage builds a presence notice about user in room.
func systemMessage(kind notice, roomID int64, user Identity, at time.Time) Message {
	var text string
	switch kind {
	case noticeJoined:
		text = fmt.Sprintf("%s has joined the room.", user.Username)
	case noticeLeft:
		text = fmt.Sprintf("%s has left the room.", user.Username)
	case noticeDisconnected:
		text = fmt.Sprintf("%s has disconnected.", user.Username)
	}
	return Message{
		RoomID:    roomID,
		UserID:    user.UserID,
		Username:  user.Username,
		Text:      text,
		CreatedAt: at.UTC(),
		System:    true,
	}
}
