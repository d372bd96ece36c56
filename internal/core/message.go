package core

import (
	"time"

	"github.com/samber/lo"

	"github.com/vovakirdan/roomchat-server/internal/store"
)

// Message is the domain model for a chat message.
// System notices (joined/left/disconnected) are never persisted and carry ID 0.
type Message struct {
	ID        int64
	RoomID    int64
	UserID    int64
	Username  string
	Text      string
	CreatedAt time.Time
	System    bool
}

// Persisted reports whether the message came from the message store.
func (m Message) Persisted() bool {
	return m.ID > 0
}

func messageFromStore(msg *store.Message) Message {
	return Message{
		ID:        msg.ID,
		RoomID:    msg.RoomID,
		UserID:    msg.UserID,
		Username:  msg.Username,
		Text:      msg.Content,
		CreatedAt: msg.CreatedAt,
	}
}

func messagesFromStore(msgs []*store.Message) []Message {
	return lo.Map(msgs, func(m *store.Message, _ int) Message {
		return messageFromStore(m)
	})
}
