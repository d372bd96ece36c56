package core

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/roomchat-server/internal/store"
	"github.com/vovakirdan/roomchat-server/internal/store/sqlite"
)

func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev == nil {
				continue
			}
			if ev.Kind == kind {
				return ev
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %v not received", kind)
	return nil
}

// nextEvent returns the next queued event, failing if none is queued.
func nextEvent(t *testing.T, ch <-chan *Event) *Event {
	t.Helper()

	select {
	case ev := <-ch:
		require.NotNil(t, ev, "outbox closed")
		return ev
	default:
		t.Fatal("expected a queued event")
		return nil
	}
}

func requireNoEvent(t *testing.T, ch <-chan *Event) {
	t.Helper()

	select {
	case ev, ok := <-ch:
		if ok {
			t.Fatalf("unexpected event: %+v", ev)
		}
	default:
	}
}

// drain discards everything queued in ch.
func drain(ch <-chan *Event) {
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		default:
			return
		}
	}
}

type fixture struct {
	store *sqlite.SQLiteStore
	hub   *Hub
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	s, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	return &fixture{store: s, hub: NewHub(s, s, opts...)}
}

func (f *fixture) user(t *testing.T, name string) Identity {
	t.Helper()

	u, err := f.store.CreateUser(context.Background(), name, "hash")
	require.NoError(t, err)
	return Identity{UserID: u.ID, Username: u.Username}
}

func (f *fixture) room(t *testing.T, name string, creator Identity, members ...Identity) *store.Room {
	t.Helper()

	ctx := context.Background()
	room, err := f.store.CreateRoom(ctx, name, creator.UserID)
	require.NoError(t, err)
	for _, m := range members {
		require.NoError(t, f.store.AddMember(ctx, m.UserID, room.ID))
	}
	return room
}

func (f *fixture) connect(t *testing.T, id string, who Identity) *Client {
	t.Helper()

	c := NewClient(id, who, 64)
	require.NoError(t, f.hub.Connect(c))
	return c
}

func (f *fixture) join(t *testing.T, c *Client, roomID int64) {
	t.Helper()

	f.hub.Handle(context.Background(), c, Command{Kind: CommandJoinRoom, RoomID: roomID})
}
