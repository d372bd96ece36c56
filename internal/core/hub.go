package core

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/roomchat-server/internal/store"
)

// DefaultHistoryLimit is how many recent messages a joiner receives.
const DefaultHistoryLimit = 100

// Hub is the room broadcast engine. Each connection's commands are handled on
// the caller's goroutine; commands of different connections run concurrently.
type Hub struct {
	rooms        store.RoomStore
	messages     store.MessageStore
	sessions     *Registry
	relay        Relay
	nodeID       string
	historyLimit int
	log          *zerolog.Logger
	now          func() time.Time

	connected atomic.Int64
}

// Option configures a Hub.
type Option func(*Hub)

// WithHistoryLimit sets how many recent messages are replayed on join.
func WithHistoryLimit(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.historyLimit = n
		}
	}
}

// WithLogger sets the hub logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(h *Hub) {
		if logger != nil {
			h.log = logger
		}
	}
}

// WithRelay publishes every room broadcast through relay, tagged with nodeID.
func WithRelay(relay Relay, nodeID string) Option {
	return func(h *Hub) {
		h.relay = relay
		h.nodeID = nodeID
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(h *Hub) {
		h.now = now
	}
}

// NewHub creates a hub over the given room and message stores.
func NewHub(rooms store.RoomStore, messages store.MessageStore, opts ...Option) *Hub {
	nop := zerolog.Nop()
	h := &Hub{
		rooms:        rooms,
		messages:     messages,
		sessions:     NewRegistry(),
		historyLimit: DefaultHistoryLimit,
		log:          &nop,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Sessions exposes the session registry.
func (h *Hub) Sessions() *Registry {
	return h.sessions
}

// Connected returns the number of live connections.
func (h *Hub) Connected() int64 {
	return h.connected.Load()
}

// Run consumes broadcasts from other nodes until ctx is cancelled.
// Without a relay it just waits for ctx.
func (h *Hub) Run(ctx context.Context) error {
	if h.relay == nil {
		<-ctx.Done()
		return nil
	}
	err := h.relay.Subscribe(ctx, h.deliverRemote)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// Connect admits a client. Clients without a valid identity are refused.
func (h *Hub) Connect(c *Client) error {
	if !c.Identity.Valid(h.now()) {
		return ErrUnauthenticated
	}
	n := h.connected.Add(1)
	h.log.Debug().Str("conn_id", c.ID).Str("user", c.Identity.Username).Int64("connected", n).Msg("client connected")
	return nil
}

// Handle dispatches one command from c. Commands from unauthenticated or
// expired identities are dropped without a reply.
func (h *Hub) Handle(ctx context.Context, c *Client, cmd Command) {
	if !c.Identity.Valid(h.now()) {
		h.log.Debug().Str("conn_id", c.ID).Str("command", cmd.Kind.String()).Msg("dropping command from unauthenticated client")
		return
	}

	switch cmd.Kind {
	case CommandJoinRoom:
		h.joinRoom(ctx, c, cmd.RoomID)
	case CommandSendMessage:
		h.sendMessage(ctx, c, cmd.Text)
	case CommandLeaveRoom:
		h.leaveRoom(ctx, c, cmd.RoomID)
	default:
		c.Deliver(ErrorEvent(ErrCodeBadRequest, "unknown command"))
	}
}

// Disconnect tears the connection down. It runs to completion for every
// connection and broadcasts a notice only the first time, and only if the
// connection was in a room.
func (h *Hub) Disconnect(ctx context.Context, c *Client) {
	session, ok := h.sessions.Remove(c.ID)
	if c.shutdown() {
		h.connected.Add(-1)
	}
	if !ok {
		return
	}
	h.log.Debug().Str("conn_id", c.ID).Str("user", session.Username).Int64("room_id", session.RoomID).Msg("client disconnected")

	if session.InRoom() {
		h.broadcast(ctx, session.RoomID, systemMessage(noticeDisconnected, session.RoomID, c.Identity, h.now()))
	}
}

func (h *Hub) joinRoom(ctx context.Context, c *Client, roomID int64) {
	room, members, err := h.authorize(ctx, c.Identity, roomID)
	if err != nil {
		h.reject(c, err, roomID)
		return
	}

	// Live messages for the room are held by the client from here until the
	// history has been queued, so history always precedes them.
	c.beginJoin(roomID)
	h.sessions.Put(Session{
		ConnID:   c.ID,
		UserID:   c.Identity.UserID,
		Username: c.Identity.Username,
		RoomID:   roomID,
		Client:   c,
	})

	history, err := h.messages.RecentMessages(ctx, roomID, h.historyLimit)
	if err != nil {
		h.sessions.Remove(c.ID)
		c.abortJoin()
		h.storeFailure(c, err, "load history", roomID)
		return
	}

	c.finishJoin(newRoomInfo(room, members), messagesFromStore(history))
	h.log.Debug().Str("conn_id", c.ID).Str("user", c.Identity.Username).Int64("room_id", roomID).Int("history", len(history)).Msg("joined room")

	h.broadcast(ctx, roomID, systemMessage(noticeJoined, roomID, c.Identity, h.now()))
}

func (h *Hub) sendMessage(ctx context.Context, c *Client, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	session, ok := h.sessions.Get(c.ID)
	if !ok || !session.InRoom() {
		return
	}

	member, err := h.rooms.IsMember(ctx, c.Identity.UserID, session.RoomID)
	if err != nil {
		h.storeFailure(c, err, "check membership", session.RoomID)
		return
	}
	if !member {
		h.log.Debug().Str("conn_id", c.ID).Int64("room_id", session.RoomID).Msg("dropping message from non-member")
		return
	}

	msg, err := h.messages.AppendMessage(ctx, session.RoomID, c.Identity.UserID, c.Identity.Username, text)
	if err != nil {
		if errors.Is(err, store.ErrEmptyMessage) {
			return
		}
		h.storeFailure(c, err, "append message", session.RoomID)
		return
	}

	h.broadcast(ctx, session.RoomID, messageFromStore(msg))
}

func (h *Hub) leaveRoom(ctx context.Context, c *Client, roomID int64) {
	session, ok := h.sessions.Leave(c.ID, roomID)
	if !ok {
		return
	}
	c.clearRoom()
	h.broadcast(ctx, session.RoomID, systemMessage(noticeLeft, session.RoomID, c.Identity, h.now()))
}

// authorize loads the room and checks membership for a join.
func (h *Hub) authorize(ctx context.Context, id Identity, roomID int64) (*store.Room, []store.Member, error) {
	room, err := h.rooms.GetRoomByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, ErrRoomNotFound
		}
		return nil, nil, err
	}

	member, err := h.rooms.IsMember(ctx, id.UserID, roomID)
	if err != nil {
		return nil, nil, err
	}
	if !member {
		return nil, nil, ErrAccessDenied
	}

	members, err := h.rooms.ListMembers(ctx, roomID)
	if err != nil {
		return nil, nil, err
	}
	return room, members, nil
}

func (h *Hub) reject(c *Client, err error, roomID int64) {
	switch {
	case errors.Is(err, ErrRoomNotFound):
		c.Deliver(ErrorEvent(ErrCodeRoomNotFound, "room not found"))
	case errors.Is(err, ErrAccessDenied):
		h.log.Debug().Str("conn_id", c.ID).Str("user", c.Identity.Username).Int64("room_id", roomID).Msg("join denied")
		c.Deliver(ErrorEvent(ErrCodeAccessDenied, "access denied"))
	default:
		h.storeFailure(c, err, "authorize join", roomID)
	}
}

func (h *Hub) storeFailure(c *Client, err error, op string, roomID int64) {
	h.log.Error().Err(err).Str("op", op).Str("conn_id", c.ID).Int64("user_id", c.Identity.UserID).Int64("room_id", roomID).Msg("store failure")
	c.Deliver(ErrorEvent(ErrCodeStoreFailure, "could not complete the request, please retry"))
}

// broadcast fans msg out to every local session in roomID and hands it to the relay.
func (h *Hub) broadcast(ctx context.Context, roomID int64, msg Message) {
	h.fanOut(&Event{Kind: EventRoomMessage, RoomID: roomID, Message: msg})

	if h.relay == nil {
		return
	}
	if err := h.relay.Publish(ctx, RelayEnvelope{Origin: h.nodeID, RoomID: roomID, Message: msg}); err != nil {
		h.log.Warn().Err(err).Int64("room_id", roomID).Msg("relay publish failed")
	}
}

func (h *Hub) fanOut(ev *Event) {
	roomID := ev.RoomID
	for _, s := range h.sessions.MembersOf(roomID) {
		if s.Client == nil {
			continue
		}
		if !s.Client.deliverRoomMessage(ev) {
			h.log.Warn().Str("conn_id", s.ConnID).Int64("room_id", roomID).Msg("dropped event for slow or departed client")
		}
	}
}

func (h *Hub) deliverRemote(env RelayEnvelope) {
	if env.Origin == h.nodeID {
		return
	}
	env.Message.RoomID = env.RoomID
	h.fanOut(&Event{Kind: EventRoomMessage, RoomID: env.RoomID, Message: env.Message, remote: true})
}

// History returns the full history of roomID for a member of that room.
func (h *Hub) History(ctx context.Context, id Identity, roomID int64) ([]Message, error) {
	if !id.Valid(h.now()) {
		return nil, ErrUnauthenticated
	}
	if _, err := h.rooms.GetRoomByID(ctx, roomID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}
	member, err := h.rooms.IsMember(ctx, id.UserID, roomID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, ErrAccessDenied
	}

	msgs, err := h.messages.AllMessages(ctx, roomID)
	if err != nil {
		return nil, err
	}
	return messagesFromStore(msgs), nil
}

// RoomInfo returns room metadata for a member of that room.
func (h *Hub) RoomInfo(ctx context.Context, id Identity, roomID int64) (*RoomInfo, error) {
	if !id.Valid(h.now()) {
		return nil, ErrUnauthenticated
	}
	room, members, err := h.authorize(ctx, id, roomID)
	if err != nil {
		return nil, err
	}
	return newRoomInfo(room, members), nil
}
