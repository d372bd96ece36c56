package core

import "sync"

// Client is a live connection as seen by the core layer. Events is its outbox;
// the transport drains it until it is closed.
type Client struct {
	ID       string
	Identity Identity
	Events   chan *Event

	mu      sync.Mutex
	closed  bool
	room    int64
	mark    int64 // highest persisted message id delivered as history
	joining bool
	pending []*Event
}

// NewClient constructs a client with an outbox of the given capacity.
func NewClient(id string, identity Identity, buffer int) *Client {
	if buffer <= 0 {
		buffer = 8
	}
	return &Client{
		ID:       id,
		Identity: identity,
		Events:   make(chan *Event, buffer),
	}
}

// Deliver enqueues an event addressed to this client only. Returns false if
// the client is closed or its outbox is full.
func (c *Client) Deliver(ev *Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sendLocked(ev)
}

// Room returns the room the client is currently in, or 0.
func (c *Client) Room() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.room
}

// Close marks the client closed and closes its outbox. Safe to call twice.
func (c *Client) Close() {
	c.shutdown()
}

// shutdown closes the outbox and reports whether this call did it.
func (c *Client) shutdown() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.closed = true
	c.room = 0
	c.pending = nil
	close(c.Events)
	return true
}

func (c *Client) sendLocked(ev *Event) bool {
	if c.closed {
		return false
	}
	select {
	case c.Events <- ev:
		return true
	default:
		// Drop if slow consumer.
		return false
	}
}

// beginJoin switches the client to room and starts holding live room messages
// until finishJoin has delivered the history.
func (c *Client) beginJoin(room int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.room = room
	c.mark = 0
	c.joining = true
	c.pending = c.pending[:0]
}

// finishJoin delivers room info and history, records the history mark and
// releases held live messages that history did not already cover.
func (c *Client) finishJoin(info *RoomInfo, history []Message) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if n := len(history); n > 0 {
		c.mark = history[n-1].ID
	}
	c.sendLocked(&Event{Kind: EventRoomInfo, RoomID: info.ID, Room: info})
	c.sendLocked(&Event{Kind: EventHistory, RoomID: info.ID, Messages: history})

	for _, ev := range c.pending {
		c.sendRoomMessageLocked(ev)
	}
	c.pending = nil
	c.joining = false
}

// abortJoin leaves the client roomless after a failed join.
func (c *Client) abortJoin() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.room = 0
	c.mark = 0
	c.joining = false
	c.pending = nil
}

// clearRoom forgets the current room after a leave.
func (c *Client) clearRoom() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.room = 0
	c.mark = 0
}

// deliverRoomMessage enqueues a live room message, holding it while a join is
// in flight and dropping it if it belongs to another room or was part of the
// history already sent. Relayed messages are never matched against history.
func (c *Client) deliverRoomMessage(ev *Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || ev.Message.RoomID != c.room {
		return false
	}
	if c.joining {
		if len(c.pending) >= cap(c.Events) {
			return false
		}
		c.pending = append(c.pending, ev)
		return true
	}
	return c.sendRoomMessageLocked(ev)
}

func (c *Client) sendRoomMessageLocked(ev *Event) bool {
	if !ev.remote && ev.Message.Persisted() && ev.Message.ID <= c.mark {
		return true
	}
	return c.sendLocked(ev)
}
