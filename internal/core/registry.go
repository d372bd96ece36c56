package core

import (
	"sort"
	"sync"
)

// Session ties a live connection to its user and current room.
type Session struct {
	ConnID   string
	UserID   int64
	Username string
	RoomID   int64 // 0 when the connection is in no room
	Client   *Client
}

// InRoom reports whether the session has a current room.
func (s Session) InRoom() bool {
	return s.RoomID != 0
}

// Registry is the process-wide map of live connections to sessions. Every
// operation is atomic; read-modify-write sequences are single calls.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]Session)}
}

// Put inserts or replaces the session for s.ConnID.
func (r *Registry) Put(s Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ConnID] = s
}

// Get returns the session for connID.
func (r *Registry) Get(connID string) (Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[connID]
	return s, ok
}

// UpdateRoom changes only the room of an existing session. Returns false if
// there is no session for connID.
func (r *Registry) UpdateRoom(connID string, roomID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[connID]
	if !ok {
		return false
	}
	s.RoomID = roomID
	r.sessions[connID] = s
	return true
}

// Remove deletes and returns the session for connID. Exactly one caller
// observes a given session.
func (r *Registry) Remove(connID string) (Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[connID]
	if ok {
		delete(r.sessions, connID)
	}
	return s, ok
}

// Leave removes the session for connID if it is currently in roomID
// (any room when roomID is 0).
func (r *Registry) Leave(connID string, roomID int64) (Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[connID]
	if !ok || !s.InRoom() || (roomID != 0 && s.RoomID != roomID) {
		return Session{}, false
	}
	delete(r.sessions, connID)
	return s, true
}

// MembersOf returns a snapshot of the sessions currently in roomID, ordered by connection id.
func (r *Registry) MembersOf(roomID int64) []Session {
	r.mu.RLock()
	members := make([]Session, 0)
	for _, s := range r.sessions {
		if roomID != 0 && s.RoomID == roomID {
			members = append(members, s)
		}
	}
	r.mu.RUnlock()

	sort.Slice(members, func(i, j int) bool { return members[i].ConnID < members[j].ConnID })
	return members
}

// Len returns the number of registered sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
