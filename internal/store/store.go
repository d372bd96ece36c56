//go:generate go run go.uber.org/mock/mockgen -source=store.go -destination=mocks/mock_store.go -package=mocks -exclude_interfaces=UserStore,RoomStore,Store
package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a user or room does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateName is returned when a unique name (room or username) is already taken.
	ErrDuplicateName = errors.New("duplicate name")
	// ErrEmptyRoomName is returned when a room name is blank after trimming.
	ErrEmptyRoomName = errors.New("empty room name")
	// ErrEmptyMessage is returned when message content is blank after trimming.
	ErrEmptyMessage = errors.New("empty message")
)

// User represents a user in the system.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// Room represents a chat room. Name is globally unique and the creator is always a member.
type Room struct {
	ID          int64
	Name        string
	CreatorID   int64
	CreatorName string
	CreatedAt   time.Time
}

// Member is a user holding a membership in a room.
type Member struct {
	UserID   int64
	Username string
	JoinedAt time.Time
}

// Message represents a persisted chat message. Username is a snapshot taken at send time.
type Message struct {
	ID        int64
	RoomID    int64
	UserID    int64
	Username  string
	Content   string
	CreatedAt time.Time
}

// UserStore handles user persistence.
type UserStore interface {
	// CreateUser creates a new user with hashed password.
	CreateUser(ctx context.Context, username, passwordHash string) (*User, error)

	// GetUserByID retrieves a user by ID.
	GetUserByID(ctx context.Context, id int64) (*User, error)

	// GetUserByUsername retrieves a user by username.
	GetUserByUsername(ctx context.Context, username string) (*User, error)
}

// RoomStore handles rooms and their membership.
type RoomStore interface {
	// CreateRoom creates a room and inserts the creator as its first member atomically.
	CreateRoom(ctx context.Context, name string, creatorID int64) (*Room, error)

	// GetRoomByID retrieves a room by ID.
	GetRoomByID(ctx context.Context, id int64) (*Room, error)

	// GetRoomByName retrieves a room by name.
	GetRoomByName(ctx context.Context, name string) (*Room, error)

	// ListRoomsForUser lists the rooms the user is a member of, ordered by name.
	ListRoomsForUser(ctx context.Context, userID int64) ([]*Room, error)

	// AddMember grants a user membership in a room. Adding an existing member is a no-op.
	AddMember(ctx context.Context, userID, roomID int64) error

	// IsMember checks if user is a member of the room.
	IsMember(ctx context.Context, userID, roomID int64) (bool, error)

	// ListMembers lists all members of a room in join order.
	ListMembers(ctx context.Context, roomID int64) ([]Member, error)
}

// MessageStore handles the append-only message log.
type MessageStore interface {
	// AppendMessage trims and persists a message, assigning its id and timestamp.
	AppendMessage(ctx context.Context, roomID, userID int64, username, content string) (*Message, error)

	// RecentMessages returns at most limit of the newest messages in chronological order.
	RecentMessages(ctx context.Context, roomID int64, limit int) ([]*Message, error)

	// AllMessages returns the full room history in chronological order.
	AllMessages(ctx context.Context, roomID int64) ([]*Message, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	UserStore
	RoomStore
	MessageStore

	// Close closes the underlying database connection.
	Close() error
}
