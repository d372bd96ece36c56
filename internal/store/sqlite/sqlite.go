package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/samber/lo/mutable"

	"github.com/vovakirdan/roomchat-server/internal/store"
)

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

var _ store.Store = (*SQLiteStore)(nil)

// New creates a new SQLite store and applies the schema.
// dbPath is the path to the SQLite database file.
func New(dbPath string) (*SQLiteStore, error) {
	return NewWithSetup(dbPath, nil)
}

// NewWithSetup creates a new SQLite store, applies the schema and then runs setup.
// Useful for tests to seed fixtures.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection; it also makes :memory: databases shared.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func migrate(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			username      TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS rooms (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			name       TEXT NOT NULL UNIQUE,
			creator_id INTEGER NOT NULL REFERENCES users(id),
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS room_members (
			room_id   INTEGER NOT NULL REFERENCES rooms(id),
			user_id   INTEGER NOT NULL REFERENCES users(id),
			joined_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (room_id, user_id)
		);`,
		// created_at holds unix nanoseconds; it never decreases within a room.
		`CREATE TABLE IF NOT EXISTS messages (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			room_id    INTEGER NOT NULL REFERENCES rooms(id),
			user_id    INTEGER NOT NULL REFERENCES users(id),
			username   TEXT NOT NULL,
			content    TEXT NOT NULL CHECK (length(content) > 0),
			created_at INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_messages_room_time ON messages(room_id, created_at, id);`,
		`CREATE INDEX IF NOT EXISTS idx_room_members_user ON room_members(user_id);`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}

// ==== UserStore implementation ====

// CreateUser creates a new user with hashed password.
func (s *SQLiteStore) CreateUser(ctx context.Context, username, passwordHash string) (*store.User, error) {
	query := `
		INSERT INTO users (username, password_hash)
		VALUES (?, ?)
	`
	result, err := s.db.ExecContext(ctx, query, username, passwordHash)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("user %q: %w", username, store.ErrDuplicateName)
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	return s.GetUserByID(ctx, id)
}

// GetUserByID retrieves a user by ID.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id int64) (*store.User, error) {
	query := `
		SELECT id, username, password_hash, created_at
		FROM users
		WHERE id = ?
	`
	return s.scanUser(s.db.QueryRowContext(ctx, query, id))
}

// GetUserByUsername retrieves a user by username.
func (s *SQLiteStore) GetUserByUsername(ctx context.Context, username string) (*store.User, error) {
	query := `
		SELECT id, username, password_hash, created_at
		FROM users
		WHERE username = ?
	`
	return s.scanUser(s.db.QueryRowContext(ctx, query, username))
}

func (s *SQLiteStore) scanUser(row *sql.Row) (*store.User, error) {
	var user store.User
	err := row.Scan(&user.ID, &user.Username, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user: %w", store.ErrNotFound)
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	return &user, nil
}

// ==== RoomStore implementation ====

const roomColumns = `r.id, r.name, r.creator_id, u.username, r.created_at`

// CreateRoom creates a room and adds the creator as a member in one transaction.
func (s *SQLiteStore) CreateRoom(ctx context.Context, name string, creatorID int64) (*store.Room, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, store.ErrEmptyRoomName
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() //nolint:errcheck // no-op after commit
	}()

	result, err := tx.ExecContext(ctx, `INSERT INTO rooms (name, creator_id) VALUES (?, ?)`, name, creatorID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("room %q: %w", name, store.ErrDuplicateName)
		}
		return nil, fmt.Errorf("insert room: %w", err)
	}

	roomID, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO room_members (room_id, user_id) VALUES (?, ?)`, roomID, creatorID); err != nil {
		return nil, fmt.Errorf("add creator to members: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	return s.GetRoomByID(ctx, roomID)
}

// GetRoomByID retrieves a room by ID.
func (s *SQLiteStore) GetRoomByID(ctx context.Context, id int64) (*store.Room, error) {
	query := `
		SELECT ` + roomColumns + `
		FROM rooms r
		JOIN users u ON u.id = r.creator_id
		WHERE r.id = ?
	`
	return scanRoom(s.db.QueryRowContext(ctx, query, id))
}

// GetRoomByName retrieves a room by name.
func (s *SQLiteStore) GetRoomByName(ctx context.Context, name string) (*store.Room, error) {
	query := `
		SELECT ` + roomColumns + `
		FROM rooms r
		JOIN users u ON u.id = r.creator_id
		WHERE r.name = ?
	`
	return scanRoom(s.db.QueryRowContext(ctx, query, strings.TrimSpace(name)))
}

func scanRoom(row *sql.Row) (*store.Room, error) {
	var room store.Room
	err := row.Scan(&room.ID, &room.Name, &room.CreatorID, &room.CreatorName, &room.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("room: %w", store.ErrNotFound)
		}
		return nil, fmt.Errorf("query room: %w", err)
	}
	return &room, nil
}

// ListRoomsForUser lists the rooms the user is a member of, ordered by name.
func (s *SQLiteStore) ListRoomsForUser(ctx context.Context, userID int64) ([]*store.Room, error) {
	query := `
		SELECT ` + roomColumns + `
		FROM rooms r
		JOIN room_members rm ON rm.room_id = r.id
		JOIN users u ON u.id = r.creator_id
		WHERE rm.user_id = ?
		ORDER BY r.name ASC
	`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query rooms: %w", err)
	}
	defer rows.Close()

	rooms := make([]*store.Room, 0)
	for rows.Next() {
		var room store.Room
		if err := rows.Scan(&room.ID, &room.Name, &room.CreatorID, &room.CreatorName, &room.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan room: %w", err)
		}
		rooms = append(rooms, &room)
	}

	return rooms, rows.Err()
}

// AddMember adds a user to a room.
func (s *SQLiteStore) AddMember(ctx context.Context, userID, roomID int64) error {
	query := `
		INSERT OR IGNORE INTO room_members (user_id, room_id)
		VALUES (?, ?)
	`
	_, err := s.db.ExecContext(ctx, query, userID, roomID)
	if err != nil {
		return fmt.Errorf("insert room member: %w", err)
	}

	return nil
}

// IsMember checks if user is a member of the room.
func (s *SQLiteStore) IsMember(ctx context.Context, userID, roomID int64) (bool, error) {
	query := `
		SELECT 1 FROM room_members
		WHERE user_id = ? AND room_id = ?
	`
	var exists int
	err := s.db.QueryRowContext(ctx, query, userID, roomID).Scan(&exists)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("query membership: %w", err)
	}

	return true, nil
}

// ListMembers lists all members of a room.
func (s *SQLiteStore) ListMembers(ctx context.Context, roomID int64) ([]store.Member, error) {
	query := `
		SELECT rm.user_id, u.username, rm.joined_at
		FROM room_members rm
		JOIN users u ON u.id = rm.user_id
		WHERE rm.room_id = ?
		ORDER BY rm.joined_at ASC, rm.rowid ASC
	`
	rows, err := s.db.QueryContext(ctx, query, roomID)
	if err != nil {
		return nil, fmt.Errorf("query members: %w", err)
	}
	defer rows.Close()

	var members []store.Member
	for rows.Next() {
		var m store.Member
		if err := rows.Scan(&m.UserID, &m.Username, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, m)
	}

	return members, rows.Err()
}

// ==== MessageStore implementation ====

// AppendMessage persists a message. The timestamp is clamped so it never goes
// below the newest message of the room, which keeps (created_at, id) order
// identical to id order.
func (s *SQLiteStore) AppendMessage(ctx context.Context, roomID, userID int64, username, content string) (*store.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, store.ErrEmptyMessage
	}

	query := `
		INSERT INTO messages (room_id, user_id, username, content, created_at)
		VALUES (?, ?, ?, ?, MAX(?, COALESCE((SELECT MAX(created_at) FROM messages WHERE room_id = ?), 0)))
		RETURNING id, created_at
	`
	msg := &store.Message{
		RoomID:   roomID,
		UserID:   userID,
		Username: username,
		Content:  content,
	}
	var createdAt int64
	err := s.db.QueryRowContext(ctx, query, roomID, userID, username, content, time.Now().UnixNano(), roomID).
		Scan(&msg.ID, &createdAt)
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}
	msg.CreatedAt = time.Unix(0, createdAt).UTC()

	return msg, nil
}

// RecentMessages reads the newest limit rows in descending order and reverses
// them, so the cost is bounded by limit rather than by the room's history.
func (s *SQLiteStore) RecentMessages(ctx context.Context, roomID int64, limit int) ([]*store.Message, error) {
	if limit <= 0 {
		return []*store.Message{}, nil
	}

	query := `
		SELECT id, room_id, user_id, username, content, created_at
		FROM messages
		WHERE room_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`
	messages, err := s.queryMessages(ctx, query, roomID, limit)
	if err != nil {
		return nil, err
	}

	mutable.Reverse(messages)
	return messages, nil
}

// AllMessages returns the full room history in chronological order.
func (s *SQLiteStore) AllMessages(ctx context.Context, roomID int64) ([]*store.Message, error) {
	query := `
		SELECT id, room_id, user_id, username, content, created_at
		FROM messages
		WHERE room_id = ?
		ORDER BY created_at ASC, id ASC
	`
	return s.queryMessages(ctx, query, roomID)
}

func (s *SQLiteStore) queryMessages(ctx context.Context, query string, args ...any) ([]*store.Message, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	messages := make([]*store.Message, 0)
	for rows.Next() {
		var msg store.Message
		var createdAt int64
		if err := rows.Scan(&msg.ID, &msg.RoomID, &msg.UserID, &msg.Username, &msg.Content, &createdAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msg.CreatedAt = time.Unix(0, createdAt).UTC()
		messages = append(messages, &msg)
	}

	return messages, rows.Err()
}
