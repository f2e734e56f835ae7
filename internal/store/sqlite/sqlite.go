package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"
	"github.com/rbschat/gateway/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS rooms (
	id         TEXT PRIMARY KEY,
	creator    TEXT NOT NULL,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS messages (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	room_id   TEXT NOT NULL,
	username  TEXT NOT NULL,
	content   TEXT NOT NULL,
	timestamp TEXT NOT NULL,
	system    BOOLEAN NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_messages_room_ts ON messages(room_id, timestamp DESC);
`

// Timestamps are stored as RFC3339Nano UTC text so lexical order matches
// chronological order.
const tsLayout = time.RFC3339Nano

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLite store and applies the schema.
// dbPath is the path to the SQLite database file.
func New(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// NewWithSetup creates a new SQLite store and runs a setup function after the
// schema is applied. Useful for tests to seed data.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	s, err := New(dbPath)
	if err != nil {
		return nil, err
	}

	if setup != nil {
		if err := setup(s.db); err != nil {
			s.db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	return s, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ==== RoomStore implementation ====

// CreateRoom creates a room with the given creator. The primary key on the
// room ID makes the check-and-create a single atomic step; a concurrent
// duplicate insert surfaces as ErrRoomExists, never as an overwrite.
func (s *SQLiteStore) CreateRoom(ctx context.Context, roomID, creator string) (*store.Room, error) {
	createdAt := time.Now().UTC()
	query := `INSERT INTO rooms (id, creator, created_at) VALUES (?, ?, ?)`

	if _, err := s.db.ExecContext(ctx, query, roomID, creator, createdAt.Format(tsLayout)); err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey {
			return nil, store.ErrRoomExists
		}
		return nil, fmt.Errorf("insert room: %w", err)
	}

	return &store.Room{ID: roomID, Creator: creator, CreatedAt: createdAt}, nil
}

// GetRoom retrieves a room by ID.
func (s *SQLiteStore) GetRoom(ctx context.Context, roomID string) (*store.Room, error) {
	query := `SELECT id, creator, created_at FROM rooms WHERE id = ?`

	var room store.Room
	var createdAt string
	err := s.db.QueryRowContext(ctx, query, roomID).Scan(&room.ID, &room.Creator, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query room: %w", err)
	}

	if room.CreatedAt, err = time.Parse(tsLayout, createdAt); err != nil {
		return nil, fmt.Errorf("parse room created_at: %w", err)
	}

	return &room, nil
}

// ==== MessageStore implementation ====

// SaveMessage appends a message to the room's history.
func (s *SQLiteStore) SaveMessage(ctx context.Context, msg *store.Message) error {
	query := `
		INSERT INTO messages (room_id, username, content, timestamp, system)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		msg.RoomID, msg.Username, msg.Content, msg.Timestamp.UTC().Format(tsLayout), msg.System)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// RecentMessages returns up to limit of the newest messages in a room,
// oldest first.
func (s *SQLiteStore) RecentMessages(ctx context.Context, roomID string, limit int) ([]*store.Message, error) {
	query := `
		SELECT room_id, username, content, timestamp, system
		FROM messages
		WHERE room_id = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, roomID, limit)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var messages []*store.Message
	for rows.Next() {
		var msg store.Message
		var ts string
		if err := rows.Scan(&msg.RoomID, &msg.Username, &msg.Content, &ts, &msg.System); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		if msg.Timestamp, err = time.Parse(tsLayout, ts); err != nil {
			return nil, fmt.Errorf("parse message timestamp: %w", err)
		}
		messages = append(messages, &msg)
	}

	// Newest-first scan, reversed so callers replay oldest first.
	for i := range len(messages) / 2 {
		messages[i], messages[len(messages)-1-i] = messages[len(messages)-1-i], messages[i]
	}

	return messages, rows.Err()
}
