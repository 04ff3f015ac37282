// Copyright (c) 2025 Lumen Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/lumenlabs/lumen-tui/internal/model"
	"github.com/lumenlabs/lumen-tui/internal/util"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	ErrNotFound = errors.New("not found")
)

// =============================================================================
// SCHEMA
// =============================================================================

const schema = `
CREATE TABLE IF NOT EXISTS conversations (
	id            TEXT PRIMARY KEY,
	title         TEXT NOT NULL,
	model         TEXT NOT NULL,
	message_count INTEGER NOT NULL,
	preview       TEXT NOT NULL,
	data          TEXT NOT NULL,
	created_at    TIMESTAMP NOT NULL,
	updated_at    TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_conversations_updated
	ON conversations(updated_at DESC);

CREATE TABLE IF NOT EXISTS files (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	mime_type  TEXT NOT NULL,
	data       BLOB NOT NULL,
	created_at TIMESTAMP NOT NULL
);
`

// =============================================================================
// STORE
// =============================================================================

// Meta describes a stored conversation for listing without loading its
// messages.
type Meta struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Model        string    `json:"model"`
	MessageCount int       `json:"message_count"`
	Preview      string    `json:"preview"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Store persists conversations and attachment blobs.
type Store struct {
	db *sql.DB
}

// DefaultPath returns the default database location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "lumen.db"
	}
	return filepath.Join(home, ".lumen", "lumen.db")
}

// Open opens (creating if necessary) the database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// WAL keeps readers unblocked while a save is in flight.
	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to configure database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// =============================================================================
// CONVERSATIONS
// =============================================================================

// SaveConversation inserts or replaces a conversation.
func (s *Store) SaveConversation(ctx context.Context, conv model.Conversation) error {
	data, err := json.Marshal(conv)
	if err != nil {
		return fmt.Errorf("failed to encode conversation: %w", err)
	}

	title := conv.Title
	if title == "" {
		title = conv.AutoTitle()
	}

	var preview string
	if idxs := conv.UserTurnIndices(); len(idxs) > 0 {
		preview = util.Preview(conv.Messages[idxs[0]].Text(), 80)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO conversations (id, title, model, message_count, preview, data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			model = excluded.model,
			message_count = excluded.message_count,
			preview = excluded.preview,
			data = excluded.data,
			updated_at = excluded.updated_at`,
		conv.ID, title, conv.Settings.Model, conv.TurnCount(), preview,
		string(data), conv.CreatedAt, conv.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save conversation: %w", err)
	}
	return nil
}

// LoadConversation loads a conversation by ID.
func (s *Store) LoadConversation(ctx context.Context, id string) (model.Conversation, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		"SELECT data FROM conversations WHERE id = ?", id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Conversation{}, fmt.Errorf("conversation %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.Conversation{}, fmt.Errorf("failed to load conversation: %w", err)
	}

	var conv model.Conversation
	if err := json.Unmarshal([]byte(raw), &conv); err != nil {
		return model.Conversation{}, fmt.Errorf("failed to decode conversation %s: %w", id, err)
	}
	return conv, nil
}

// ListConversations returns metadata for all conversations, most recently
// updated first.
func (s *Store) ListConversations(ctx context.Context) ([]Meta, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, model, message_count, preview, created_at, updated_at
		FROM conversations ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	return scanMetas(rows)
}

// SearchConversations returns conversations whose title or preview matches
// the query, most recently updated first.
func (s *Store) SearchConversations(ctx context.Context, query string) ([]Meta, error) {
	pattern := "%" + query + "%"
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, model, message_count, preview, created_at, updated_at
		FROM conversations
		WHERE title LIKE ? OR preview LIKE ?
		ORDER BY updated_at DESC`, pattern, pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to search conversations: %w", err)
	}
	defer rows.Close()

	return scanMetas(rows)
}

// DeleteConversation removes a conversation by ID.
func (s *Store) DeleteConversation(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM conversations WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("conversation %s: %w", id, ErrNotFound)
	}
	return nil
}

func scanMetas(rows *sql.Rows) ([]Meta, error) {
	var out []Meta
	for rows.Next() {
		var m Meta
		if err := rows.Scan(&m.ID, &m.Title, &m.Model, &m.MessageCount,
			&m.Preview, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan conversation row: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// =============================================================================
// FILES
// =============================================================================

// SaveFile stores an attachment payload and returns its ID.
func (s *Store) SaveFile(ctx context.Context, name, mimeType string, data []byte) (string, error) {
	id := "file_" + uuid.NewString()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO files (id, name, mime_type, data, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		id, name, mimeType, data, time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("failed to save file: %w", err)
	}
	return id, nil
}

// GetFile retrieves an attachment payload and its MIME type by ID.
func (s *Store) GetFile(ctx context.Context, id string) ([]byte, string, error) {
	var data []byte
	var mimeType string
	err := s.db.QueryRowContext(ctx,
		"SELECT data, mime_type FROM files WHERE id = ?", id).Scan(&data, &mimeType)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", fmt.Errorf("file %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to load file: %w", err)
	}
	return data, mimeType, nil
}
