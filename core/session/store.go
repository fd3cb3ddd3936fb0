/*
SPDX-License-Identifier: Apache-2.0

Copyright 2024 The TrafficEye Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    https://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver
)

// ErrNotFound is returned for unknown or expired sessions.
var ErrNotFound = errors.New("session not found")

// Session is one signed-in browser.
type Session struct {
	ID        string
	UserID    string
	Username  string
	Email     string
	Role      string
	Token     string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// ChatEntry is one transcript line of the chatbot widget.
type ChatEntry struct {
	Role      string
	Content   string
	CreatedAt time.Time
}

// Store persists sessions in SQLite.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// OpenStore opens (or creates) the session database and runs migrations.
// The path ":memory:" keeps everything in memory.
func OpenStore(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating session directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening session database: %w", err)
	}
	// One connection so that ":memory:" is a single database
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to session database: %w", err)
	}

	s := &Store{db: db, now: time.Now}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	query := `
		CREATE TABLE IF NOT EXISTS sessions (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL,
			username   TEXT NOT NULL DEFAULT '',
			email      TEXT NOT NULL DEFAULT '',
			role       TEXT NOT NULL DEFAULT '',
			token      TEXT NOT NULL,
			created_at TEXT NOT NULL,
			expires_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_sessions_expires ON sessions(expires_at);

		CREATE TABLE IF NOT EXISTS chat_messages (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			role       TEXT NOT NULL CHECK(role IN ('user', 'assistant')),
			content    TEXT NOT NULL,
			created_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_chat_session ON chat_messages(session_id, id);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("creating session tables: %w", err)
	}
	return nil
}

// Create stores a new session with a random id.
func (s *Store) Create(ctx context.Context, sess *Session, ttl time.Duration) error {
	now := s.now().UTC()
	sess.ID = uuid.NewString()
	sess.CreatedAt = now
	sess.ExpiresAt = now.Add(ttl)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, user_id, username, email, role, token, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		sess.ID,
		sess.UserID,
		sess.Username,
		sess.Email,
		sess.Role,
		sess.Token,
		sess.CreatedAt.Format(time.RFC3339),
		sess.ExpiresAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting session: %w", err)
	}
	return nil
}

// Get returns a live session. Expired sessions are deleted and reported as
// ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (*Session, error) {
	var (
		sess               Session
		created, expiresAt string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, username, email, role, token, created_at, expires_at
		FROM sessions WHERE id = ?
	`, id).Scan(&sess.ID, &sess.UserID, &sess.Username, &sess.Email, &sess.Role, &sess.Token, &created, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying session: %w", err)
	}

	sess.CreatedAt, _ = time.Parse(time.RFC3339, created)
	sess.ExpiresAt, err = time.Parse(time.RFC3339, expiresAt)
	if err != nil || !s.now().Before(sess.ExpiresAt) {
		if err := s.Delete(ctx, id); err != nil {
			return nil, err
		}
		return nil, ErrNotFound
	}
	return &sess, nil
}

// Delete removes a session and its chat transcript.
func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM chat_messages WHERE session_id = ?`, id); err != nil {
		return fmt.Errorf("deleting chat transcript: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// DeleteExpired removes every expired session and returns how many were removed.
func (s *Store) DeleteExpired(ctx context.Context) (int64, error) {
	now := s.now().UTC().Format(time.RFC3339)
	if _, err := s.db.ExecContext(ctx, `
		DELETE FROM chat_messages WHERE session_id IN (SELECT id FROM sessions WHERE expires_at <= ?)
	`, now); err != nil {
		return 0, fmt.Errorf("deleting expired transcripts: %w", err)
	}
	result, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, now)
	if err != nil {
		return 0, fmt.Errorf("deleting expired sessions: %w", err)
	}
	return result.RowsAffected()
}

// AppendChat adds a transcript line and keeps only the newest limit lines.
func (s *Store) AppendChat(ctx context.Context, sessionID string, entry ChatEntry, limit int) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now().UTC()
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO chat_messages (session_id, role, content, created_at) VALUES (?, ?, ?, ?)
	`, sessionID, entry.Role, entry.Content, entry.CreatedAt.Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("inserting chat message: %w", err)
	}
	if limit > 0 {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM chat_messages
			WHERE session_id = ? AND id NOT IN (
				SELECT id FROM chat_messages WHERE session_id = ? ORDER BY id DESC LIMIT ?
			)
		`, sessionID, sessionID, limit); err != nil {
			return fmt.Errorf("trimming chat transcript: %w", err)
		}
	}
	return tx.Commit()
}

// ChatHistory returns the transcript of a session, oldest first.
func (s *Store) ChatHistory(ctx context.Context, sessionID string) ([]ChatEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT role, content, created_at FROM chat_messages
		WHERE session_id = ? ORDER BY id ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying chat transcript: %w", err)
	}
	defer rows.Close()

	var entries []ChatEntry
	for rows.Next() {
		var (
			e       ChatEntry
			created string
		)
		if err := rows.Scan(&e.Role, &e.Content, &created); err != nil {
			return nil, fmt.Errorf("scanning chat message: %w", err)
		}
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ClearChat removes the transcript of a session.
func (s *Store) ClearChat(ctx context.Context, sessionID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM chat_messages WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("clearing chat transcript: %w", err)
	}
	return nil
}
