// Package sqlite implements the repository interfaces on an embedded
// SQLite database via database/sql. modernc.org/sqlite is a pure Go
// driver, so no C toolchain is needed and ":memory:" databases keep the
// tests hermetic.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	// Side-effect import: registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB pool and implements repository.ProfileRepository,
// repository.TokenRepository, and repository.ChatRepository.
type DB struct {
	conn *sql.DB
}

// New opens (or creates) the database at dbPath and runs migrations.
// Use ":memory:" for a throwaway in-memory database.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL allows concurrent reads while a write is in flight. Foreign
	// keys are off by default in SQLite; the schema relies on them for
	// cascade deletes and the owner SET NULL.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}
	return db, nil
}

// Close closes the connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Profiles returns the profile repository view of this database.
func (db *DB) Profiles() *ProfileDB {
	return &ProfileDB{db: db}
}

// Tokens returns the token repository view of this database.
func (db *DB) Tokens() *TokenDB {
	return &TokenDB{db: db}
}

// Chats returns the chat repository view of this database.
func (db *DB) Chats() *ChatDB {
	return &ChatDB{db: db}
}

// Ping verifies the database is reachable. Used by the health endpoint.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

func (db *DB) migrate() error {
	// COLLATE NOCASE on username/email gives the case-insensitive
	// uniqueness and lookups the login/recovery flows rely on.
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS profiles (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			username        TEXT NOT NULL UNIQUE COLLATE NOCASE,
			email           TEXT NOT NULL UNIQUE COLLATE NOCASE,
			password_hash   TEXT NOT NULL,
			avatar_url      TEXT NOT NULL DEFAULT '',
			email_confirmed INTEGER NOT NULL DEFAULT 0,
			date_joined     DATETIME NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("creating profiles table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS privacy_settings (
			profile_id       INTEGER PRIMARY KEY REFERENCES profiles(id) ON DELETE CASCADE,
			show_username    INTEGER NOT NULL DEFAULT 0,
			show_email       INTEGER NOT NULL DEFAULT 0,
			show_date_joined INTEGER NOT NULL DEFAULT 0
		);
	`)
	if err != nil {
		return fmt.Errorf("creating privacy_settings table: %w", err)
	}

	// One table for both token kinds; existence of a row is workflow
	// state, so (profile_id, kind) is unique.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS tokens (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			profile_id INTEGER NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
			kind       TEXT NOT NULL,
			value      TEXT NOT NULL UNIQUE,
			created_at DATETIME NOT NULL,
			expires_at DATETIME NOT NULL,
			UNIQUE (profile_id, kind)
		);
		CREATE INDEX IF NOT EXISTS idx_tokens_value ON tokens(value);
	`)
	if err != nil {
		return fmt.Errorf("creating tokens table: %w", err)
	}

	// Member/moderator id lists are JSON text; SQLite has no array type.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS chats (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			owner_id    INTEGER REFERENCES profiles(id) ON DELETE SET NULL,
			label       TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			name        TEXT NOT NULL UNIQUE,
			avatar_url  TEXT NOT NULL DEFAULT '',
			moderators  TEXT NOT NULL DEFAULT '[]',
			members     TEXT NOT NULL DEFAULT '[]',
			created_at  DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_chats_owner_id ON chats(owner_id);
	`)
	if err != nil {
		return fmt.Errorf("creating chats table: %w", err)
	}

	return nil
}

// inTx runs fn inside a transaction, committing on nil and rolling back
// on error. The workflow transitions (register, confirm, recover) use it
// so their multi-row sequences are single units.
func (db *DB) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("sqlite: rolling back after %w: %v", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing transaction: %w", err)
	}
	return nil
}
