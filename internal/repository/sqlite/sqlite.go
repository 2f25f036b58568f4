// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// The four tables mirror the hosted backend the app was designed against:
//
//	identities  authenticated accounts (email/password or GitHub)
//	users       public profiles, keyed by the identity id
//	lives       live events, owned by a user
//	follows     directed follower to following edges
//
// modernc.org/sqlite is a pure Go translation of SQLite, so no C toolchain is
// needed. Use ":memory:" as the path for tests.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// DB wraps a sql.DB connection pool. Each table is reached through its own
// store (Profiles, Lives, Follows, Identities) so that method names stay short.
type DB struct {
	conn *sql.DB
}

// New opens the database at dbPath, applies pragmas and runs migrations.
//
// sql.Open does not connect; Ping forces the first connection so that a bad
// path surfaces here instead of on the first query.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// An in-memory database lives and dies with its connection. A single
	// connection keeps every query on the same database.
	if dbPath == ":memory:" {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL lets readers proceed while a write is in progress.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Foreign keys are OFF by default in SQLite.
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

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping reports whether the database is reachable.
func (db *DB) Ping() error {
	return db.conn.Ping()
}

func (db *DB) Profiles() *ProfileDB    { return &ProfileDB{conn: db.conn} }
func (db *DB) Lives() *LiveDB          { return &LiveDB{conn: db.conn} }
func (db *DB) Follows() *FollowDB      { return &FollowDB{conn: db.conn} }
func (db *DB) Identities() *IdentityDB { return &IdentityDB{conn: db.conn} }

// migrate creates every table. CREATE TABLE IF NOT EXISTS keeps it safe to
// run on each start.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS identities (
			id            TEXT PRIMARY KEY,
			email         TEXT NOT NULL DEFAULT '',
			password_hash TEXT NOT NULL DEFAULT '',
			provider      TEXT NOT NULL,
			subject       TEXT NOT NULL DEFAULT '',
			created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_identities_email
			ON identities(email) WHERE email <> '';
		CREATE UNIQUE INDEX IF NOT EXISTS idx_identities_subject
			ON identities(provider, subject) WHERE subject <> '';
	`)
	if err != nil {
		return fmt.Errorf("creating identities table: %w", err)
	}

	// user_id is the public handle. The internal key is id.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id             TEXT PRIMARY KEY,
			user_id        TEXT NOT NULL UNIQUE,
			name           TEXT NOT NULL,
			bio            TEXT NOT NULL DEFAULT '',
			link           TEXT NOT NULL DEFAULT '',
			avatar_url     TEXT NOT NULL DEFAULT '',
			gallery_images TEXT NOT NULL DEFAULT '[]',
			social_links   TEXT NOT NULL DEFAULT '{}',
			created_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS lives (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			title      TEXT NOT NULL,
			date       TEXT NOT NULL,
			time       TEXT NOT NULL DEFAULT '',
			venue      TEXT NOT NULL,
			artist     TEXT NOT NULL DEFAULT '',
			link       TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_lives_user_date ON lives(user_id, date);
	`)
	if err != nil {
		return fmt.Errorf("creating lives table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS follows (
			id           TEXT PRIMARY KEY,
			follower_id  TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			following_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (follower_id, following_id)
		);
		CREATE INDEX IF NOT EXISTS idx_follows_following ON follows(following_id);
	`)
	if err != nil {
		return fmt.Errorf("creating follows table: %w", err)
	}

	return nil
}

// isUniqueViolation reports whether err is a UNIQUE or PRIMARY KEY
// constraint failure.
func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	switch sqliteErr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	}
	return false
}

// isForeignKeyViolation reports whether err is a FOREIGN KEY constraint failure.
func isForeignKeyViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY
}
