// Package store is the content store: durable records for users, ideas,
// comments, likes and clicks on sqlite. Engagement counters live here and
// move only by relative deltas inside transactions; ranking and search code
// never writes them.
package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyLiked  = errors.New("store: already liked")
	ErrNotLiked      = errors.New("store: not liked")
	ErrEmailTaken    = errors.New("store: email already taken")
	ErrUsernameTaken = errors.New("store: username already taken")
)

const idSize = 16

type Store struct {
	db  *sql.DB
	log *zap.Logger

	mu       sync.RWMutex
	onChange func()
}

func Open(path string, log *zap.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db, log: log}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// OnChange registers fn to run after every successful mutation. The server
// uses it to re-query the feed and broadcast the new snapshot.
func (s *Store) OnChange(fn func()) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

func (s *Store) notify() {
	s.mu.RLock()
	fn := s.onChange
	s.mu.RUnlock()
	if fn != nil {
		fn()
	}
}

func (s *Store) Migrate(ctx context.Context) error {
	stmts := []string{
		`PRAGMA foreign_keys = ON;`,
		`CREATE TABLE IF NOT EXISTS users(
			id TEXT PRIMARY KEY,
			email TEXT UNIQUE NOT NULL,
			username TEXT UNIQUE NOT NULL,
			name TEXT NOT NULL,
			profession TEXT NOT NULL DEFAULT '',
			avatar_url TEXT NOT NULL DEFAULT '',
			password_hash TEXT NOT NULL,
			created_at DATETIME NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS ideas(
			id TEXT PRIMARY KEY,
			author_id TEXT NOT NULL REFERENCES users(id),
			headline TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			tags TEXT NOT NULL DEFAULT '[]',
			like_count INTEGER NOT NULL DEFAULT 0,
			comment_count INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS comments(
			id TEXT PRIMARY KEY,
			idea_id TEXT NOT NULL REFERENCES ideas(id) ON DELETE CASCADE,
			author_id TEXT NOT NULL REFERENCES users(id),
			content TEXT NOT NULL,
			created_at DATETIME NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS likes(
			user_id TEXT NOT NULL REFERENCES users(id),
			idea_id TEXT NOT NULL REFERENCES ideas(id) ON DELETE CASCADE,
			created_at DATETIME NOT NULL,
			PRIMARY KEY(user_id, idea_id)
		);`,
		`CREATE TABLE IF NOT EXISTS clicks(
			idea_id TEXT NOT NULL REFERENCES ideas(id) ON DELETE CASCADE,
			user_id TEXT NOT NULL REFERENCES users(id),
			created_at DATETIME NOT NULL,
			PRIMARY KEY(idea_id, user_id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_ideas_created ON ideas(created_at DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_comments_idea ON comments(idea_id, created_at);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
