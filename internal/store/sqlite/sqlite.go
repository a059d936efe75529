// Package sqlite stores personas and transcripts in a local SQLite file.
package sqlite

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

type Store struct {
	db  *sql.DB
	now func() time.Time
}

// New opens dsn and applies migrations. Use ":memory:" for tests.
func New(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Each connection to an in-memory database sees its own empty schema.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &Store{db: db, now: time.Now}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS personas (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			type TEXT NOT NULL,
			specialty TEXT,
			voice_id TEXT NOT NULL,
			language TEXT NOT NULL,
			traits TEXT NOT NULL DEFAULT '[]',
			description TEXT NOT NULL DEFAULT '',
			is_active INTEGER NOT NULL DEFAULT 1,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_personas_lookup ON personas(is_active, type, language)`,
		`CREATE TABLE IF NOT EXISTS videos (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			topic TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			language TEXT NOT NULL,
			introduction TEXT NOT NULL,
			conclusion TEXT NOT NULL,
			interviewer TEXT NOT NULL,
			candidate TEXT NOT NULL,
			metadata TEXT,
			status TEXT NOT NULL,
			created_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_videos_created ON videos(created_at)`,
		`CREATE TABLE IF NOT EXISTS dialogues (
			id TEXT PRIMARY KEY,
			video_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			question_number INTEGER NOT NULL,
			role TEXT NOT NULL,
			text TEXT NOT NULL,
			FOREIGN KEY (video_id) REFERENCES videos(id) ON DELETE CASCADE
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_dialogues_video_seq ON dialogues(video_id, seq)`,
		`CREATE TABLE IF NOT EXISTS generation_requests (
			id TEXT PRIMARY KEY,
			topic TEXT NOT NULL,
			questions INTEGER NOT NULL,
			language TEXT NOT NULL,
			model TEXT,
			provider TEXT,
			status TEXT NOT NULL,
			video_id TEXT,
			error TEXT,
			phase TEXT,
			created_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_requests_created ON generation_requests(created_at)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
