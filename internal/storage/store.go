package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// ChannelRow represents a lobby channel in the database.
type ChannelRow struct {
	Name      string
	Status    string // "waiting", "playing"
	CreatedAt time.Time
}

// ScoreRow is one online high score.
type ScoreRow struct {
	Name      string
	Score     int
	CreatedAt time.Time
}

// Store handles SQLite persistence.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the database and runs migrations.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if path == ":memory:" {
		// every pooled connection would get its own empty database
		db.SetMaxOpenConns(1)
	}
	// WAL mode for better concurrent reads
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS channels (
			name       TEXT PRIMARY KEY,
			status     TEXT NOT NULL DEFAULT 'waiting',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE TABLE IF NOT EXISTS scores (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			name       TEXT NOT NULL,
			score      INTEGER NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS scores_by_score ON scores (score DESC, id);
	`)
	return err
}

// CreateChannel inserts a new channel.
func (s *Store) CreateChannel(name string) error {
	_, err := s.db.Exec("INSERT INTO channels (name, status) VALUES (?, 'waiting')", name)
	return err
}

// GetChannel retrieves a channel by name.
func (s *Store) GetChannel(name string) (*ChannelRow, error) {
	row := s.db.QueryRow("SELECT name, status, created_at FROM channels WHERE name = ?", name)
	var cr ChannelRow
	if err := row.Scan(&cr.Name, &cr.Status, &cr.CreatedAt); err != nil {
		return nil, err
	}
	return &cr, nil
}

// UpdateChannelStatus changes a channel's status.
func (s *Store) UpdateChannelStatus(name, status string) error {
	_, err := s.db.Exec("UPDATE channels SET status = ? WHERE name = ?", status, name)
	return err
}

// ListChannels returns all channels with the given status (or all if status is empty).
func (s *Store) ListChannels(status string) ([]ChannelRow, error) {
	var rows *sql.Rows
	var err error
	if status == "" {
		rows, err = s.db.Query("SELECT name, status, created_at FROM channels ORDER BY name")
	} else {
		rows, err = s.db.Query("SELECT name, status, created_at FROM channels WHERE status = ? ORDER BY name", status)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []ChannelRow
	for rows.Next() {
		var cr ChannelRow
		if err := rows.Scan(&cr.Name, &cr.Status, &cr.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, cr)
	}
	return result, rows.Err()
}

// DeleteChannel removes a channel.
func (s *Store) DeleteChannel(name string) error {
	_, err := s.db.Exec("DELETE FROM channels WHERE name = ?", name)
	return err
}

// AddScore records a finished game's score.
func (s *Store) AddScore(name string, score int) error {
	_, err := s.db.Exec("INSERT INTO scores (name, score) VALUES (?, ?)", name, score)
	return err
}

// TopScores returns the n best scores, highest first; earlier entries win ties.
func (s *Store) TopScores(n int) ([]ScoreRow, error) {
	rows, err := s.db.Query("SELECT name, score, created_at FROM scores ORDER BY score DESC, id LIMIT ?", n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []ScoreRow
	for rows.Next() {
		var sr ScoreRow
		if err := rows.Scan(&sr.Name, &sr.Score, &sr.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, sr)
	}
	return result, rows.Err()
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
