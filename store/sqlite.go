package store

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteHighScores stores one score per mode in a SQLite database, for setups
// where several frontends share a data directory.
type SQLiteHighScores struct {
	conn *sql.DB
	mu   sync.Mutex
	mode string
}

func NewSQLiteHighScores(dbPath, mode string) (*SQLiteHighScores, error) {
	conn, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	s := &SQLiteHighScores{conn: conn, mode: mode}
	if err := s.initSchema(); err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteHighScores) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS high_scores (
		mode TEXT PRIMARY KEY,
		score INTEGER NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.conn.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

func (s *SQLiteHighScores) Load() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var score int
	err := s.conn.QueryRow("SELECT score FROM high_scores WHERE mode = ?", s.mode).Scan(&score)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("query high score: %w", err)
	}
	return score, nil
}

func (s *SQLiteHighScores) Save(score int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.conn.Exec(`
		INSERT INTO high_scores (mode, score, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(mode) DO UPDATE SET score = excluded.score, updated_at = excluded.updated_at`,
		s.mode, score)
	if err != nil {
		return fmt.Errorf("save high score: %w", err)
	}
	return nil
}

func (s *SQLiteHighScores) Close() error {
	return s.conn.Close()
}
