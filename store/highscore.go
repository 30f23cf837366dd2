// Package store persists the high score and records played sessions.
package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

const appDir = "snekrush"

// DefaultDir is the per-user data directory, e.g. ~/.config/snekrush on Linux.
func DefaultDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	return filepath.Join(base, appDir), nil
}

// FileName is high_score.txt, or high_score_<mode>.txt for a named mode.
func FileName(mode string) string {
	mode = strings.TrimSpace(mode)
	if mode == "" {
		return "high_score.txt"
	}
	return "high_score_" + mode + ".txt"
}

// ValidMode reports whether mode is safe to embed in a file name.
func ValidMode(mode string) error {
	mode = strings.TrimSpace(mode)
	if strings.ContainsAny(mode, `/\`) || mode == "." || mode == ".." || strings.ContainsRune(mode, 0) {
		return fmt.Errorf("invalid mode %q: must not contain path separators", mode)
	}
	return nil
}

// FileHighScores keeps the score as a decimal integer in a text file.
type FileHighScores struct {
	mu   sync.Mutex
	path string
}

// NewFileHighScores creates dir if needed and seeds the file with 0 when it
// does not exist yet.
func NewFileHighScores(dir, mode string) (*FileHighScores, error) {
	if err := ValidMode(mode); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create high score dir: %w", err)
	}
	h := &FileHighScores{path: filepath.Join(dir, FileName(mode))}
	if _, err := os.Stat(h.path); errors.Is(err, fs.ErrNotExist) {
		if err := h.Save(0); err != nil {
			return nil, err
		}
	}
	return h, nil
}

func (h *FileHighScores) Path() string { return h.path }

func (h *FileHighScores) Load() (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	b, err := os.ReadFile(h.path)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read high score: %w", err)
	}
	s := strings.TrimSpace(string(b))
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("parse high score %q: %w", s, err)
	}
	return n, nil
}

// Save writes through a temp file and rename so a crash never leaves a
// truncated score behind.
func (h *FileHighScores) Save(score int) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	tmp, err := os.CreateTemp(filepath.Dir(h.path), ".high_score_*")
	if err != nil {
		return fmt.Errorf("create temp high score: %w", err)
	}
	if _, err := tmp.WriteString(strconv.Itoa(score) + "\n"); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write high score: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close high score: %w", err)
	}
	if err := os.Rename(tmp.Name(), h.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("rename high score: %w", err)
	}
	return nil
}

// MemoryHighScores keeps the score for the life of the process.
type MemoryHighScores struct {
	mu    sync.Mutex
	score int
}

func (m *MemoryHighScores) Load() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.score, nil
}

func (m *MemoryHighScores) Save(score int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.score = score
	return nil
}
