// Package store persists reminders and tasks as JSON blobs in a local
// key-value table.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	log "log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const (
	remindersKey = "nextbot_reminders"
	tasksKey     = "nextbot_todos"
)

// Reminder is a scheduled one-shot notification. Immutable once created.
type Reminder struct {
	ID   string `json:"id"`
	Text string `json:"text"`
	Time int64  `json:"time"` // absolute instant, epoch milliseconds
}

// Task is a note/todo item, identified by its position in the list.
type Task struct {
	Text string `json:"text"`
	Done bool   `json:"done"`
}

// Store owns the persisted reminder and task collections.
type Store struct {
	db *sql.DB
}

// Open creates the backing database if needed and returns a ready Store.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	const schema = `CREATE TABLE IF NOT EXISTS kv (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create kv table: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Reminders loads the persisted reminder list. A missing or corrupt blob is
// an empty list, never an error.
func (s *Store) Reminders() []Reminder {
	blob, ok := s.get(remindersKey)
	if !ok {
		return nil
	}
	var out []Reminder
	if err := json.Unmarshal([]byte(blob), &out); err != nil {
		log.Warn("corrupt reminder blob, treating as empty", "err", err)
		return nil
	}
	return out
}

// SaveReminders replaces the persisted reminder list.
func (s *Store) SaveReminders(rems []Reminder) error {
	return s.put(remindersKey, rems)
}

// Tasks loads the persisted task list. A missing or corrupt blob is an
// empty list.
func (s *Store) Tasks() []Task {
	blob, ok := s.get(tasksKey)
	if !ok {
		return nil
	}
	var out []Task
	if err := json.Unmarshal([]byte(blob), &out); err != nil {
		log.Warn("corrupt task blob, treating as empty", "err", err)
		return nil
	}
	return out
}

// SaveTasks replaces the persisted task list.
func (s *Store) SaveTasks(tasks []Task) error {
	return s.put(tasksKey, tasks)
}

func (s *Store) get(key string) (string, bool) {
	var blob string
	err := s.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&blob)
	if err == sql.ErrNoRows {
		return "", false
	}
	if err != nil {
		log.Warn("kv read failed", "key", key, "err", err)
		return "", false
	}
	return blob, true
}

func (s *Store) put(key string, v any) error {
	blob, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	_, err = s.db.Exec(
		`INSERT INTO kv (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, string(blob))
	if err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}
