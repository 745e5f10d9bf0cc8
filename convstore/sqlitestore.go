package convstore

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps all conversations in one SQLite database. A single
// writer connection plus WAL and a busy timeout stand in for the file
// store's save lock; concurrent flushes for different chats serialize inside
// the driver.
type SQLiteStore struct {
	db       *sql.DB
	ceilings Ceilings
}

func NewSQLiteStore(path string, ceilings Ceilings) (*SQLiteStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("convstore: empty sqlite path")
	}
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("convstore: open sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	const schema = `CREATE TABLE IF NOT EXISTS conversations (
	chat_id    TEXT PRIMARY KEY,
	turns      TEXT NOT NULL,
	updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))
)`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("convstore: migrate conversations: %w", err)
	}
	return &SQLiteStore{db: db, ceilings: ceilings}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Read(chatID string) ([]Turn, error) {
	if strings.TrimSpace(chatID) == "" {
		return nil, ErrEmptyChatID
	}
	var raw string
	err := s.db.QueryRow(`SELECT turns FROM conversations WHERE chat_id = ?`, chatID).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("convstore: read %s: %w", chatID, err)
	}
	var turns []Turn
	if err := json.Unmarshal([]byte(raw), &turns); err != nil {
		return nil, fmt.Errorf("convstore: decode %s: %w", chatID, err)
	}
	return turns, nil
}

func (s *SQLiteStore) Write(chatID string, turns []Turn) error {
	if strings.TrimSpace(chatID) == "" {
		return ErrEmptyChatID
	}
	pruned := Prune(turns, s.ceilings)
	if pruned == nil {
		pruned = []Turn{}
	}
	raw, err := json.Marshal(pruned)
	if err != nil {
		return fmt.Errorf("convstore: encode %s: %w", chatID, err)
	}
	_, err = s.db.Exec(`INSERT INTO conversations (chat_id, turns, updated_at)
VALUES (?, ?, strftime('%Y-%m-%dT%H:%M:%fZ','now'))
ON CONFLICT(chat_id) DO UPDATE SET
	turns = excluded.turns,
	updated_at = excluded.updated_at`, chatID, string(raw))
	if err != nil {
		return fmt.Errorf("convstore: write %s: %w", chatID, err)
	}
	return nil
}

func (s *SQLiteStore) Clear(chatID string) error {
	return s.Write(chatID, nil)
}
