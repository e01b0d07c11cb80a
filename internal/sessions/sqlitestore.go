package sessions

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS sessions (
	id         TEXT PRIMARY KEY,
	updated_at INTEGER NOT NULL,
	meta       TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS messages (
	session_id TEXT NOT NULL REFERENCES sessions(id),
	seq        INTEGER NOT NULL,
	role       TEXT NOT NULL,
	content    TEXT NOT NULL,
	model      TEXT NOT NULL DEFAULT '',
	ts         INTEGER NOT NULL,
	PRIMARY KEY (session_id, seq)
);`

// SQLiteStore persists sessions in a single SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens (or creates) dir/sessions.db.
func OpenSQLiteStore(dir string) (*SQLiteStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create sessions dir: %w", err)
	}

	db, err := sql.Open("sqlite", filepath.Join(dir, "sessions.db"))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// modernc's driver serializes writers per connection; one connection keeps
	// appends ordered.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Shutdown closes the underlying database.
func (st *SQLiteStore) Shutdown() error {
	return st.db.Close()
}

func (st *SQLiteStore) Create() (*Session, error) {
	s := newSession()
	if err := st.UpdateMeta(s); err != nil {
		return nil, err
	}
	return s, nil
}

func (st *SQLiteStore) Get(id string) (*Session, error) {
	return st.get(st.db, id)
}

func (st *SQLiteStore) get(q querier, id string) (*Session, error) {
	var raw string
	err := q.QueryRow(`SELECT meta FROM sessions WHERE id = ?`, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("read meta: %w", err)
	}

	var s Session
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return nil, fmt.Errorf("unmarshal meta: %w", err)
	}
	return &s, nil
}

func (st *SQLiteStore) List() ([]*Session, error) {
	rows, err := st.db.Query(`SELECT meta FROM sessions ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var list []*Session
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		var s Session
		if err := json.Unmarshal([]byte(raw), &s); err != nil {
			continue // skip corrupted sessions
		}
		list = append(list, &s)
	}
	return list, rows.Err()
}

func (st *SQLiteStore) UpdateMeta(s *Session) error {
	return st.putMeta(st.db, s)
}

func (st *SQLiteStore) putMeta(q querier, s *Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal meta: %w", err)
	}
	_, err = q.Exec(
		`INSERT INTO sessions (id, updated_at, meta) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET updated_at = excluded.updated_at, meta = excluded.meta`,
		s.ID, s.UpdatedAt.UnixNano(), string(data),
	)
	if err != nil {
		return fmt.Errorf("write meta: %w", err)
	}
	return nil
}

func (st *SQLiteStore) Close(id string) error {
	s, err := st.Get(id)
	if err != nil {
		return err
	}
	s.Status = SessionClosed
	s.UpdatedAt = time.Now()
	return st.UpdateMeta(s)
}

// AppendMessages inserts msgs and updates meta in one transaction.
func (st *SQLiteStore) AppendMessages(sessionID string, msgs ...Message) error {
	if len(msgs) == 0 {
		return nil
	}

	tx, err := st.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	s, err := st.get(tx, sessionID)
	if err != nil {
		return err
	}

	for i, msg := range msgs {
		_, err := tx.Exec(
			`INSERT INTO messages (session_id, seq, role, content, model, ts) VALUES (?, ?, ?, ?, ?, ?)`,
			sessionID, s.MessageCount+i, msg.Role, msg.Content, msg.Model, msg.Ts.UnixNano(),
		)
		if err != nil {
			return fmt.Errorf("insert message: %w", err)
		}
	}

	if s.Title == "" && msgs[0].Role == "user" {
		s.Title = titleFrom(msgs[0].Content)
	}
	s.MessageCount += len(msgs)
	s.UpdatedAt = time.Now()
	if err := st.putMeta(tx, s); err != nil {
		return err
	}
	return tx.Commit()
}

func (st *SQLiteStore) LoadMessages(sessionID string) ([]Message, error) {
	rows, err := st.db.Query(
		`SELECT role, content, model, ts FROM messages WHERE session_id = ? ORDER BY seq`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var (
			msg Message
			ts  int64
		)
		if err := rows.Scan(&msg.Role, &msg.Content, &msg.Model, &ts); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msg.Ts = time.Unix(0, ts)
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	Exec(query string, args ...any) (sql.Result, error)
	QueryRow(query string, args ...any) *sql.Row
}

var (
	_ Store = (*FileStore)(nil)
	_ Store = (*SQLiteStore)(nil)
)
