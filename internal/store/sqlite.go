package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/yourorg/asyncdoc/pkg/types"
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	s := &SQLiteStore{db: db}
	if err := s.Init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) Init() error {
	if _, err := s.db.Exec(`PRAGMA journal_mode=WAL;`); err != nil {
		return err
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			source TEXT NOT NULL,
			origin TEXT NOT NULL,
			message_count INTEGER NOT NULL DEFAULT 0,
			status TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			topic TEXT NOT NULL,
			payload TEXT NOT NULL,
			model_hint TEXT NOT NULL DEFAULT '',
			timestamp DATETIME NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) CreateSession(source, origin string) (*types.Session, error) {
	now := time.Now().UTC()
	id, err := s.nextSessionID(now)
	if err != nil {
		return nil, err
	}
	sess := &types.Session{ID: id, Source: source, Origin: origin, Status: "capturing", CreatedAt: now, UpdatedAt: now}
	_, err = s.db.Exec(`INSERT INTO sessions(id,source,origin,message_count,status,created_at,updated_at) VALUES(?,?,?,?,?,?,?)`,
		sess.ID, sess.Source, sess.Origin, sess.MessageCount, sess.Status, sess.CreatedAt, sess.UpdatedAt)
	return sess, err
}

func (s *SQLiteStore) nextSessionID(now time.Time) (string, error) {
	prefix := fmt.Sprintf("sess_%s_", now.Format("20060102"))
	rows, err := s.db.Query(`SELECT id FROM sessions WHERE id LIKE ?`, prefix+"%")
	if err != nil {
		return "", err
	}
	defer rows.Close()
	maxN := 0
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", err
		}
		var n int
		_, _ = fmt.Sscanf(id, prefix+"%03d", &n)
		if n > maxN {
			maxN = n
		}
	}
	return fmt.Sprintf("%s%03d", prefix, maxN+1), nil
}

func (s *SQLiteStore) GetSession(id string) (*types.Session, error) {
	row := s.db.QueryRow(`SELECT id,source,origin,message_count,status,created_at,updated_at FROM sessions WHERE id=?`, id)
	var out types.Session
	if err := row.Scan(&out.ID, &out.Source, &out.Origin, &out.MessageCount, &out.Status, &out.CreatedAt, &out.UpdatedAt); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *SQLiteStore) UpdateSessionStatus(id, status string) error {
	_, err := s.db.Exec(`UPDATE sessions SET status=?, updated_at=? WHERE id=?`, status, time.Now().UTC(), id)
	return err
}

func (s *SQLiteStore) ListSessions() ([]types.Session, error) {
	rows, err := s.db.Query(`SELECT id,source,origin,message_count,status,created_at,updated_at FROM sessions ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []types.Session
	for rows.Next() {
		var s1 types.Session
		if err := rows.Scan(&s1.ID, &s1.Source, &s1.Origin, &s1.MessageCount, &s1.Status, &s1.CreatedAt, &s1.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, s1)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) DeleteSession(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.Exec(`DELETE FROM messages WHERE session_id=?`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM sessions WHERE id=?`, id); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) SaveMessages(sessionID string, messages []types.StoredMessage) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	stmt, err := tx.Prepare(`INSERT INTO messages(session_id,seq,topic,payload,model_hint,timestamp) VALUES(?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, m := range messages {
		if _, err := stmt.Exec(sessionID, m.Seq, m.Topic, m.Payload, m.ModelHint, m.Timestamp); err != nil {
			return err
		}
	}
	if _, err := tx.Exec(`UPDATE sessions SET message_count=message_count+?, updated_at=? WHERE id=?`, len(messages), time.Now().UTC(), sessionID); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) GetMessages(sessionID string) ([]types.StoredMessage, error) {
	rows, err := s.db.Query(`SELECT id,session_id,seq,topic,payload,model_hint,timestamp FROM messages WHERE session_id=? ORDER BY seq ASC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]types.StoredMessage, 0)
	for rows.Next() {
		var m types.StoredMessage
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Seq, &m.Topic, &m.Payload, &m.ModelHint, &m.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return errors.New("store is nil")
	}
	return s.db.Close()
}
