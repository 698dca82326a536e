package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/korjavin/backyardcard/models"
)

// DB handles all database operations
type DB struct {
	conn           *sql.DB
	totalQuestions int
}

// busyTimeoutMs is how long a writer waits for the sqlite lock
const busyTimeoutMs = 5000

// New opens the sqlite file, creating it and its tables if needed.
// totalQuestions is used for sessions that do not exist yet.
func New(dbPath string, totalQuestions int) (*DB, error) {
	if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite3", dsn(dbPath))
	if err != nil {
		return nil, err
	}
	// One connection queues concurrent visitor writes
	conn.SetMaxOpenConns(1)

	// Test the connection
	if err = conn.Ping(); err != nil {
		conn.Close()
		return nil, err
	}

	// Create tables if they don't exist
	if err = createTables(conn); err != nil {
		conn.Close()
		return nil, err
	}

	return &DB{conn: conn, totalQuestions: totalQuestions}, nil
}

func dsn(path string) string {
	return fmt.Sprintf("file:%s?_busy_timeout=%d&_journal_mode=WAL", path, busyTimeoutMs)
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping checks that the database is reachable
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

func createTables(conn *sql.DB) error {
	// Sessions are stored whole as JSON
	_, err := conn.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			data TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	// One row per answered question, kept across games for /stat
	_, err = conn.Exec(`
		CREATE TABLE IF NOT EXISTS answer_log (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			question TEXT NOT NULL,
			chosen TEXT NOT NULL,
			correct BOOLEAN NOT NULL,
			timestamp INTEGER NOT NULL
		)
	`)
	return err
}

// LoadSession returns the stored session or a fresh one on the landing screen
func (db *DB) LoadSession(ctx context.Context, id string) (*models.Session, error) {
	var data string
	err := db.conn.QueryRowContext(ctx, "SELECT data FROM sessions WHERE id = ?", id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return models.NewSession(db.totalQuestions), nil
	}
	if err != nil {
		return nil, err
	}

	var s models.Session
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	// Older rows may predate these fields
	if s.Asked == nil {
		s.Asked = make(map[string]bool)
	}
	if s.TotalQuestions <= 0 {
		s.TotalQuestions = db.totalQuestions
	}
	return &s, nil
}

// SaveSession stores the session under id
func (db *DB) SaveSession(ctx context.Context, id string, s *models.Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", id, err)
	}
	_, err = db.conn.ExecContext(ctx,
		"INSERT OR REPLACE INTO sessions (id, data, updated_at) VALUES (?, ?, ?)",
		id, string(data), time.Now().Unix(),
	)
	return err
}

// SaveAnswer appends an answered question to the log
func (db *DB) SaveAnswer(ctx context.Context, rec models.AnswerRecord) error {
	ts := rec.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err := db.conn.ExecContext(ctx,
		"INSERT INTO answer_log (session_id, question, chosen, correct, timestamp) VALUES (?, ?, ?, ?, ?)",
		rec.SessionID, rec.Question, rec.Chosen, rec.Correct, ts.Unix(),
	)
	return err
}

// GetSessionStats counts correct and incorrect answers over all games of a session
func (db *DB) GetSessionStats(ctx context.Context, id string) (correct int, incorrect int, err error) {
	err = db.conn.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM answer_log WHERE session_id = ? AND correct = 1", id,
	).Scan(&correct)
	if err != nil {
		return 0, 0, err
	}

	err = db.conn.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM answer_log WHERE session_id = ? AND correct = 0", id,
	).Scan(&incorrect)
	return correct, incorrect, err
}

// RecentAnswers returns the latest answers of a session, newest first
func (db *DB) RecentAnswers(ctx context.Context, id string, limit int) ([]models.AnswerRecord, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT question, chosen, correct, timestamp
		FROM answer_log
		WHERE session_id = ?
		ORDER BY id DESC
		LIMIT ?
	`, id, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	// Collect all results
	var result []models.AnswerRecord
	for rows.Next() {
		var rec models.AnswerRecord
		var ts int64
		if err := rows.Scan(&rec.Question, &rec.Chosen, &rec.Correct, &ts); err != nil {
			return nil, err
		}
		rec.SessionID = id
		rec.Timestamp = time.Unix(ts, 0)
		result = append(result, rec)
	}
	return result, rows.Err()
}
