package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bryantinsley/arena/client/pkg/chat"
	_ "modernc.org/sqlite"
)

const defaultListLimit = 50

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

var _ Repository = (*SQLiteStore)(nil)

// NewSQLite opens (and creates if needed) the history database at dbPath.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS exchanges (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		request_id TEXT,
		session_id TEXT NOT NULL,
		message TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		elapsed_ms INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_exchanges_session ON exchanges(session_id, created_at);

	CREATE TABLE IF NOT EXISTS answers (
		exchange_id INTEGER NOT NULL REFERENCES exchanges(id) ON DELETE CASCADE,
		slot INTEGER NOT NULL,
		column_id TEXT NOT NULL,
		agent_key TEXT NOT NULL,
		agent_name TEXT NOT NULL,
		state TEXT NOT NULL,
		text TEXT NOT NULL,
		processing_time_seconds REAL NOT NULL,
		cost_usd REAL NOT NULL,
		PRIMARY KEY (exchange_id, slot)
	);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Record stores a finished job and both of its outcomes.
func (s *SQLiteStore) Record(ctx context.Context, job chat.Job) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var requestID sql.NullString
	if job.RequestID != "" {
		requestID = sql.NullString{String: job.RequestID, Valid: true}
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO exchanges (request_id, session_id, message, created_at, elapsed_ms) VALUES (?, ?, ?, ?, ?)`,
		requestID, job.SessionID, job.Message, job.CreatedAt.UnixMilli(), job.Elapsed().Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("insert exchange: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("exchange id: %w", err)
	}

	for i, slot := range job.Slots {
		text := slot.Outcome.Content
		if slot.Outcome.State == chat.Failed {
			text = slot.Outcome.Reason
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO answers (exchange_id, slot, column_id, agent_key, agent_name, state, text, processing_time_seconds, cost_usd)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, i, string(slot.Column), slot.Agent.Key, slot.Agent.Label(), slot.Outcome.State.String(), text,
			slot.Outcome.Metadata.ProcessingTimeSeconds, slot.Outcome.Metadata.CostUSD,
		)
		if err != nil {
			return fmt.Errorf("insert answer: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// List returns exchanges newest first.
func (s *SQLiteStore) List(ctx context.Context, opts ListOptions) ([]Exchange, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	query := `SELECT id, request_id, session_id, message, created_at, elapsed_ms FROM exchanges`
	args := []any{}
	if opts.SessionID != "" {
		query += ` WHERE session_id = ?`
		args = append(args, opts.SessionID)
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query exchanges: %w", err)
	}

	var out []Exchange
	for rows.Next() {
		var ex Exchange
		var requestID sql.NullString
		var createdAt, elapsedMS int64
		if err := rows.Scan(&ex.ID, &requestID, &ex.SessionID, &ex.Message, &createdAt, &elapsedMS); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan exchange row: %w", err)
		}
		ex.RequestID = requestID.String
		ex.CreatedAt = time.UnixMilli(createdAt)
		ex.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		out = append(out, ex)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate exchanges: %w", err)
	}
	rows.Close()

	for i := range out {
		if err := s.loadAnswers(ctx, &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *SQLiteStore) loadAnswers(ctx context.Context, ex *Exchange) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT slot, column_id, agent_key, agent_name, state, text, processing_time_seconds, cost_usd
		 FROM answers WHERE exchange_id = ? ORDER BY slot`, ex.ID)
	if err != nil {
		return fmt.Errorf("query answers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var slot int
		var a Answer
		if err := rows.Scan(&slot, &a.Column, &a.AgentKey, &a.AgentName, &a.State, &a.Text, &a.ProcessingTimeSeconds, &a.CostUSD); err != nil {
			return fmt.Errorf("scan answer row: %w", err)
		}
		if slot >= 0 && slot < len(ex.Answers) {
			ex.Answers[slot] = a
		}
	}
	return rows.Err()
}
