package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	_ "github.com/lib/pq"

	"github.com/veazyhq/visaflow/internal/models"
)

// Database connection pool configuration constants.
const (
	DefaultMaxOpenConns    = 25
	DefaultMaxIdleConns    = 25
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres store based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("PostgresStore.NewPostgresStore: creating Postgres store", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}

	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		return nil, err
	}

	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied successfully")
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) GetSession(sessionID string) (*models.SessionState, error) {
	row := s.db.QueryRow(`SELECT session_id, current_state, state_data, created_at, updated_at FROM sessions WHERE session_id = $1`, sessionID)
	session, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetSession failed", "error", err, "sessionID", sessionID)
		return nil, fmt.Errorf("failed to get session %s: %w", sessionID, err)
	}
	return session, nil
}

func (s *PostgresStore) SaveSession(session models.SessionState) error {
	stateJSON, err := json.Marshal(session.StateData)
	if err != nil {
		return fmt.Errorf("failed to marshal session state data: %w", err)
	}
	_, err = s.db.Exec(`INSERT INTO sessions (session_id, current_state, state_data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (session_id) DO UPDATE SET current_state = EXCLUDED.current_state, state_data = EXCLUDED.state_data, updated_at = EXCLUDED.updated_at`,
		session.SessionID, session.CurrentState, string(stateJSON), session.CreatedAt, session.UpdatedAt)
	if err != nil {
		slog.Error("PostgresStore SaveSession failed", "error", err, "sessionID", session.SessionID)
		return fmt.Errorf("failed to save session %s: %w", session.SessionID, err)
	}
	slog.Debug("PostgresStore SaveSession succeeded", "sessionID", session.SessionID, "state", session.CurrentState)
	return nil
}

func (s *PostgresStore) DeleteSession(sessionID string) error {
	_, err := s.db.Exec(`DELETE FROM sessions WHERE session_id = $1`, sessionID)
	if err != nil {
		slog.Error("PostgresStore DeleteSession failed", "error", err, "sessionID", sessionID)
		return fmt.Errorf("failed to delete session %s: %w", sessionID, err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
