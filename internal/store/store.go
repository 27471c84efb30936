// Package store provides session persistence backends for Visaflow.
//
// It includes an in-memory store for tests and SQLite, PostgreSQL, and Redis
// backed stores for deployment.
package store

import (
	"strings"
	"sync"

	"github.com/veazyhq/visaflow/internal/models"
)

// DetectDSNType classifies a DSN string by backend: "postgres", "redis", or
// "sqlite" (file paths).
func DetectDSNType(dsn string) string {
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"), strings.Contains(dsn, "host="):
		return "postgres"
	case strings.HasPrefix(dsn, "redis://"), strings.HasPrefix(dsn, "rediss://"):
		return "redis"
	default:
		return "sqlite"
	}
}

// Store defines the session persistence interface consumed by the flow layer.
type Store interface {
	// GetSession retrieves a session by id; returns nil with no error when
	// the session does not exist.
	GetSession(sessionID string) (*models.SessionState, error)

	// SaveSession creates or replaces a session record.
	SaveSession(session models.SessionState) error

	// DeleteSession removes a session; deleting an absent session is not an
	// error.
	DeleteSession(sessionID string) error

	// Close releases backend resources.
	Close() error
}

// Opts holds configuration options for store backends.
type Opts struct {
	DSN string
}

// Option defines a configuration option for store backends.
type Option func(*Opts)

// WithDSN sets the backend connection string (file path for SQLite,
// connection URL for Postgres/Redis).
func WithDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// InMemoryStore is a simple map-backed store used in tests and CLI runs.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]models.SessionState
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[string]models.SessionState)}
}

func (s *InMemoryStore) GetSession(sessionID string) (*models.SessionState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	copied := session
	copied.StateData = make(map[string]string, len(session.StateData))
	for k, v := range session.StateData {
		copied.StateData[k] = v
	}
	return &copied, nil
}

func (s *InMemoryStore) SaveSession(session models.SessionState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.SessionID] = session
	return nil
}

func (s *InMemoryStore) DeleteSession(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

func (s *InMemoryStore) Close() error {
	return nil
}
