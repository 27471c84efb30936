package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/veazyhq/visaflow/internal/models"
)

// scanSession scans a SessionState from a single sql.Row shared by the SQLite
// and Postgres backends (identical column order).
func scanSession(row *sql.Row) (*models.SessionState, error) {
	var session models.SessionState
	var stateJSON string
	err := row.Scan(&session.SessionID, &session.CurrentState, &stateJSON, &session.CreatedAt, &session.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if stateJSON != "" {
		if err := json.Unmarshal([]byte(stateJSON), &session.StateData); err != nil {
			return nil, fmt.Errorf("failed to unmarshal session state data: %w", err)
		}
	}
	if session.StateData == nil {
		session.StateData = make(map[string]string)
	}
	return &session, nil
}
