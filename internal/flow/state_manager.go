package flow

import (
	"context"
	"log/slog"
	"time"

	"github.com/veazyhq/visaflow/internal/models"
	"github.com/veazyhq/visaflow/internal/store"
)

// StoreBasedStateManager implements StateManager using a Store backend.
type StoreBasedStateManager struct {
	store store.Store
}

// NewStoreBasedStateManager creates a new StateManager backed by a Store.
func NewStoreBasedStateManager(st store.Store) *StoreBasedStateManager {
	slog.Debug("Creating StoreBasedStateManager")
	return &StoreBasedStateManager{store: st}
}

// GetCurrentState retrieves the current conversation phase for a session.
func (sm *StoreBasedStateManager) GetCurrentState(ctx context.Context, sessionID string) (string, error) {
	session, err := sm.store.GetSession(sessionID)
	if err != nil {
		slog.Error("StateManager GetCurrentState error", "error", err, "sessionID", sessionID)
		return "", err
	}
	if session == nil {
		slog.Debug("StateManager GetCurrentState not found", "sessionID", sessionID)
		return "", nil
	}
	return session.CurrentState, nil
}

// SetCurrentState updates the current conversation phase for a session.
func (sm *StoreBasedStateManager) SetCurrentState(ctx context.Context, sessionID, state string) error {
	slog.Debug("StateManager SetCurrentState", "sessionID", sessionID, "state", state)

	session, err := sm.store.GetSession(sessionID)
	if err != nil {
		slog.Error("StateManager SetCurrentState get error", "error", err, "sessionID", sessionID)
		return err
	}

	now := time.Now()
	if session == nil {
		session = &models.SessionState{
			SessionID:    sessionID,
			CurrentState: state,
			StateData:    make(map[string]string),
			CreatedAt:    now,
			UpdatedAt:    now,
		}
	} else {
		session.CurrentState = state
		session.UpdatedAt = now
	}

	if err := sm.store.SaveSession(*session); err != nil {
		slog.Error("StateManager SetCurrentState save error", "error", err, "sessionID", sessionID, "state", state)
		return err
	}
	return nil
}

// GetStateData retrieves additional data associated with the session.
func (sm *StoreBasedStateManager) GetStateData(ctx context.Context, sessionID, key string) (string, error) {
	session, err := sm.store.GetSession(sessionID)
	if err != nil {
		slog.Error("StateManager GetStateData error", "error", err, "sessionID", sessionID, "key", key)
		return "", err
	}
	if session == nil || session.StateData == nil {
		slog.Debug("StateManager GetStateData not found", "sessionID", sessionID, "key", key)
		return "", nil
	}
	return session.StateData[key], nil
}

// SetStateData stores additional data associated with the session.
func (sm *StoreBasedStateManager) SetStateData(ctx context.Context, sessionID, key, value string) error {
	slog.Debug("StateManager SetStateData", "sessionID", sessionID, "key", key)

	session, err := sm.store.GetSession(sessionID)
	if err != nil {
		slog.Error("StateManager SetStateData get error", "error", err, "sessionID", sessionID, "key", key)
		return err
	}

	now := time.Now()
	if session == nil {
		session = &models.SessionState{
			SessionID:    sessionID,
			CurrentState: models.PhaseIdle,
			StateData:    map[string]string{key: value},
			CreatedAt:    now,
			UpdatedAt:    now,
		}
	} else {
		if session.StateData == nil {
			session.StateData = make(map[string]string)
		}
		session.StateData[key] = value
		session.UpdatedAt = now
	}

	if err := sm.store.SaveSession(*session); err != nil {
		slog.Error("StateManager SetStateData save error", "error", err, "sessionID", sessionID, "key", key)
		return err
	}
	return nil
}

// ResetState removes all state data for a session.
func (sm *StoreBasedStateManager) ResetState(ctx context.Context, sessionID string) error {
	slog.Debug("StateManager ResetState", "sessionID", sessionID)
	if err := sm.store.DeleteSession(sessionID); err != nil {
		slog.Error("StateManager ResetState error", "error", err, "sessionID", sessionID)
		return err
	}
	return nil
}

// loadApplicationState retrieves and deserializes the session's application
// state, returning a fresh empty state when none has been persisted yet.
func loadApplicationState(ctx context.Context, sm StateManager, sessionID string) (*models.ApplicationState, error) {
	data, err := sm.GetStateData(ctx, sessionID, models.DataKeyApplicationState)
	if err != nil {
		return nil, err
	}
	state := models.NewApplicationState()
	if data == "" {
		return state, nil
	}
	if err := state.FromJSON(data); err != nil {
		slog.Error("loadApplicationState: corrupt persisted state, starting fresh", "error", err, "sessionID", sessionID)
		return models.NewApplicationState(), nil
	}
	return state, nil
}

// saveApplicationState serializes and persists the session's application state.
func saveApplicationState(ctx context.Context, sm StateManager, sessionID string, state *models.ApplicationState) error {
	data, err := state.ToJSON()
	if err != nil {
		return err
	}
	return sm.SetStateData(ctx, sessionID, models.DataKeyApplicationState, data)
}
