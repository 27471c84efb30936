// Package flow implements the conversational intake flow: intent routing,
// multi-turn slot collection, resume/abandon resolution, enquiry answering,
// and document submission. Each user message is processed as one sequential
// turn against the session's application state.
package flow

import "context"

// StateManager defines the interface for managing per-session conversation
// state.
type StateManager interface {
	// GetCurrentState retrieves the current conversation phase for a session
	GetCurrentState(ctx context.Context, sessionID string) (string, error)

	// SetCurrentState updates the current conversation phase for a session
	SetCurrentState(ctx context.Context, sessionID, state string) error

	// GetStateData retrieves additional data associated with the session
	GetStateData(ctx context.Context, sessionID, key string) (string, error)

	// SetStateData stores additional data associated with the session
	SetStateData(ctx context.Context, sessionID, key, value string) error

	// ResetState removes all state data for a session
	ResetState(ctx context.Context, sessionID string) error
}
