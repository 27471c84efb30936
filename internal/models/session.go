package models

import "time"

// SessionState is the persisted record for one conversation session.
// StateData holds serialized state keyed by DataKey; CurrentState mirrors the
// conversation phase for observability and inconsistency detection.
type SessionState struct {
	SessionID    string            `json:"session_id"`
	CurrentState string            `json:"current_state"`
	StateData    map[string]string `json:"state_data,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// Conversation phase constants stored in SessionState.CurrentState.
const (
	PhaseIdle           = "IDLE"
	PhaseCollecting     = "COLLECTING"
	PhaseResumeOffer    = "RESUME_OFFER"
	PhaseConfirmAbandon = "CONFIRM_ABANDON"
)

// DataKeys under which session data is persisted.
const (
	DataKeyApplicationState = "application_state"
)

// APIStatus represents the status of an API response.
type APIStatus string

const (
	APIStatusOK    APIStatus = "ok"
	APIStatusError APIStatus = "error"
)

// APIResponse is the envelope returned by every HTTP endpoint.
type APIResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Result  any    `json:"result,omitempty"`
}

// Success creates a successful API response with optional result data.
func Success(result any) APIResponse {
	return APIResponse{Status: string(APIStatusOK), Result: result}
}

// Error creates an error API response with a message.
func Error(message string) APIResponse {
	return APIResponse{Status: string(APIStatusError), Message: message}
}
