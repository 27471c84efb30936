// Package models defines the core data structures for Visaflow: the
// application slot state threaded through a conversation, the slot schema
// driving collection, intents, parsed documents, and API response types.
package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Intent is the closed set of message classifications the router can emit.
type Intent string

const (
	IntentGreeting           Intent = "greetings"
	IntentGeneralEnquiry     Intent = "general_enquiry"
	IntentStartApplication   Intent = "visa_application"
	IntentDocumentSubmission Intent = "document_submission"
	IntentAnswer             Intent = "answer"
	IntentDivertToEnquiry    Intent = "divert_to_enquiry"
)

// SlotType describes how a slot value is validated before it is merged.
type SlotType string

const (
	SlotTypeString  SlotType = "string"
	SlotTypeInteger SlotType = "integer"
)

// SlotSpec declares a single collectible slot: its name, value type, and the
// question asked when it is missing. Collection order follows the order of the
// declaring schema slice.
type SlotSpec struct {
	Name     string   `json:"name"`
	Type     SlotType `json:"type"`
	Question string   `json:"question"`
	Label    string   `json:"label"` // human-readable name used in summaries
}

// BasicSlots is the declared schema for the basic information stage. The
// slice order is the canonical ask order and the tie-break for which question
// comes first when several slots are missing.
var BasicSlots = []SlotSpec{
	{Name: "country", Type: SlotTypeString, Question: "Which country are you visiting?", Label: "country"},
	{Name: "purpose_of_travel", Type: SlotTypeString, Question: "What is your purpose of travel? (e.g., tourism, business, work, study, transit)", Label: "purpose of travel"},
	{Name: "number_of_travelers", Type: SlotTypeInteger, Question: "How many travelers?", Label: "number of travelers"},
	{Name: "travel_dates", Type: SlotTypeString, Question: "What are your travel dates?", Label: "travel dates"},
}

// ConversationMessage is one normalized turn of the conversation history.
// Transport adapters collapse whatever message shape they receive into this
// record before it reaches the core.
type ConversationMessage struct {
	Role      string    `json:"role"` // "user" or "assistant"
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ApplicationState is the full mutable record for one session: the partially
// filled slot set, the append-only document buckets, the control flags of the
// collection and resume flows, and the conversation history.
type ApplicationState struct {
	Fields map[string]string `json:"fields,omitempty"`

	// Append-only buckets, one record per processed document.
	PassportInfo      []map[string]any `json:"passport_info,omitempty"`
	AccommodationInfo []map[string]any `json:"accommodation_info,omitempty"`
	FinancialInfo     []map[string]any `json:"financial_info,omitempty"`
	DocumentUploads   []map[string]any `json:"document_uploads,omitempty"`

	CollectionInProgress bool `json:"collection_in_progress,omitempty"`
	PendingQuestion      bool `json:"pending_question,omitempty"`
	ConfirmationPending  bool `json:"confirmation_pending,omitempty"`
	ExtractionRetryCount int  `json:"extraction_retry_count,omitempty"`

	// IncompleteSnapshot holds a copy of Fields taken when the user was
	// diverted away from collection. Nil when no resume flow is outstanding.
	IncompleteSnapshot map[string]string `json:"incomplete_snapshot,omitempty"`

	History []ConversationMessage `json:"history,omitempty"`
}

// NewApplicationState creates an empty state for a fresh session.
func NewApplicationState() *ApplicationState {
	return &ApplicationState{Fields: make(map[string]string)}
}

// AppendMessage adds a message to the conversation history.
func (s *ApplicationState) AppendMessage(role, content string) {
	s.History = append(s.History, ConversationMessage{Role: role, Content: content, Timestamp: time.Now()})
}

// MissingSlots returns the names of schema slots that have no value yet, in
// declared schema order.
func (s *ApplicationState) MissingSlots(schema []SlotSpec) []string {
	var missing []string
	for _, spec := range schema {
		if s.Fields[spec.Name] == "" {
			missing = append(missing, spec.Name)
		}
	}
	return missing
}

// ResetCollection clears all collected data and control flags, preserving the
// conversation history. Used on confirmed abandonment and on unrecoverable
// extraction failure.
func (s *ApplicationState) ResetCollection() {
	s.Fields = make(map[string]string)
	s.PassportInfo = nil
	s.AccommodationInfo = nil
	s.FinancialInfo = nil
	s.DocumentUploads = nil
	s.CollectionInProgress = false
	s.PendingQuestion = false
	s.ConfirmationPending = false
	s.ExtractionRetryCount = 0
	s.IncompleteSnapshot = nil
}

// Validate checks internal consistency and returns a list of detected issues.
// Issues are not fatal; callers log them and continue with best-effort
// defaults.
func (s *ApplicationState) Validate() []string {
	var issues []string
	if s.CollectionInProgress && len(s.Fields) == 0 && s.IncompleteSnapshot == nil {
		issues = append(issues, "collection_in_progress set with no collected fields")
	}
	if s.ConfirmationPending && s.IncompleteSnapshot == nil {
		issues = append(issues, "confirmation_pending set without an incomplete snapshot")
	}
	if s.PendingQuestion && len(s.History) > 0 && s.History[len(s.History)-1].Role != RoleAssistant {
		issues = append(issues, "pending_question set but last message is not from the assistant")
	}
	return issues
}

// ToJSON serializes the state for persistence.
func (s *ApplicationState) ToJSON() (string, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("failed to marshal application state: %w", err)
	}
	return string(data), nil
}

// FromJSON deserializes persisted state.
func (s *ApplicationState) FromJSON(data string) error {
	if err := json.Unmarshal([]byte(data), s); err != nil {
		return fmt.Errorf("failed to unmarshal application state: %w", err)
	}
	if s.Fields == nil {
		s.Fields = make(map[string]string)
	}
	return nil
}

// NormalizeSlotValue validates a raw extracted value against the slot's
// declared type and returns the canonical stored form. Integer slots accept
// decimal digits only; anything else is rejected so a bad extraction never
// pollutes the slot set.
func NormalizeSlotValue(spec SlotSpec, raw string) (string, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return "", fmt.Errorf("empty value for slot %s", spec.Name)
	}
	if spec.Type == SlotTypeInteger {
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return "", fmt.Errorf("invalid integer value %q for slot %s", raw, spec.Name)
		}
		return strconv.Itoa(n), nil
	}
	return value, nil
}

// DocumentConfidence grades how certain the parser is about a document.
type DocumentConfidence string

const (
	ConfidenceHigh   DocumentConfidence = "high"
	ConfidenceMedium DocumentConfidence = "medium"
	ConfidenceLow    DocumentConfidence = "low"
)

// Document type constants recognized by the Document Router. Anything else
// lands in the generic uploads bucket.
const (
	DocumentTypePassport      = "passport"
	DocumentTypeHotelBooking  = "hotel_booking"
	DocumentTypeBankStatement = "bank_statement"
)

// ParsedDocument is the result of running one file through the document
// parsing collaborator.
type ParsedDocument struct {
	Type       string             `json:"document_type"`
	Fields     map[string]any     `json:"content"`
	Confidence DocumentConfidence `json:"confidence"`
	Summary    string             `json:"summary,omitempty"`
	FilePath   string             `json:"file_path,omitempty"`
}
