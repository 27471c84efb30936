package flow

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/veazyhq/visaflow/internal/models"
)

func TestIsAffirmationToken(t *testing.T) {
	for _, token := range []string{"yes", "Y", " No ", "continue", "proceed", "start over"} {
		if !IsAffirmationToken(token) {
			t.Errorf("IsAffirmationToken(%q) = false, want true", token)
		}
	}
	for _, token := range []string{"maybe", "yes please continue my application", ""} {
		if IsAffirmationToken(token) {
			t.Errorf("IsAffirmationToken(%q) = true, want false", token)
		}
	}
}

func TestClassifyFullTaxonomy(t *testing.T) {
	cases := []struct {
		label string
		want  models.Intent
	}{
		{"greetings", models.IntentGreeting},
		{"general_enquiry", models.IntentGeneralEnquiry},
		{"visa_application", models.IntentStartApplication},
		{"document_submission", models.IntentDocumentSubmission},
		{"something_weird", models.IntentGeneralEnquiry},
	}
	for _, tc := range cases {
		mock := newScriptedGenAI(t, genAIReply{content: tc.label})
		r := NewIntentRouter(mock)
		state := models.NewApplicationState()
		if got := r.Classify(context.Background(), state, "hello"); got != tc.want {
			t.Errorf("Classify with label %q = %q, want %q", tc.label, got, tc.want)
		}
	}
}

func TestClassifyFailureDefaultsToEnquiry(t *testing.T) {
	mock := newScriptedGenAI(t, genAIReply{err: errors.New("api down")})
	r := NewIntentRouter(mock)
	state := models.NewApplicationState()

	if got := r.Classify(context.Background(), state, "what about fees?"); got != models.IntentGeneralEnquiry {
		t.Errorf("Classify on failure = %q, want general_enquiry", got)
	}
}

func TestClassifyPendingQuestionBinary(t *testing.T) {
	state := models.NewApplicationState()
	state.PendingQuestion = true
	state.AppendMessage(models.RoleAssistant, "What is your purpose of travel?")

	mock := newScriptedGenAI(t, genAIReply{content: "answer"})
	r := NewIntentRouter(mock)
	if got := r.Classify(context.Background(), state, "tourism"); got != models.IntentAnswer {
		t.Errorf("Classify pending reply = %q, want answer", got)
	}
	// The pending question's text is included as classification context.
	if len(mock.prompts) != 1 || !strings.Contains(mock.prompts[0], "What is your purpose of travel?") {
		t.Errorf("binary classification prompt missing pending question: %q", mock.prompts)
	}

	mock = newScriptedGenAI(t, genAIReply{content: "divert"})
	r = NewIntentRouter(mock)
	if got := r.Classify(context.Background(), state, "what documents are needed?"); got != models.IntentDivertToEnquiry {
		t.Errorf("Classify pending reply = %q, want divert_to_enquiry", got)
	}
}

func TestClassifyPendingFailureDefaultsToAnswer(t *testing.T) {
	state := models.NewApplicationState()
	state.PendingQuestion = true
	state.AppendMessage(models.RoleAssistant, "How many travelers?")

	mock := newScriptedGenAI(t, genAIReply{err: errors.New("api down")})
	r := NewIntentRouter(mock)
	if got := r.Classify(context.Background(), state, "2"); got != models.IntentAnswer {
		t.Errorf("Classify pending reply on failure = %q, want answer", got)
	}
}
