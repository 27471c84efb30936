package flow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/veazyhq/visaflow/internal/genai"
	"github.com/veazyhq/visaflow/internal/models"
)

// Resume decision categories emitted by the reply classifier.
const (
	decisionResume         = "RESUME"
	decisionDecline        = "DECLINE"
	decisionConfirmedQuit  = "CONFIRMED_QUIT"
	decisionWantToContinue = "WANT_TO_CONTINUE"
	decisionUnclear        = "UNCLEAR"
)

const (
	msgResumeUnclear    = "Please say 'yes' to continue your visa application or 'no' to quit."
	msgConfirmUnclear   = "Please say 'yes' to quit your application or 'no' to continue with your visa."
	msgApplicationQuit  = "No problem! Your visa application has been cancelled. Feel free to start a new application or ask any visa-related questions."
	msgResumeContinuing = "Great! Let's continue with your visa application."
)

// ResumeResolver is the two-state confirmation machine deciding whether an
// interrupted collection continues or is abandoned. Offering asks
// continue-or-quit; ConfirmingAbandon demands an explicit confirmation before
// anything is deleted.
type ResumeResolver struct {
	genAI  genai.ClientInterface
	schema []models.SlotSpec
}

// NewResumeResolver creates a ResumeResolver over the given slot schema.
func NewResumeResolver(genAI genai.ClientInterface, schema []models.SlotSpec) *ResumeResolver {
	return &ResumeResolver{genAI: genAI, schema: schema}
}

// Offer builds the resume offer appended after an enquiry answered
// mid-collection, listing what is still missing.
func (r *ResumeResolver) Offer(state *models.ApplicationState) string {
	missing := r.missingLabels(state.IncompleteSnapshot)
	msg := "I answered your question! Would you like to continue with your visa application? "
	if len(missing) > 0 {
		msg += fmt.Sprintf("I still need: %s.", strings.Join(missing, ", "))
	} else {
		msg += "I have all the basic information."
	}
	return msg + "\n\nType 'yes' to continue or 'no' to quit."
}

// Resolve processes one user reply while a resume decision is outstanding.
// The classification context depends on which question was asked last.
func (r *ResumeResolver) Resolve(ctx context.Context, state *models.ApplicationState, userText string) (reply string, resumed bool) {
	decision := r.classify(ctx, state, userText)
	slog.Debug("Resolver.Resolve: classified reply", "decision", decision, "confirming", state.ConfirmationPending)

	if state.ConfirmationPending {
		switch decision {
		case decisionConfirmedQuit:
			state.ResetCollection()
			return msgApplicationQuit, false
		case decisionWantToContinue, decisionResume:
			return r.restore(state), true
		default:
			// At this prompt "no" means keep going, so a DECLINE reading is
			// ambiguous. Only an explicit confirmation deletes progress.
			return msgConfirmUnclear, false
		}
	}

	switch decision {
	case decisionResume, decisionWantToContinue:
		return r.restore(state), true
	case decisionDecline, decisionConfirmedQuit:
		state.ConfirmationPending = true
		return fmt.Sprintf("Are you sure you want to quit your visa application? You'll lose your progress (%s). Type 'yes' to quit or 'no' to continue.", r.progressSummary(state.IncompleteSnapshot)), false
	default:
		return msgResumeUnclear, false
	}
}

// restore merges the snapshot back into the active fields (fill-absent, so a
// second restore with the snapshot already cleared is a no-op), clears the
// snapshot, and reactivates collection.
func (r *ResumeResolver) restore(state *models.ApplicationState) string {
	MergeFields(state.Fields, state.IncompleteSnapshot)
	state.IncompleteSnapshot = nil
	state.ConfirmationPending = false
	state.CollectionInProgress = true
	return msgResumeContinuing
}

// classify asks the language service which resume decision the reply
// expresses. Failure is treated as UNCLEAR so the question is re-asked.
func (r *ResumeResolver) classify(ctx context.Context, state *models.ApplicationState, userText string) string {
	situation := "I asked the user if they want to continue their visa application"
	if state.ConfirmationPending {
		situation = "I asked the user to confirm if they want to quit their visa application"
	}

	systemPrompt := fmt.Sprintf(`CONTEXT: %s

Classify the user's intent into ONE category:

1. RESUME - user wants to continue the visa application (examples: "yes", "continue", "proceed", "let's go", "okay")
2. DECLINE - user wants to quit/cancel the visa application (examples: "no", "cancel", "quit", "stop", "bye", "I'm done")
3. CONFIRMED_QUIT - user confirms they want to quit after being asked "are you sure?" (examples: "yes quit", "I'm sure", "definitely no")
4. WANT_TO_CONTINUE - user changed their mind and wants to continue after declining (examples: "actually yes", "wait no", "let me continue")
5. UNCLEAR - the response is ambiguous (examples: "maybe", "hmm", "what?")

Respond with only the category name.`, situation)

	response, err := r.genAI.GeneratePrompt(ctx, systemPrompt, userText)
	if err != nil {
		slog.Warn("Resolver.classify: classification failed, treating as unclear", "error", err)
		return decisionUnclear
	}
	decision := strings.ToUpper(strings.TrimSpace(response))
	switch decision {
	case decisionResume, decisionDecline, decisionConfirmedQuit, decisionWantToContinue, decisionUnclear:
		return decision
	default:
		return decisionUnclear
	}
}

// missingLabels returns human-readable labels of snapshot slots still empty,
// in declared order.
func (r *ResumeResolver) missingLabels(snapshot map[string]string) []string {
	var labels []string
	for _, spec := range r.schema {
		if snapshot[spec.Name] == "" {
			labels = append(labels, spec.Label)
		}
	}
	return labels
}

// progressSummary formats the snapshot's filled slots for the quit
// confirmation message.
func (r *ResumeResolver) progressSummary(snapshot map[string]string) string {
	var parts []string
	for _, spec := range r.schema {
		if v := snapshot[spec.Name]; v != "" {
			parts = append(parts, fmt.Sprintf("%s: %s", titleLabel(spec.Label), v))
		}
	}
	if len(parts) == 0 {
		return "some information collected"
	}
	return strings.Join(parts, ", ")
}
