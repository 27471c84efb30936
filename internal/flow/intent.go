package flow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/veazyhq/visaflow/internal/genai"
	"github.com/veazyhq/visaflow/internal/models"
)

// affirmationTokens is the fixed set of short replies that route straight to
// the resume resolver while a resume decision is outstanding, bypassing
// classification. Protects the resume flow from short tokens being
// misclassified as greetings or enquiries.
var affirmationTokens = map[string]bool{
	"yes":        true,
	"y":          true,
	"no":         true,
	"n":          true,
	"continue":   true,
	"proceed":    true,
	"start over": true,
}

// IsAffirmationToken reports whether the message is one of the fixed
// affirmation/negation tokens.
func IsAffirmationToken(message string) bool {
	return affirmationTokens[strings.ToLower(strings.TrimSpace(message))]
}

const intentSystemPrompt = `You are an intent classifier for a visa assistance service. Classify the user's message into exactly ONE of these categories:

- greetings: the user is greeting or making small talk (hi, hello, how are you)
- general_enquiry: the user asks a question about visas, requirements, fees, processing, or anything informational
- visa_application: the user wants to start or proceed with a visa application
- document_submission: the user is submitting documents or providing file paths to documents

Respond with only the category name, nothing else.`

// IntentRouter classifies incoming messages. When a question is pending it
// runs a binary answer/divert classification instead of the full taxonomy,
// since full classification misroutes short slot answers like "tourism".
type IntentRouter struct {
	genAI genai.ClientInterface
}

// NewIntentRouter creates an IntentRouter backed by the given GenAI client.
func NewIntentRouter(genAI genai.ClientInterface) *IntentRouter {
	return &IntentRouter{genAI: genAI}
}

// Classify determines the intent of a message given the current application
// state. Classification never fails: service errors fall back to a safe
// default (general_enquiry without a pending question, answer with one).
func (r *IntentRouter) Classify(ctx context.Context, state *models.ApplicationState, userText string) models.Intent {
	if state.PendingQuestion {
		return r.classifyPendingReply(ctx, lastAssistantMessage(state), userText)
	}
	return r.classifyIntent(ctx, userText)
}

func (r *IntentRouter) classifyIntent(ctx context.Context, userText string) models.Intent {
	response, err := r.genAI.GeneratePrompt(ctx, intentSystemPrompt, userText)
	if err != nil {
		slog.Warn("IntentRouter.classifyIntent: classification failed, defaulting to general_enquiry", "error", err)
		return models.IntentGeneralEnquiry
	}
	switch models.Intent(strings.ToLower(strings.TrimSpace(response))) {
	case models.IntentGreeting:
		return models.IntentGreeting
	case models.IntentGeneralEnquiry:
		return models.IntentGeneralEnquiry
	case models.IntentStartApplication:
		return models.IntentStartApplication
	case models.IntentDocumentSubmission:
		return models.IntentDocumentSubmission
	default:
		slog.Debug("IntentRouter.classifyIntent: unrecognized label, defaulting to general_enquiry", "label", response)
		return models.IntentGeneralEnquiry
	}
}

// classifyPendingReply decides whether the reply answers the pending question
// or diverts to an unrelated enquiry. Defaults to answer on failure: assume a
// cooperative user, the least disruptive choice.
func (r *IntentRouter) classifyPendingReply(ctx context.Context, pendingQuestion, userText string) models.Intent {
	systemPrompt := fmt.Sprintf(`The assistant asked the user: "%s"

Decide whether the user's reply is an answer to that question, or an unrelated question that diverts the conversation.

Respond with exactly one word:
- answer: the reply provides (or attempts to provide) the requested information
- divert: the reply asks something else instead of answering`, pendingQuestion)

	response, err := r.genAI.GeneratePrompt(ctx, systemPrompt, userText)
	if err != nil {
		slog.Warn("IntentRouter.classifyPendingReply: classification failed, defaulting to answer", "error", err)
		return models.IntentAnswer
	}
	if strings.Contains(strings.ToLower(response), "divert") {
		return models.IntentDivertToEnquiry
	}
	return models.IntentAnswer
}

// lastAssistantMessage returns the most recent assistant message text, which
// is the pending question while PendingQuestion is set.
func lastAssistantMessage(state *models.ApplicationState) string {
	for i := len(state.History) - 1; i >= 0; i-- {
		if state.History[i].Role == models.RoleAssistant {
			return state.History[i].Content
		}
	}
	return ""
}
