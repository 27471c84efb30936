package flow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/veazyhq/visaflow/internal/genai"
	"github.com/veazyhq/visaflow/internal/kb"
	"github.com/veazyhq/visaflow/internal/models"
)

// ConversationFlow orchestrates one turn per incoming message: load the
// session's state, route the message to exactly one handler, mutate state,
// persist, reply. Turns for a single session are strictly sequential; the
// host may process independent sessions concurrently since they share no
// mutable state.
type ConversationFlow struct {
	stateManager StateManager
	router       *IntentRouter
	collector    *CollectionEngine
	resolver     *ResumeResolver
	enquiry      *EnquiryHandler
	documents    *DocumentHandler
	analyzer     *VisaAnalyzer
}

// NewConversationFlow creates a ConversationFlow with its dependencies.
// Collector options configure the slot schema and retry policy.
func NewConversationFlow(stateManager StateManager, genAI genai.ClientInterface, knowledge *kb.KnowledgeBase, parser DocumentParser, opts ...CollectorOption) *ConversationFlow {
	slog.Debug("ConversationFlow.NewConversationFlow: creating flow with dependencies")
	collector := NewCollectionEngine(NewExtractionGateway(genAI), opts...)
	return &ConversationFlow{
		stateManager: stateManager,
		router:       NewIntentRouter(genAI),
		collector:    collector,
		resolver:     NewResumeResolver(genAI, collector.Schema()),
		enquiry:      NewEnquiryHandler(genAI, knowledge),
		documents:    NewDocumentHandler(parser),
		analyzer:     NewVisaAnalyzer(genAI, knowledge),
	}
}

// ProcessTurn processes one user message for a session and returns the
// assistant's reply. State is finalized and persisted before the reply is
// returned; any streaming of the reply downstream needs no further state
// mutation.
func (f *ConversationFlow) ProcessTurn(ctx context.Context, sessionID, userText string) (string, error) {
	state, err := loadApplicationState(ctx, f.stateManager, sessionID)
	if err != nil {
		return "", fmt.Errorf("failed to load session state: %w", err)
	}

	for _, issue := range state.Validate() {
		slog.Warn("ConversationFlow.ProcessTurn: state inconsistency", "sessionID", sessionID, "issue", issue)
	}

	state.AppendMessage(models.RoleUser, userText)
	reply := f.dispatch(ctx, state, userText)
	state.AppendMessage(models.RoleAssistant, reply)

	if err := saveApplicationState(ctx, f.stateManager, sessionID, state); err != nil {
		return "", fmt.Errorf("failed to save session state: %w", err)
	}
	if err := f.stateManager.SetCurrentState(ctx, sessionID, phaseFor(state)); err != nil {
		slog.Error("ConversationFlow.ProcessTurn: failed to record phase", "sessionID", sessionID, "error", err)
	}

	slog.Debug("ConversationFlow.ProcessTurn: turn complete", "sessionID", sessionID, "phase", phaseFor(state))
	return reply, nil
}

// SubmitDocuments runs already-parsed documents through the Document Router
// for transports that upload files directly instead of naming paths in a
// message.
func (f *ConversationFlow) SubmitDocuments(ctx context.Context, sessionID string, docs []models.ParsedDocument) (*models.ApplicationState, error) {
	state, err := loadApplicationState(ctx, f.stateManager, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session state: %w", err)
	}
	RouteDocuments(state, docs)
	if err := saveApplicationState(ctx, f.stateManager, sessionID, state); err != nil {
		return nil, fmt.Errorf("failed to save session state: %w", err)
	}
	return state, nil
}

// SessionState returns the session's current application state.
func (f *ConversationFlow) SessionState(ctx context.Context, sessionID string) (*models.ApplicationState, error) {
	return loadApplicationState(ctx, f.stateManager, sessionID)
}

// dispatch routes the message to exactly one handler and returns its reply.
func (f *ConversationFlow) dispatch(ctx context.Context, state *models.ApplicationState, userText string) string {
	// An outstanding quit confirmation captures every reply.
	if state.ConfirmationPending {
		return f.resolve(ctx, state, userText)
	}

	// An outstanding resume offer captures affirmation tokens directly and
	// otherwise lets an enquiry through before re-offering.
	if state.IncompleteSnapshot != nil {
		if IsAffirmationToken(userText) {
			return f.resolve(ctx, state, userText)
		}
		if f.router.Classify(ctx, state, userText) == models.IntentGeneralEnquiry {
			answer := f.enquiry.Handle(ctx, state, userText)
			return answer + "\n\n" + f.resolver.Offer(state)
		}
		return f.resolve(ctx, state, userText)
	}

	intent := f.router.Classify(ctx, state, userText)
	slog.Debug("ConversationFlow.dispatch: routed message", "intent", intent)

	switch intent {
	case models.IntentGreeting:
		return GreetingReply

	case models.IntentStartApplication:
		return f.collect(ctx, state, userText, true)

	case models.IntentAnswer:
		return f.collect(ctx, state, userText, false)

	case models.IntentDivertToEnquiry:
		f.collector.Divert(state)
		answer := f.enquiry.Handle(ctx, state, userText)
		return answer + "\n\n" + f.resolver.Offer(state)

	case models.IntentDocumentSubmission:
		return f.documents.Handle(ctx, state, userText)

	default:
		return f.enquiry.Handle(ctx, state, userText)
	}
}

// collect runs one collection turn and appends the visa-type analysis stage
// when the basic slot set just completed.
func (f *ConversationFlow) collect(ctx context.Context, state *models.ApplicationState, userText string, starting bool) string {
	var reply string
	var complete bool
	if starting {
		reply, complete = f.collector.Start(ctx, state, userText)
	} else {
		reply, complete = f.collector.Collect(ctx, state, userText)
	}
	if complete {
		// The document request that follows is resolved by full intent
		// classification (file paths, enquiries), not the pending-answer
		// path, so no question stays pending here.
		reply += "\n" + f.analyzer.Analyze(ctx, state)
	}
	return reply
}

// resolve runs the resume/abandon resolver and, when the user resumed,
// re-asks for whatever is still missing.
func (f *ConversationFlow) resolve(ctx context.Context, state *models.ApplicationState, userText string) string {
	reply, resumed := f.resolver.Resolve(ctx, state, userText)
	if !resumed {
		return reply
	}
	missing := state.MissingSlots(f.collector.Schema())
	if len(missing) == 0 {
		return reply + "\n" + f.analyzer.Analyze(ctx, state)
	}
	state.PendingQuestion = true
	return reply + "\n\n" + f.collector.batchQuestion(missing)
}

// phaseFor derives the observability phase recorded alongside the session.
func phaseFor(state *models.ApplicationState) string {
	switch {
	case state.ConfirmationPending:
		return models.PhaseConfirmAbandon
	case state.IncompleteSnapshot != nil:
		return models.PhaseResumeOffer
	case state.CollectionInProgress:
		return models.PhaseCollecting
	default:
		return models.PhaseIdle
	}
}
