package flow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/veazyhq/visaflow/internal/models"
)

// DefaultRetryLimit bounds consecutive extraction service failures before the
// engine gives up on the current collection attempt.
const DefaultRetryLimit = 1

const (
	msgEmptyReply        = "I didn't receive your response. Please provide the information I asked for."
	msgExtractionRetry   = "Sorry, I had an issue understanding that. Could you repeat the information?"
	msgExtractionGiveUp  = "I'm having difficulty processing your request. Please try again later."
	msgCollectionStarted = "I can help you with your visa application. Let me collect the basic information first."
)

// CollectorOpts holds configuration options for the collection engine.
type CollectorOpts struct {
	Schema                  []models.SlotSpec
	RetryLimit              int
	ResetFieldsOnExhaustion bool
	resetSet                bool
}

// CollectorOption defines a configuration option for the collection engine.
type CollectorOption func(*CollectorOpts)

// WithSchema overrides the slot schema driven by the engine.
func WithSchema(schema []models.SlotSpec) CollectorOption {
	return func(o *CollectorOpts) { o.Schema = schema }
}

// WithRetryLimit sets the bound on consecutive extraction failures.
func WithRetryLimit(limit int) CollectorOption {
	return func(o *CollectorOpts) { o.RetryLimit = limit }
}

// WithResetFieldsOnExhaustion controls whether collected fields are cleared
// when the retry bound is exhausted. Defaults to true.
func WithResetFieldsOnExhaustion(reset bool) CollectorOption {
	return func(o *CollectorOpts) {
		o.ResetFieldsOnExhaustion = reset
		o.resetSet = true
	}
}

// CollectionEngine drives the ask-until-full loop over a declared slot
// schema: extract, merge new values, compute what is missing, and either ask
// for everything still missing in one batched message or report completion.
type CollectionEngine struct {
	gateway                 *ExtractionGateway
	schema                  []models.SlotSpec
	retryLimit              int
	resetFieldsOnExhaustion bool
}

// NewCollectionEngine creates a CollectionEngine. Defaults: BasicSlots schema,
// retry limit 1, fields cleared on retry exhaustion.
func NewCollectionEngine(gateway *ExtractionGateway, opts ...CollectorOption) *CollectionEngine {
	cfg := CollectorOpts{
		Schema:                  models.BasicSlots,
		RetryLimit:              DefaultRetryLimit,
		ResetFieldsOnExhaustion: true,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.RetryLimit < 1 {
		cfg.RetryLimit = DefaultRetryLimit
	}
	return &CollectionEngine{
		gateway:                 gateway,
		schema:                  cfg.Schema,
		retryLimit:              cfg.RetryLimit,
		resetFieldsOnExhaustion: cfg.ResetFieldsOnExhaustion,
	}
}

// Schema returns the declared slot schema the engine collects.
func (e *CollectionEngine) Schema() []models.SlotSpec {
	return e.schema
}

// Start begins (or re-enters) the collection flow with the user's opening
// message, which often already carries slot values ("I want a Thailand visa").
func (e *CollectionEngine) Start(ctx context.Context, state *models.ApplicationState, userText string) (reply string, complete bool) {
	slog.Debug("Collector.Start: entering collection", "inProgress", state.CollectionInProgress)
	state.CollectionInProgress = true
	reply, complete = e.Collect(ctx, state, userText)
	if !complete && state.ExtractionRetryCount == 0 {
		reply = msgCollectionStarted + "\n\n" + reply
	}
	return reply, complete
}

// Collect runs one extraction turn: merge whatever the user's message
// provides, then ask for the rest or signal completion. The completion reply
// carries the collected-field summary; the caller appends the next-stage
// handoff.
func (e *CollectionEngine) Collect(ctx context.Context, state *models.ApplicationState, userText string) (reply string, complete bool) {
	if strings.TrimSpace(userText) == "" {
		state.PendingQuestion = true
		return msgEmptyReply, false
	}

	extracted, err := e.gateway.Extract(ctx, userText, state.Fields, e.schema)
	if err != nil {
		return e.handleExtractionFailure(state), false
	}
	state.ExtractionRetryCount = 0

	merged := MergeFields(state.Fields, extracted)
	slog.Debug("Collector.Collect: merged extraction", "newSlots", merged, "totalFilled", len(state.Fields))

	missing := state.MissingSlots(e.schema)
	if len(missing) == 0 {
		state.PendingQuestion = false
		return e.summary(state), true
	}

	state.PendingQuestion = true
	return e.batchQuestion(missing), false
}

// handleExtractionFailure does the retry bookkeeping for a failed service
// call. Within the bound the user is asked to repeat; beyond it the engine
// apologizes, resets the counter, and (per policy) clears collected fields.
func (e *CollectionEngine) handleExtractionFailure(state *models.ApplicationState) string {
	state.ExtractionRetryCount++
	slog.Warn("Collector.handleExtractionFailure: extraction failed", "retryCount", state.ExtractionRetryCount, "limit", e.retryLimit)

	if state.ExtractionRetryCount > e.retryLimit {
		state.ExtractionRetryCount = 0
		state.PendingQuestion = false
		if e.resetFieldsOnExhaustion {
			state.Fields = make(map[string]string)
			state.CollectionInProgress = false
		}
		return msgExtractionGiveUp
	}

	state.PendingQuestion = true
	return msgExtractionRetry
}

// Divert snapshots the in-progress fields so an enquiry can interrupt
// collection with an intent to return. CollectionInProgress stays true to
// mark the unfinished business.
func (e *CollectionEngine) Divert(state *models.ApplicationState) {
	snapshot := make(map[string]string, len(state.Fields))
	for k, v := range state.Fields {
		snapshot[k] = v
	}
	state.IncompleteSnapshot = snapshot
	state.CollectionInProgress = true
	state.PendingQuestion = false
	slog.Debug("Collector.Divert: snapshot taken", "slots", len(snapshot))
}

// batchQuestion asks for every missing slot in one numbered message, in
// declared schema order.
func (e *CollectionEngine) batchQuestion(missing []string) string {
	questions := make([]string, 0, len(missing))
	for _, name := range missing {
		for _, spec := range e.schema {
			if spec.Name == name {
				questions = append(questions, fmt.Sprintf("%d. %s", len(questions)+1, spec.Question))
				break
			}
		}
	}
	return "I need a few more details:\n\n" + strings.Join(questions, "\n") + "\n\nPlease provide all the missing information in your response."
}

// summary lists every collected slot in declared order.
func (e *CollectionEngine) summary(state *models.ApplicationState) string {
	var b strings.Builder
	b.WriteString("Perfect! I have all the required information:\n")
	for _, spec := range e.schema {
		b.WriteString(fmt.Sprintf("- %s: %s\n", titleLabel(spec.Label), state.Fields[spec.Name]))
	}
	return b.String()
}

// titleLabel uppercases the first letter of a slot label for summary display.
func titleLabel(label string) string {
	if label == "" {
		return label
	}
	return strings.ToUpper(label[:1]) + label[1:]
}
