package flow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/veazyhq/visaflow/internal/genai"
	"github.com/veazyhq/visaflow/internal/kb"
	"github.com/veazyhq/visaflow/internal/models"
)

// VisaAnalyzer runs the stage after basic collection completes: recommend a
// visa type for the collected trip details and ask for the documents needed
// by the detailed-collection stage.
type VisaAnalyzer struct {
	genAI     genai.ClientInterface
	knowledge *kb.KnowledgeBase
}

// NewVisaAnalyzer creates a VisaAnalyzer.
func NewVisaAnalyzer(genAI genai.ClientInterface, knowledge *kb.KnowledgeBase) *VisaAnalyzer {
	return &VisaAnalyzer{genAI: genAI, knowledge: knowledge}
}

// Analyze produces the visa-type recommendation plus the detailed-collection
// prompt. Recommendation failures degrade to the document request alone so
// the flow always moves forward.
func (a *VisaAnalyzer) Analyze(ctx context.Context, state *models.ApplicationState) string {
	recommendation := a.recommend(ctx, state)

	travelers := state.Fields["number_of_travelers"]
	if travelers == "" {
		travelers = "1"
	}
	documentRequest := fmt.Sprintf("Could you please upload the passport of %s traveler(s) and provide hotel booking details if any?", travelers)

	if recommendation == "" {
		return documentRequest
	}
	return recommendation + "\n\n" + documentRequest
}

// recommend asks the language service for a visa-type recommendation grounded
// in the knowledge base when an entry for the destination exists.
func (a *VisaAnalyzer) recommend(ctx context.Context, state *models.ApplicationState) string {
	country := state.Fields["country"]
	if country == "" {
		return ""
	}

	factsContext := "No knowledge base entry available; recommend based on general knowledge."
	if facts, err := a.knowledge.Lookup(country); err == nil {
		factsContext = kb.FormatFacts(facts)
	}

	systemPrompt := fmt.Sprintf(`You are a visa specialist. Based on the traveler's details and the visa information below, recommend the most suitable visa type. Include validity, approximate cost, and processing time when known. Keep it to a short paragraph.

%s`, factsContext)

	userPrompt := fmt.Sprintf("Destination: %s. Purpose of travel: %s. Number of travelers: %s. Travel dates: %s.",
		country, state.Fields["purpose_of_travel"], state.Fields["number_of_travelers"], state.Fields["travel_dates"])

	recommendation, err := a.genAI.GeneratePrompt(ctx, systemPrompt, userPrompt)
	if err != nil {
		slog.Warn("Analyzer.recommend: recommendation failed, continuing without one", "country", country, "error", err)
		return ""
	}
	return recommendation
}
