package flow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/veazyhq/visaflow/internal/genai"
	"github.com/veazyhq/visaflow/internal/kb"
	"github.com/veazyhq/visaflow/internal/models"
)

const (
	msgAskWhichCountry = "I'd be happy to help with visa information! Could you please specify which country's visa you're asking about?"
	msgEnquiryTrouble  = "I'm having some technical difficulties right now. Please try your question again, or feel free to contact our support team for assistance."
)

// EnquiryHandler answers general visa questions grounded in the knowledge
// base. Stateless apart from reading the in-flight application's country as
// fallback context.
type EnquiryHandler struct {
	genAI     genai.ClientInterface
	knowledge *kb.KnowledgeBase
}

// NewEnquiryHandler creates an EnquiryHandler.
func NewEnquiryHandler(genAI genai.ClientInterface, knowledge *kb.KnowledgeBase) *EnquiryHandler {
	return &EnquiryHandler{genAI: genAI, knowledge: knowledge}
}

// Handle answers one enquiry. When the question names no country, the
// in-progress application's country (active fields or divert snapshot) is
// used; failing that, the user is asked to name one.
func (h *EnquiryHandler) Handle(ctx context.Context, state *models.ApplicationState, userText string) string {
	country := h.extractCountry(ctx, userText)

	if country == "" && state.CollectionInProgress {
		if c := state.Fields["country"]; c != "" {
			country = strings.ToLower(c)
		} else if c := state.IncompleteSnapshot["country"]; c != "" {
			country = strings.ToLower(c)
		}
		if country != "" {
			slog.Debug("Enquiry.Handle: using application context country", "country", country)
		}
	}
	if country == "" {
		return h.askWhichCountry()
	}

	facts, err := h.knowledge.Lookup(country)
	if err != nil {
		if errors.Is(err, kb.ErrNotFound) {
			return fmt.Sprintf("I don't have detailed visa information for %s available at the moment. Please contact our support team for the most current information.", titleLabel(country))
		}
		slog.Error("Enquiry.Handle: knowledge lookup failed", "country", country, "error", err)
		return msgEnquiryTrouble
	}

	systemPrompt := fmt.Sprintf(`You are a visa information specialist. Answer the user's question based ONLY on the provided visa information context.

CONTEXT:
%s

Provide a helpful, accurate response. If the context doesn't contain enough information to fully answer the question, acknowledge this limitation.`, kb.FormatFacts(facts))

	answer, err := h.genAI.GeneratePrompt(ctx, systemPrompt, userText)
	if err != nil {
		slog.Error("Enquiry.Handle: answer generation failed", "country", country, "error", err)
		return msgEnquiryTrouble
	}
	return answer
}

// askWhichCountry asks the user to name a country, listing the countries the
// knowledge base covers when it has any.
func (h *EnquiryHandler) askWhichCountry() string {
	countries, err := h.knowledge.Countries()
	if err != nil || len(countries) == 0 {
		return msgAskWhichCountry
	}
	labels := make([]string, len(countries))
	for i, c := range countries {
		labels[i] = titleLabel(c)
	}
	return msgAskWhichCountry + " I currently have detailed information for: " + strings.Join(labels, ", ") + "."
}

// extractCountry pulls a country name out of the enquiry text. Low-confidence
// extractions are discarded rather than guessed at.
func (h *EnquiryHandler) extractCountry(ctx context.Context, userText string) string {
	const systemPrompt = `Extract the country name from this visa-related query. Respond with a JSON object:
{"country": "<country name in lowercase, single word, or null if no specific country is mentioned>", "confidence": "high|medium|low"}`

	content, err := h.genAI.GenerateJSON(ctx, systemPrompt, userText)
	if err != nil {
		slog.Warn("Enquiry.extractCountry: extraction failed", "error", err)
		return ""
	}

	var extracted struct {
		Country    string `json:"country"`
		Confidence string `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(content), &extracted); err != nil {
		slog.Warn("Enquiry.extractCountry: unparseable extraction result", "error", err)
		return ""
	}
	country := strings.ToLower(strings.TrimSpace(extracted.Country))
	if country == "" || country == "null" || country == "none" {
		return ""
	}
	if strings.EqualFold(extracted.Confidence, "low") {
		slog.Debug("Enquiry.extractCountry: discarding low-confidence extraction", "country", country)
		return ""
	}
	return country
}
