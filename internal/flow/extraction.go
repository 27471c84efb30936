package flow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/veazyhq/visaflow/internal/genai"
	"github.com/veazyhq/visaflow/internal/models"
)

// ExtractionGateway wraps the GenAI service for structured slot extraction.
// It reports a failed service call as an error; a call that succeeded but
// recognized nothing (or returned an unparseable object) is a normal empty
// result, not a failure. Retry bookkeeping belongs to the caller.
type ExtractionGateway struct {
	genAI genai.ClientInterface
}

// NewExtractionGateway creates an ExtractionGateway backed by the given GenAI
// client.
func NewExtractionGateway(genAI genai.ClientInterface) *ExtractionGateway {
	return &ExtractionGateway{genAI: genAI}
}

// Extract attempts to pull the schema's slot values out of the user's text.
// Already-known fields are passed as context so the model does not re-extract
// them. The returned map only contains slots the model explicitly recognized;
// values failing slot-type validation are dropped.
func (g *ExtractionGateway) Extract(ctx context.Context, userText string, currentFields map[string]string, schema []models.SlotSpec) (map[string]string, error) {
	systemPrompt := buildExtractionPrompt(currentFields, schema)

	content, err := g.genAI.GenerateJSON(ctx, systemPrompt, userText)
	if err != nil {
		return nil, fmt.Errorf("extraction service call failed: %w", err)
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		slog.Warn("ExtractionGateway.Extract: unparseable extraction result", "error", err)
		return map[string]string{}, nil
	}

	extracted := make(map[string]string)
	for _, spec := range schema {
		value, ok := raw[spec.Name]
		if !ok || value == nil {
			continue
		}
		text := stringifyValue(value)
		normalized, err := models.NormalizeSlotValue(spec, text)
		if err != nil {
			slog.Debug("ExtractionGateway.Extract: dropping invalid value", "slot", spec.Name, "error", err)
			continue
		}
		extracted[spec.Name] = normalized
	}
	slog.Debug("ExtractionGateway.Extract: extraction complete", "slots", len(extracted))
	return extracted, nil
}

func buildExtractionPrompt(currentFields map[string]string, schema []models.SlotSpec) string {
	var b strings.Builder
	b.WriteString("Extract visa application information from the user's message.\n\n")
	b.WriteString("Slots to extract:\n")
	for _, spec := range schema {
		b.WriteString(fmt.Sprintf("- %s (%s)", spec.Name, spec.Type))
		if spec.Name == "travel_dates" {
			b.WriteString(": normalize to 'DD/MM/YY to DD/MM/YY' when the dates are unambiguous, otherwise keep the user's wording verbatim")
		}
		b.WriteString("\n")
	}
	if len(currentFields) > 0 {
		b.WriteString("\nInformation already collected (do not re-extract):\n")
		for _, spec := range schema {
			if v := currentFields[spec.Name]; v != "" {
				b.WriteString(fmt.Sprintf("- %s: %s\n", spec.Name, v))
			}
		}
	}
	b.WriteString("\nSTRICT RULES: only include a slot if it is EXPLICITLY mentioned in the message. Never assume or guess. Omit slots that are not mentioned.\n")
	b.WriteString("Respond with a JSON object whose keys are the slot names.")
	return b.String()
}

// stringifyValue renders a JSON value as a slot string. Numbers come back from
// the model as float64; render whole numbers without a decimal point.
func stringifyValue(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%v", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// MergeFields merges extracted values into dst with the fill-absent-only
// rule: a slot already holding a value is never overwritten. Returns the
// number of newly filled slots.
func MergeFields(dst, src map[string]string) int {
	merged := 0
	for name, value := range src {
		if value == "" {
			continue
		}
		if dst[name] != "" {
			continue
		}
		dst[name] = value
		merged++
	}
	return merged
}
