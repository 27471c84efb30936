// Package docparse extracts structured information from travel document
// images with OpenAI vision calls. Documents are classified as passport,
// hotel booking, bank statement, or other, and typed fields are pulled out
// alongside a confidence grade.
package docparse

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/openai/openai-go"

	"github.com/veazyhq/visaflow/internal/genai"
	"github.com/veazyhq/visaflow/internal/models"
)

const analysisSystemPrompt = `You are an expert OCR and document classification assistant. Analyze the provided document image and:

1. CLASSIFY DOCUMENT TYPE: passport, hotel_booking, bank_statement, or other.

2. EXTRACT KEY INFORMATION based on document type.

For PASSPORT: full_name, passport_number, nationality, date_of_birth (DD/MM/YYYY), issue_date (DD/MM/YYYY), expiry_date (DD/MM/YYYY), place_of_birth, issuing_authority.

For HOTEL_BOOKING: hotel_name, guest_names, check_in_date (DD/MM/YYYY), check_out_date (DD/MM/YYYY), booking_reference, total_cost, room_type.

For BANK_STATEMENT: account_holder, bank_name, statement_period, closing_balance, currency.

For OTHER documents: extract relevant key information based on document type.

3. Return JSON:
{
  "document_type": "passport|hotel_booking|bank_statement|other",
  "confidence": "high|medium|low",
  "content": {"key_field_1": "extracted_value"},
  "summary": "Brief description of what was found"
}

Be accurate and only extract information that is clearly visible.`

var imageMIMETypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".pdf":  "application/pdf",
}

// Parser runs document images through a vision-capable chat model.
type Parser struct {
	genAI genai.ClientInterface
}

// NewParser creates a Parser backed by the given GenAI client.
func NewParser(genAI genai.ClientInterface) *Parser {
	return &Parser{genAI: genAI}
}

// SupportedFile reports whether the path carries a file extension the parser
// can handle.
func SupportedFile(path string) bool {
	_, ok := imageMIMETypes[strings.ToLower(filepath.Ext(path))]
	return ok
}

// ParseFile reads the document at path and extracts its classification and
// fields. Returns an error when the file cannot be read or the vision call
// fails; a successfully parsed but unrecognized document comes back with
// type "other".
func (p *Parser) ParseFile(ctx context.Context, path string) (*models.ParsedDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read document %s: %w", path, err)
	}
	mime, ok := imageMIMETypes[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return nil, fmt.Errorf("unsupported document type: %s", filepath.Ext(path))
	}
	dataURL := fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(data))

	content, err := p.genAI.GenerateMessagesJSON(ctx, []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(analysisSystemPrompt),
		openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
			openai.TextContentPart("Analyze this document and extract information according to the instructions."),
			openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
				URL:    dataURL,
				Detail: "high",
			}),
		}),
	})
	if err != nil {
		slog.Error("Parser.ParseFile: vision call failed", "path", path, "error", err)
		return nil, fmt.Errorf("document analysis failed for %s: %w", path, err)
	}

	var doc models.ParsedDocument
	if err := json.Unmarshal([]byte(content), &doc); err != nil {
		slog.Warn("Parser.ParseFile: unparseable analysis response", "path", path, "error", err)
		return nil, fmt.Errorf("failed to parse analysis response for %s: %w", path, err)
	}
	if doc.Fields == nil {
		doc.Fields = make(map[string]any)
	}
	doc.FilePath = path
	slog.Debug("Parser.ParseFile: document parsed", "path", path, "type", doc.Type, "confidence", doc.Confidence)
	return &doc, nil
}
