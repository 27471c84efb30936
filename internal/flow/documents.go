package flow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/veazyhq/visaflow/internal/docparse"
	"github.com/veazyhq/visaflow/internal/models"
)

const msgAskForDocuments = "Please provide your passport and hotel bookings if any."

// DocumentParser is the collaborator that turns a file into a classified,
// field-extracted document record.
type DocumentParser interface {
	ParseFile(ctx context.Context, path string) (*models.ParsedDocument, error)
}

// RouteDocuments appends each parsed document's fields to the bucket named by
// its type, in input order, no dedup. Unrecognized types land in the generic
// uploads bucket with their metadata intact.
func RouteDocuments(state *models.ApplicationState, docs []models.ParsedDocument) {
	for _, doc := range docs {
		switch doc.Type {
		case models.DocumentTypePassport:
			state.PassportInfo = append(state.PassportInfo, doc.Fields)
		case models.DocumentTypeHotelBooking:
			state.AccommodationInfo = append(state.AccommodationInfo, doc.Fields)
		case models.DocumentTypeBankStatement:
			state.FinancialInfo = append(state.FinancialInfo, doc.Fields)
		default:
			record := map[string]any{
				"document_type": doc.Type,
				"content":       doc.Fields,
			}
			if doc.FilePath != "" {
				record["file_path"] = doc.FilePath
			}
			state.DocumentUploads = append(state.DocumentUploads, record)
		}
	}
}

// ExtractFilePaths pulls candidate document paths out of a message. A word
// counts as a path only with a supported file extension; slash-bearing words
// without one (dates, fractions) are reported separately so the handler can
// hint instead of failing on them.
func ExtractFilePaths(message string) (paths, nonFileSlashes []string) {
	for _, word := range strings.Fields(message) {
		trimmed := strings.Trim(word, `",'`)
		if trimmed == "" {
			continue
		}
		if docparse.SupportedFile(trimmed) {
			paths = append(paths, trimmed)
		} else if strings.ContainsAny(trimmed, `/\`) {
			nonFileSlashes = append(nonFileSlashes, trimmed)
		}
	}
	return paths, nonFileSlashes
}

// DocumentHandler processes document-submission messages: parse the file
// paths out of the text, run each through the parser, and route the results
// into the state buckets.
type DocumentHandler struct {
	parser DocumentParser
}

// NewDocumentHandler creates a DocumentHandler.
func NewDocumentHandler(parser DocumentParser) *DocumentHandler {
	return &DocumentHandler{parser: parser}
}

// Handle processes one submission message. Parse failures surface to the user
// naming the file, never the internal error.
func (h *DocumentHandler) Handle(ctx context.Context, state *models.ApplicationState, userText string) string {
	paths, nonFileSlashes := ExtractFilePaths(userText)

	if len(paths) == 0 && len(nonFileSlashes) > 0 {
		return fmt.Sprintf("I see you mentioned '%s' but these don't appear to be file paths. Please provide the full file paths to your documents with extensions like .jpg, .png, or .pdf.", strings.Join(nonFileSlashes, ", "))
	}
	if len(paths) == 0 {
		return msgAskForDocuments
	}

	docs := make([]models.ParsedDocument, 0, len(paths))
	for _, path := range paths {
		doc, err := h.parser.ParseFile(ctx, path)
		if err != nil {
			slog.Warn("Documents.Handle: failed to process document", "path", path, "error", err)
			return fmt.Sprintf("I couldn't process the document %s. Please check the file and try again.", path)
		}
		docs = append(docs, *doc)
	}

	RouteDocuments(state, docs)

	var b strings.Builder
	fmt.Fprintf(&b, "Successfully processed %d document(s):\n\n", len(docs))
	for _, doc := range docs {
		summary := doc.Summary
		if summary == "" {
			summary = "Processed"
		}
		fmt.Fprintf(&b, "- %s: %s\n", titleLabel(strings.ReplaceAll(doc.Type, "_", " ")), summary)
	}
	return b.String()
}
