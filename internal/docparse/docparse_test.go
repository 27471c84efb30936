package docparse

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/openai/openai-go"

	"github.com/veazyhq/visaflow/internal/models"
)

// mockGenAI returns canned JSON-mode responses and records the last message
// list it received.
type mockGenAI struct {
	response     string
	err          error
	lastMessages []openai.ChatCompletionMessageParamUnion
}

func (m *mockGenAI) GeneratePrompt(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return m.response, m.err
}

func (m *mockGenAI) GenerateWithMessages(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion) (string, error) {
	m.lastMessages = messages
	return m.response, m.err
}

func (m *mockGenAI) GenerateJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return m.response, m.err
}

func (m *mockGenAI) GenerateMessagesJSON(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion) (string, error) {
	m.lastMessages = messages
	return m.response, m.err
}

func writeTestImage(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("fake image bytes"), 0o644); err != nil {
		t.Fatalf("failed to write test image: %v", err)
	}
	return path
}

func TestParseFilePassport(t *testing.T) {
	mock := &mockGenAI{response: `{
		"document_type": "passport",
		"confidence": "high",
		"content": {"full_name": "JANE DOE", "passport_number": "X1234567"},
		"summary": "Valid passport for JANE DOE"
	}`}
	p := NewParser(mock)

	path := writeTestImage(t, "passport.jpg")
	doc, err := p.ParseFile(context.Background(), path)
	if err != nil {
		t.Fatalf("ParseFile failed: %v", err)
	}
	if doc.Type != models.DocumentTypePassport {
		t.Errorf("Type = %q, want passport", doc.Type)
	}
	if doc.Confidence != models.ConfidenceHigh {
		t.Errorf("Confidence = %q, want high", doc.Confidence)
	}
	if doc.Fields["passport_number"] != "X1234567" {
		t.Errorf("passport_number = %v", doc.Fields["passport_number"])
	}
	if doc.FilePath != path {
		t.Errorf("FilePath = %q, want %q", doc.FilePath, path)
	}
	if len(mock.lastMessages) != 2 {
		t.Errorf("vision call sent %d messages, want system + user", len(mock.lastMessages))
	}
}

func TestParseFileMissingFile(t *testing.T) {
	p := NewParser(&mockGenAI{})
	if _, err := p.ParseFile(context.Background(), filepath.Join(t.TempDir(), "missing.jpg")); err == nil {
		t.Fatal("ParseFile on missing file should fail")
	}
}

func TestParseFileUnsupportedExtension(t *testing.T) {
	p := NewParser(&mockGenAI{})
	path := writeTestImage(t, "notes.txt")
	if _, err := p.ParseFile(context.Background(), path); err == nil {
		t.Fatal("ParseFile on unsupported extension should fail")
	}
}

func TestParseFileVisionError(t *testing.T) {
	p := NewParser(&mockGenAI{err: errors.New("api down")})
	path := writeTestImage(t, "passport.png")
	if _, err := p.ParseFile(context.Background(), path); err == nil {
		t.Fatal("ParseFile should surface vision call errors")
	}
}

func TestParseFileMalformedResponse(t *testing.T) {
	p := NewParser(&mockGenAI{response: "not json"})
	path := writeTestImage(t, "booking.jpeg")
	if _, err := p.ParseFile(context.Background(), path); err == nil {
		t.Fatal("ParseFile should fail on unparseable analysis response")
	}
}

func TestSupportedFile(t *testing.T) {
	for _, path := range []string{"a.jpg", "b.JPEG", "c.png", "d.pdf"} {
		if !SupportedFile(path) {
			t.Errorf("SupportedFile(%q) = false, want true", path)
		}
	}
	for _, path := range []string{"a.txt", "b", "01/02/2026"} {
		if SupportedFile(path) {
			t.Errorf("SupportedFile(%q) = true, want false", path)
		}
	}
}
