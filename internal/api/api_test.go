package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/veazyhq/visaflow/internal/flow"
	"github.com/veazyhq/visaflow/internal/messaging"
	"github.com/veazyhq/visaflow/internal/models"
	"github.com/veazyhq/visaflow/internal/store"
)

// mockFlowService scripts the turn interface for handler tests.
type mockFlowService struct {
	reply      string
	err        error
	lastText   string
	lastID     string
	submitted  []models.ParsedDocument
	finalState *models.ApplicationState
}

func (m *mockFlowService) ProcessTurn(ctx context.Context, sessionID, userText string) (string, error) {
	m.lastID, m.lastText = sessionID, userText
	return m.reply, m.err
}

func (m *mockFlowService) SubmitDocuments(ctx context.Context, sessionID string, docs []models.ParsedDocument) (*models.ApplicationState, error) {
	m.lastID = sessionID
	m.submitted = append(m.submitted, docs...)
	if m.err != nil {
		return nil, m.err
	}
	return m.stateOrEmpty(), nil
}

func (m *mockFlowService) SessionState(ctx context.Context, sessionID string) (*models.ApplicationState, error) {
	m.lastID = sessionID
	if m.err != nil {
		return nil, m.err
	}
	return m.stateOrEmpty(), nil
}

func (m *mockFlowService) stateOrEmpty() *models.ApplicationState {
	if m.finalState != nil {
		return m.finalState
	}
	return models.NewApplicationState()
}

// stubDocParser returns a fixed document for any path.
type stubDocParser struct {
	doc *models.ParsedDocument
	err error
}

func (p *stubDocParser) ParseFile(ctx context.Context, path string) (*models.ParsedDocument, error) {
	if p.err != nil {
		return nil, p.err
	}
	doc := *p.doc
	doc.FilePath = path
	return &doc, nil
}

func newTestServer(fs FlowService, parser flow.DocumentParser, msg messaging.Service) *httptest.Server {
	sm := flow.NewStoreBasedStateManager(store.NewInMemoryStore())
	return httptest.NewServer(NewServer(fs, sm, parser, msg).Handler())
}

func decodeResponse(t *testing.T, resp *http.Response) models.APIResponse {
	t.Helper()
	defer resp.Body.Close()
	var envelope models.APIResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return envelope
}

func TestHealthEndpoint(t *testing.T) {
	ts := newTestServer(&mockFlowService{}, &stubDocParser{}, nil)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if envelope := decodeResponse(t, resp); envelope.Status != string(models.APIStatusOK) {
		t.Errorf("envelope = %+v", envelope)
	}
}

func TestCreateSession(t *testing.T) {
	ts := newTestServer(&mockFlowService{}, &stubDocParser{}, nil)
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/sessions", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Errorf("status = %d, want 201", resp.StatusCode)
	}
	envelope := decodeResponse(t, resp)
	result, ok := envelope.Result.(map[string]any)
	if !ok || result["session_id"] == "" {
		t.Errorf("result = %v", envelope.Result)
	}
}

func TestPostMessage(t *testing.T) {
	fs := &mockFlowService{reply: "Hello, I am Veazy, VISA Genie! How can I assist you today?"}
	ts := newTestServer(fs, &stubDocParser{}, nil)
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/sessions/sess-1/messages", "application/json", strings.NewReader(`{"message": "hi"}`))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if fs.lastID != "sess-1" || fs.lastText != "hi" {
		t.Errorf("flow called with id=%q text=%q", fs.lastID, fs.lastText)
	}
	envelope := decodeResponse(t, resp)
	result := envelope.Result.(map[string]any)
	if !strings.Contains(result["reply"].(string), "Veazy") {
		t.Errorf("reply = %v", result["reply"])
	}
}

func TestPostMessageValidation(t *testing.T) {
	ts := newTestServer(&mockFlowService{}, &stubDocParser{}, nil)
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/sessions/sess-1/messages", "application/json", strings.NewReader(`{}`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestPostMessageFlowError(t *testing.T) {
	ts := newTestServer(&mockFlowService{err: errors.New("store down")}, &stubDocParser{}, nil)
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/sessions/sess-1/messages", "application/json", strings.NewReader(`{"message": "hi"}`))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", resp.StatusCode)
	}
	// Internal error text never reaches the client.
	if envelope := decodeResponse(t, resp); strings.Contains(envelope.Message, "store down") {
		t.Errorf("internal error leaked: %q", envelope.Message)
	}
}

func TestGetState(t *testing.T) {
	fs := &mockFlowService{finalState: &models.ApplicationState{Fields: map[string]string{"country": "Thailand"}}}
	ts := newTestServer(fs, &stubDocParser{}, nil)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/sessions/sess-1/state")
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	envelope := decodeResponse(t, resp)
	result := envelope.Result.(map[string]any)
	fields := result["fields"].(map[string]any)
	if fields["country"] != "Thailand" {
		t.Errorf("fields = %v", fields)
	}
}

func TestDeleteSession(t *testing.T) {
	ts := newTestServer(&mockFlowService{}, &stubDocParser{}, nil)
	defer ts.Close()

	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/sessions/sess-1/", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestPostDocuments(t *testing.T) {
	fs := &mockFlowService{}
	parser := &stubDocParser{doc: &models.ParsedDocument{Type: models.DocumentTypePassport, Fields: map[string]any{"passport_number": "X1"}}}
	ts := newTestServer(fs, parser, nil)
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/sessions/sess-1/documents", "application/json", strings.NewReader(`{"paths": ["passport.jpg"]}`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if len(fs.submitted) != 1 || fs.submitted[0].Type != models.DocumentTypePassport {
		t.Errorf("submitted = %v", fs.submitted)
	}
}

func TestPostDocumentsParseFailureNamesFile(t *testing.T) {
	parser := &stubDocParser{err: errors.New("vision 503")}
	ts := newTestServer(&mockFlowService{}, parser, nil)
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/sessions/sess-1/documents", "application/json", strings.NewReader(`{"paths": ["passport.jpg"]}`))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", resp.StatusCode)
	}
	envelope := decodeResponse(t, resp)
	if !strings.Contains(envelope.Message, "passport.jpg") {
		t.Errorf("message does not name the file: %q", envelope.Message)
	}
	if strings.Contains(envelope.Message, "503") {
		t.Errorf("internal error leaked: %q", envelope.Message)
	}
}

func TestTwilioWebhook(t *testing.T) {
	fs := &mockFlowService{reply: "Which country are you visiting?"}
	msg := messaging.NewMockService()
	ts := newTestServer(fs, &stubDocParser{}, msg)
	defer ts.Close()

	form := url.Values{"From": {"whatsapp:+14165550199"}, "Body": {"I need a visa"}}
	resp, err := http.PostForm(ts.URL+"/webhook/twilio", form)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want 204", resp.StatusCode)
	}
	// Phone number keys the session, canonicalized.
	if fs.lastID != "14165550199" {
		t.Errorf("sessionID = %q", fs.lastID)
	}
	if len(msg.SentMessages) != 1 || msg.SentMessages[0].Body != "Which country are you visiting?" {
		t.Errorf("SentMessages = %v", msg.SentMessages)
	}
}

func TestTwilioWebhookMissingFields(t *testing.T) {
	ts := newTestServer(&mockFlowService{}, &stubDocParser{}, messaging.NewMockService())
	defer ts.Close()

	resp, err := http.PostForm(ts.URL+"/webhook/twilio", url.Values{"From": {"+14165550199"}})
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}
