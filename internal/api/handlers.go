package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/veazyhq/visaflow/internal/models"
)

// messageRequest is the body of POST /sessions/{id}/messages.
type messageRequest struct {
	Message string `json:"message"`
}

// messageResponse carries the assistant's reply for one turn.
type messageResponse struct {
	SessionID string `json:"session_id"`
	Reply     string `json:"reply"`
}

// documentsRequest is the body of POST /sessions/{id}/documents: paths to
// document files reachable by the server.
type documentsRequest struct {
	Paths []string `json:"paths"`
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, models.Success(map[string]string{"status": "healthy"}))
}

// createSessionHandler allocates a fresh session id.
func (s *Server) createSessionHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := uuid.NewString()
	if err := s.stateManager.SetCurrentState(r.Context(), sessionID, models.PhaseIdle); err != nil {
		slog.Error("Server.createSessionHandler: failed to create session", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to create session"))
		return
	}
	slog.Info("Server.createSessionHandler: session created", "sessionID", sessionID)
	writeJSONResponse(w, http.StatusCreated, models.Success(map[string]string{"session_id": sessionID}))
}

// postMessageHandler processes one conversational turn.
func (s *Server) postMessageHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Message == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Request body must contain a non-empty message"))
		return
	}

	reply, err := s.flowService.ProcessTurn(r.Context(), sessionID, req.Message)
	if err != nil {
		slog.Error("Server.postMessageHandler: turn failed", "sessionID", sessionID, "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to process message"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(messageResponse{SessionID: sessionID, Reply: reply}))
}

// getStateHandler returns the session's application state.
func (s *Server) getStateHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	state, err := s.flowService.SessionState(r.Context(), sessionID)
	if err != nil {
		slog.Error("Server.getStateHandler: failed to load state", "sessionID", sessionID, "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load session state"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(state))
}

// deleteSessionHandler removes a session and all its state.
func (s *Server) deleteSessionHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	if err := s.stateManager.ResetState(r.Context(), sessionID); err != nil {
		slog.Error("Server.deleteSessionHandler: failed to delete session", "sessionID", sessionID, "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to delete session"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(map[string]string{"session_id": sessionID}))
}

// postDocumentsHandler parses the named document files and routes them into
// the session's buckets. Parse failures identify the file without internal
// error detail.
func (s *Server) postDocumentsHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var req documentsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Paths) == 0 {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Request body must contain document paths"))
		return
	}

	docs := make([]models.ParsedDocument, 0, len(req.Paths))
	for _, path := range req.Paths {
		doc, err := s.parser.ParseFile(r.Context(), path)
		if err != nil {
			slog.Warn("Server.postDocumentsHandler: failed to parse document", "sessionID", sessionID, "path", path, "error", err)
			writeJSONResponse(w, http.StatusUnprocessableEntity, models.Error("Could not process document: "+path))
			return
		}
		docs = append(docs, *doc)
	}

	state, err := s.flowService.SubmitDocuments(r.Context(), sessionID, docs)
	if err != nil {
		slog.Error("Server.postDocumentsHandler: failed to submit documents", "sessionID", sessionID, "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to store documents"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(state))
}

// twilioWebhookHandler handles inbound WhatsApp messages relayed by Twilio.
// The sender's phone number keys the session; the reply goes out through the
// messaging service rather than the webhook response.
func (s *Server) twilioWebhookHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid form payload"))
		return
	}
	from := r.FormValue("From")
	body := r.FormValue("Body")
	if from == "" || body == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Missing From or Body"))
		return
	}
	if s.msgService == nil {
		slog.Error("Server.twilioWebhookHandler: no messaging service configured")
		writeJSONResponse(w, http.StatusServiceUnavailable, models.Error("WhatsApp channel not configured"))
		return
	}

	sessionID, err := s.msgService.ValidateAndCanonicalizeRecipient(from)
	if err != nil {
		slog.Warn("Server.twilioWebhookHandler: invalid sender", "from", from, "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid sender"))
		return
	}

	reply, err := s.flowService.ProcessTurn(r.Context(), sessionID, body)
	if err != nil {
		slog.Error("Server.twilioWebhookHandler: turn failed", "sessionID", sessionID, "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to process message"))
		return
	}

	if err := s.msgService.SendMessage(r.Context(), sessionID, reply); err != nil {
		slog.Error("Server.twilioWebhookHandler: failed to send reply", "sessionID", sessionID, "error", err)
		writeJSONResponse(w, http.StatusBadGateway, models.Error("Failed to deliver reply"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
