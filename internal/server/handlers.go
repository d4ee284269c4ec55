package server

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/scrypster/reverie/internal/session"
	"github.com/scrypster/reverie/pkg/types"
)

// maxTranscriptBytes bounds the uploaded transcript size.
const maxTranscriptBytes = 20 << 20

// ErrorResponse is the standard error response format for the API.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}

// UploadResponse is returned by POST /api/upload. Ingestion continues in the
// background; progress is observable under the upload ID.
type UploadResponse struct {
	SessionID string `json:"session_id"`
	UploadID  string `json:"upload_id"`
}

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// handleUpload handles POST /api/upload: a multipart form with a "transcript"
// file plus "person_name" and "participant" fields. It responds 202 as soon
// as ingestion is started.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxTranscriptBytes)
	if err := r.ParseMultipartForm(maxTranscriptBytes); err != nil {
		respondError(w, http.StatusBadRequest, "invalid multipart form", err)
		return
	}

	file, _, err := r.FormFile("transcript")
	if err != nil {
		respondError(w, http.StatusBadRequest, "missing transcript file", err)
		return
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read transcript", err)
		return
	}

	personName := r.FormValue("person_name")
	participant := r.FormValue("participant")
	if participant == "" {
		respondError(w, http.StatusBadRequest, "participant is required", nil)
		return
	}
	if personName == "" {
		personName = participant
	}

	sessionID, uploadID, err := s.pipeline.Start(r.Context(), string(raw), personName, participant)
	if err != nil {
		if types.IsValidation(err) {
			respondError(w, http.StatusBadRequest, err.Error(), nil)
			return
		}
		log.Printf("Upload failed: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to start ingestion", nil)
		return
	}

	respondJSON(w, http.StatusAccepted, UploadResponse{SessionID: sessionID, UploadID: uploadID})
}

// handleProgressPoll returns the latest progress record for an upload.
func (s *Server) handleProgressPoll(w http.ResponseWriter, r *http.Request) {
	uploadID := r.PathValue("uploadId")
	record, ok := s.pipeline.Progress().Snapshot(uploadID)
	if !ok {
		respondError(w, http.StatusNotFound, "unknown upload", nil)
		return
	}
	respondJSON(w, http.StatusOK, record)
}

// handleChat runs one chat turn. Provider failures degrade inside the engine
// and come back as a 200 with a warning, never as a request failure.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.SessionID == "" {
		respondError(w, http.StatusBadRequest, "session_id is required", nil)
		return
	}

	reply, err := s.engine.Respond(r.Context(), req.SessionID, req.Message)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrNotFound):
			respondError(w, http.StatusNotFound, "session not found", nil)
		case types.IsValidation(err):
			respondError(w, http.StatusBadRequest, err.Error(), nil)
		default:
			log.Printf("Chat turn failed for session %s: %v", req.SessionID, err)
			respondError(w, http.StatusInternalServerError, "chat turn failed", nil)
		}
		return
	}

	respondJSON(w, http.StatusOK, reply)
}

// handleDeleteSession evicts a session: registry entry, vector collection
// and persisted turns. Unknown sessions delete cleanly.
func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if err := s.registry.Delete(r.Context(), id); err != nil {
		log.Printf("Failed to delete session %s: %v", id, err)
		respondError(w, http.StatusInternalServerError, "failed to delete session", nil)
		return
	}
	if err := s.turns.DeleteSession(r.Context(), id); err != nil {
		log.Printf("Failed to delete turns for session %s: %v", id, err)
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

// respondJSON writes a JSON response with the given status code.
func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Failed to encode JSON response: %v", err)
	}
}

// respondError writes an error response with the given status code.
func respondError(w http.ResponseWriter, statusCode int, message string, err error) {
	resp := ErrorResponse{
		Error: message,
		Code:  http.StatusText(statusCode),
	}
	if err != nil {
		resp.Details = err.Error()
	}
	respondJSON(w, statusCode, resp)
}
