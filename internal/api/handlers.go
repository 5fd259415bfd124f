package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/lectern-ai/lectern/internal/log"
	"github.com/lectern-ai/lectern/internal/session"
)

// maxQueryBodySize caps the request body of POST /api/query.
const maxQueryBodySize = 1 << 20 // 1 MiB

type handler struct {
	query    QueryService
	sessions SessionService
	logger   log.Logger
}

type queryRequest struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id,omitempty"`
}

type queryResponse struct {
	Answer    string   `json:"answer"`
	Sources   []string `json:"sources"`
	SessionID string   `json:"session_id"`
}

// postQuery answers a question about course materials. A missing session_id
// starts a new session; the assigned ID is returned so the client can
// continue the conversation.
func (h *handler) postQuery(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxQueryBodySize)

	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body", h.logger)
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "empty_query", "query must not be empty", h.logger)
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		created, err := h.sessions.Create(r.Context())
		if err != nil {
			h.logger.Error("failed to create session", "error", err)
			writeError(w, http.StatusInternalServerError, "session_error", "failed to create session", h.logger)
			return
		}
		sessionID = created
	}

	answer, err := h.query.Query(r.Context(), req.Query, sessionID)
	if err != nil {
		h.logger.Error("query failed", "session_id", sessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "query_error", "failed to process query", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, queryResponse{
		Answer:    answer.Text,
		Sources:   answer.Sources,
		SessionID: sessionID,
	}, h.logger)
}

// getCourses returns catalog analytics: course count and titles.
func (h *handler) getCourses(w http.ResponseWriter, r *http.Request) {
	analytics, err := h.query.CourseAnalytics(r.Context())
	if err != nil {
		h.logger.Error("failed to load course analytics", "error", err)
		writeError(w, http.StatusInternalServerError, "analytics_error", "failed to load course analytics", h.logger)
		return
	}
	writeJSON(w, http.StatusOK, analytics, h.logger)
}

// deleteSession clears a session's conversation history.
func (h *handler) deleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")

	if err := h.sessions.Clear(r.Context(), sessionID); err != nil {
		if errors.Is(err, session.ErrInvalidSessionID) {
			writeError(w, http.StatusBadRequest, "invalid_session", "invalid session ID", h.logger)
			return
		}
		h.logger.Error("failed to clear session", "session_id", sessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "session_error", "failed to clear session", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"}, h.logger)
}
