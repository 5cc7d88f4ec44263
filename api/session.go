package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/koopa0/newsrag/internal/log"
	"github.com/koopa0/newsrag/internal/session"
)

// SessionHandler handles session management endpoints.
type SessionHandler struct {
	sessions session.Store
	logger   log.Logger
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(sessions session.Store, logger log.Logger) *SessionHandler {
	return &SessionHandler{sessions: sessions, logger: logger}
}

// RegisterRoutes registers session routes on the given mux.
func (h *SessionHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/session", h.create)
	mux.HandleFunc("GET /api/session/{sessionId}", h.info)
	mux.HandleFunc("DELETE /api/session/{sessionId}", h.del)
}

// CreateSessionRequest is the request body for creating a session.
// SessionID is optional; when absent the server generates one.
type CreateSessionRequest struct {
	SessionID string `json:"sessionId"`
}

func (h *SessionHandler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	// An empty body is allowed and means "generate an ID for me".
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}

	sessionID, err := h.sessions.Create(r.Context(), req.SessionID)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrInvalidSessionID):
			writeError(w, http.StatusBadRequest, "invalid_session_id", err.Error())
		default:
			h.logger.Error("failed to create session", "error", err)
			writeError(w, http.StatusInternalServerError, "internal_error", "failed to create session")
		}
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"sessionId": sessionID})
}

// SessionInfoResponse is the payload for GET /api/session/{sessionId}.
type SessionInfoResponse struct {
	SessionID    string `json:"sessionId"`
	CreatedAt    string `json:"createdAt"`
	MessageCount int    `json:"messageCount"`
	TTLSeconds   int64  `json:"ttlSeconds"`
}

func (h *SessionHandler) info(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("sessionId")
	if err := session.ValidateID(sessionID); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_session_id", err.Error())
		return
	}

	info, err := h.sessions.Info(r.Context(), sessionID)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrNotFound):
			writeError(w, http.StatusNotFound, "session_not_found", "session does not exist or has expired")
		default:
			h.logger.Error("failed to load session", "sessionId", sessionID, "error", err)
			writeError(w, http.StatusInternalServerError, "internal_error", "failed to load session")
		}
		return
	}

	writeJSON(w, http.StatusOK, SessionInfoResponse{
		SessionID:    info.SessionID,
		CreatedAt:    info.CreatedAt.UTC().Format(time.RFC3339),
		MessageCount: info.MessageCount,
		TTLSeconds:   int64(info.TTL.Seconds()),
	})
}

func (h *SessionHandler) del(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("sessionId")
	if err := session.ValidateID(sessionID); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_session_id", err.Error())
		return
	}

	if err := h.sessions.Delete(r.Context(), sessionID); err != nil {
		switch {
		case errors.Is(err, session.ErrNotFound):
			writeError(w, http.StatusNotFound, "session_not_found", "session does not exist or has expired")
		default:
			h.logger.Error("failed to delete session", "sessionId", sessionID, "error", err)
			writeError(w, http.StatusInternalServerError, "internal_error", "failed to delete session")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"sessionId": sessionID, "status": "deleted"})
}
