package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/koopa0/newsrag/internal/chat"
	"github.com/koopa0/newsrag/internal/embedding"
	"github.com/koopa0/newsrag/internal/log"
	"github.com/koopa0/newsrag/internal/session"
	"github.com/koopa0/newsrag/internal/vectorstore"
)

// MaxMessageLength bounds a single chat message.
const MaxMessageLength = 10000

// ChatHandler handles chat-related HTTP endpoints.
type ChatHandler struct {
	svc      *chat.Service
	store    vectorstore.Store
	embedder embedding.Client
	logger   log.Logger
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(svc *chat.Service, store vectorstore.Store, embedder embedding.Client, logger log.Logger) *ChatHandler {
	return &ChatHandler{svc: svc, store: store, embedder: embedder, logger: logger}
}

// RegisterRoutes registers chat routes on the given mux.
func (h *ChatHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/chat/message", h.message)
	mux.HandleFunc("GET /api/chat/history/{sessionId}", h.history)
	mux.HandleFunc("DELETE /api/chat/history/{sessionId}", h.clearHistory)
	mux.HandleFunc("GET /api/chat/status", h.status)
}

// MessageRequest is the request body for a chat turn.
type MessageRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"sessionId"`
}

// message runs one chat turn: retrieval, generation, session log update.
func (h *ChatHandler) message(w http.ResponseWriter, r *http.Request) {
	var req MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}
	if len(req.Message) > MaxMessageLength {
		writeError(w, http.StatusBadRequest, "message_too_long", "message exceeds 10000 characters")
		return
	}

	result, err := h.svc.HandleMessage(r.Context(), req.SessionID, req.Message)
	if err != nil {
		switch {
		case errors.Is(err, chat.ErrEmptyMessage):
			writeError(w, http.StatusBadRequest, "empty_message", "message is required")
		case errors.Is(err, session.ErrInvalidSessionID):
			writeError(w, http.StatusBadRequest, "invalid_session_id", err.Error())
		default:
			h.logger.Error("chat turn failed", "sessionId", req.SessionID, "error", err)
			writeError(w, http.StatusInternalServerError, "internal_error", "failed to process message")
		}
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// HistoryResponse is the payload for GET /api/chat/history/{sessionId}.
type HistoryResponse struct {
	SessionID string            `json:"sessionId"`
	Messages  []session.Message `json:"messages"`
	Total     int               `json:"total"`
}

func (h *ChatHandler) history(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("sessionId")

	messages, err := h.svc.History(r.Context(), sessionID)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrInvalidSessionID):
			writeError(w, http.StatusBadRequest, "invalid_session_id", err.Error())
		case errors.Is(err, session.ErrNotFound):
			writeError(w, http.StatusNotFound, "session_not_found", "session does not exist or has expired")
		default:
			h.logger.Error("failed to load history", "sessionId", sessionID, "error", err)
			writeError(w, http.StatusInternalServerError, "internal_error", "failed to load history")
		}
		return
	}

	writeJSON(w, http.StatusOK, HistoryResponse{
		SessionID: sessionID,
		Messages:  messages,
		Total:     len(messages),
	})
}

func (h *ChatHandler) clearHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("sessionId")

	if err := h.svc.ClearHistory(r.Context(), sessionID); err != nil {
		switch {
		case errors.Is(err, session.ErrInvalidSessionID):
			writeError(w, http.StatusBadRequest, "invalid_session_id", err.Error())
		case errors.Is(err, session.ErrNotFound):
			writeError(w, http.StatusNotFound, "session_not_found", "session does not exist or has expired")
		default:
			h.logger.Error("failed to clear history", "sessionId", sessionID, "error", err)
			writeError(w, http.StatusInternalServerError, "internal_error", "failed to clear history")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"sessionId": sessionID, "status": "cleared"})
}

// StatusResponse reports the state of the retrieval pipeline.
type StatusResponse struct {
	IndexCount     int    `json:"indexCount"`
	IndexDimension int    `json:"indexDimension"`
	IndexStatus    string `json:"indexStatus"`
	EmbedderDim    int    `json:"embedderDimension"`
}

// status reports vector index stats and the embedder dimension. A missing
// index is a valid answer, not an error.
func (h *ChatHandler) status(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.Stats(r.Context())
	if err != nil {
		h.logger.Error("failed to read index stats", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to read index stats")
		return
	}

	writeJSON(w, http.StatusOK, StatusResponse{
		IndexCount:     stats.Count,
		IndexDimension: stats.Dimension,
		IndexStatus:    stats.Status,
		EmbedderDim:    h.embedder.Dimension(),
	})
}
