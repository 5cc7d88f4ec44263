// Package chat orchestrates one conversational turn: validate the request,
// log the user message, build short-term context, retrieve relevant
// passages, compose a grounded answer, and log it back to the session.
//
// Only validation failures propagate as errors. Retrieval and generation
// degrade inside their own packages, and session writes are best-effort so
// a hiccup in the context store never breaks the chat flow.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/koopa0/newsrag/internal/retriever"
	"github.com/koopa0/newsrag/internal/session"
)

// ErrEmptyMessage indicates a blank chat message.
var ErrEmptyMessage = errors.New("message must not be empty")

// Retriever is the passage retrieval contract, defined here by its consumer.
type Retriever interface {
	Retrieve(ctx context.Context, query, conversationContext string, topK int) []retriever.Passage
}

// Composer is the answer composition contract.
type Composer interface {
	Compose(ctx context.Context, query string, passages []retriever.Passage, conversationContext string) string
}

// Result is one completed chat turn.
type Result struct {
	Response  string              `json:"response"`
	Passages  []retriever.Passage `json:"relevantArticles"`
	SessionID string              `json:"sessionId"`
	Timestamp time.Time           `json:"timestamp"`
}

// Service wires the conversation store, retriever and composer.
type Service struct {
	sessions        session.Store
	retriever       Retriever
	composer        Composer
	contextMessages int
	logger          *slog.Logger
}

// New creates a chat Service. contextMessages <= 0 selects the session
// package default.
func New(sessions session.Store, ret Retriever, comp Composer, contextMessages int, logger *slog.Logger) *Service {
	if contextMessages <= 0 {
		contextMessages = session.DefaultContextMessages
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		sessions:        sessions,
		retriever:       ret,
		composer:        comp,
		contextMessages: contextMessages,
		logger:          logger,
	}
}

// HandleMessage runs one chat turn for the session. It returns an error
// only for invalid input; degraded retrieval or generation still produces
// a Result.
func (s *Service) HandleMessage(ctx context.Context, sessionID, message string) (Result, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return Result{}, ErrEmptyMessage
	}
	if err := session.ValidateID(sessionID); err != nil {
		return Result{}, err
	}

	// Session writes are best-effort: losing a log entry is better than
	// failing the whole turn.
	s.appendMessage(ctx, sessionID, session.RoleUser, message)

	conversationContext := s.sessions.Context(ctx, sessionID, s.contextMessages)
	s.logger.Debug("built conversation context", "sessionId", sessionID, "length", len(conversationContext))

	passages := s.retriever.Retrieve(ctx, message, conversationContext, 0)
	s.logger.Info("retrieved passages", "sessionId", sessionID, "count", len(passages))

	response := s.composer.Compose(ctx, message, passages, conversationContext)

	s.appendMessage(ctx, sessionID, session.RoleAssistant, response)

	return Result{
		Response:  response,
		Passages:  passages,
		SessionID: sessionID,
		Timestamp: time.Now().UTC(),
	}, nil
}

func (s *Service) appendMessage(ctx context.Context, sessionID, role, content string) {
	err := s.sessions.Append(ctx, sessionID, session.Message{Role: role, Content: content})
	if err != nil {
		s.logger.Warn("failed to store message", "sessionId", sessionID, "role", role, "error", err)
	}
}

// History returns the session's full message log, oldest first.
func (s *Service) History(ctx context.Context, sessionID string) ([]session.Message, error) {
	if err := session.ValidateID(sessionID); err != nil {
		return nil, err
	}
	messages, err := s.sessions.Messages(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}
	return messages, nil
}

// ClearHistory removes the session log.
func (s *Service) ClearHistory(ctx context.Context, sessionID string) error {
	if err := session.ValidateID(sessionID); err != nil {
		return err
	}
	return s.sessions.Delete(ctx, sessionID)
}
