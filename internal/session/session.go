// Package session manages per-session conversation logs. The log is
// append-only for the lifetime of a session and expires 24 hours after the
// last write. The production implementation stores each session as a Redis
// list plus a scalar "created" marker; consumers depend on the Store
// interface so tests can substitute an in-memory fake.
package session

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

const (
	// TTL is the retention window, refreshed on every write.
	TTL = 24 * time.Hour

	// DefaultContextMessages is how many recent assistant messages feed
	// the retrieval context.
	DefaultContextMessages = 3

	// MaxContextMessageLen bounds each message handed to the retriever.
	MaxContextMessageLen = 1000
)

var (
	// ErrInvalidSessionID indicates a malformed session identifier.
	ErrInvalidSessionID = errors.New("invalid session id")

	// ErrNotFound indicates the session does not exist or has expired.
	ErrNotFound = errors.New("session not found")
)

// sessionIDPattern accepts letters, digits, underscores and hyphens,
// 10 to 100 characters.
var sessionIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{10,100}$`)

// Message is one role-tagged entry in a session's conversation log.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Info summarizes a session's state.
type Info struct {
	SessionID    string
	CreatedAt    time.Time
	MessageCount int
	TTL          time.Duration
}

// Store is the conversation context store contract.
//
// Context never fails: a read error degrades to an empty context string so
// a chat request proceeds without history rather than aborting.
type Store interface {
	// Create registers a session. An empty sessionID generates one; a
	// supplied ID must match the session ID format. Returns the effective ID.
	Create(ctx context.Context, sessionID string) (string, error)

	// Append adds a message to the session log and refreshes the TTL.
	Append(ctx context.Context, sessionID string, msg Message) error

	// Messages returns the full log, oldest first.
	Messages(ctx context.Context, sessionID string) ([]Message, error)

	// Context builds the short-term retrieval context: the most recent
	// maxMessages assistant messages, oldest-to-newest, each truncated to
	// MaxContextMessageLen characters and joined with single spaces.
	Context(ctx context.Context, sessionID string, maxMessages int) string

	// Info returns session metadata, or ErrNotFound.
	Info(ctx context.Context, sessionID string) (Info, error)

	// Delete removes the session and its log, or ErrNotFound.
	Delete(ctx context.Context, sessionID string) error

	// Ping verifies the backing store is reachable.
	Ping(ctx context.Context) error
}

// ValidateID checks the session ID format.
func ValidateID(sessionID string) error {
	if !sessionIDPattern.MatchString(sessionID) {
		return fmt.Errorf("%w: must be 10-100 characters of letters, digits, underscores or hyphens", ErrInvalidSessionID)
	}
	return nil
}

// GenerateID produces a fresh session identifier.
func GenerateID() string {
	return fmt.Sprintf("sess_%d_%s", time.Now().Unix(), uuid.NewString()[:8])
}

// BuildContext assembles the context string from assistant messages ordered
// oldest first. Shared by store implementations.
func BuildContext(assistant []string, maxMessages int) string {
	if maxMessages <= 0 {
		maxMessages = DefaultContextMessages
	}
	if len(assistant) > maxMessages {
		assistant = assistant[len(assistant)-maxMessages:]
	}

	parts := make([]string, 0, len(assistant))
	for _, msg := range assistant {
		if runes := []rune(msg); len(runes) > MaxContextMessageLen {
			msg = string(runes[:MaxContextMessageLen])
		}
		parts = append(parts, msg)
	}
	return strings.Join(parts, " ")
}
