package chat

import (
	"context"
	"errors"
	"testing"

	"github.com/koopa0/newsrag/internal/log"
	"github.com/koopa0/newsrag/internal/retriever"
	"github.com/koopa0/newsrag/internal/session"
)

// fakeSessions implements session.Store in memory.
type fakeSessions struct {
	logs       map[string][]session.Message
	appendErr  error
	contextVal string
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{logs: map[string][]session.Message{}}
}

func (f *fakeSessions) Create(_ context.Context, sessionID string) (string, error) {
	if sessionID == "" {
		sessionID = session.GenerateID()
	}
	f.logs[sessionID] = nil
	return sessionID, nil
}

func (f *fakeSessions) Append(_ context.Context, sessionID string, msg session.Message) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.logs[sessionID] = append(f.logs[sessionID], msg)
	return nil
}

func (f *fakeSessions) Messages(_ context.Context, sessionID string) ([]session.Message, error) {
	return f.logs[sessionID], nil
}

func (f *fakeSessions) Context(_ context.Context, _ string, _ int) string {
	return f.contextVal
}

func (f *fakeSessions) Info(_ context.Context, sessionID string) (session.Info, error) {
	return session.Info{SessionID: sessionID}, nil
}

func (f *fakeSessions) Delete(_ context.Context, sessionID string) error {
	if _, ok := f.logs[sessionID]; !ok {
		return session.ErrNotFound
	}
	delete(f.logs, sessionID)
	return nil
}

func (f *fakeSessions) Ping(context.Context) error { return nil }

type fakeRetriever struct {
	passages []retriever.Passage
	lastCtx  string
}

func (f *fakeRetriever) Retrieve(_ context.Context, _, conversationContext string, _ int) []retriever.Passage {
	f.lastCtx = conversationContext
	return f.passages
}

type fakeComposer struct {
	answer       string
	lastPassages []retriever.Passage
}

func (f *fakeComposer) Compose(_ context.Context, _ string, passages []retriever.Passage, _ string) string {
	f.lastPassages = passages
	return f.answer
}

const testSessionID = "sess_1700000000_abcd1234"

func newService(sessions *fakeSessions, ret *fakeRetriever, comp *fakeComposer) *Service {
	return New(sessions, ret, comp, 3, log.NewNop())
}

func TestHandleMessage_FullTurn(t *testing.T) {
	sessions := newFakeSessions()
	sessions.contextVal = "prior answer"
	ret := &fakeRetriever{passages: []retriever.Passage{{Text: "chunk", Title: "Article A"}}}
	comp := &fakeComposer{answer: "grounded answer"}

	result, err := newService(sessions, ret, comp).HandleMessage(context.Background(), testSessionID, " what happened? ")
	if err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if result.Response != "grounded answer" {
		t.Errorf("Response = %q", result.Response)
	}
	if result.SessionID != testSessionID {
		t.Errorf("SessionID = %q", result.SessionID)
	}
	if len(result.Passages) != 1 {
		t.Errorf("Passages = %v", result.Passages)
	}
	if ret.lastCtx != "prior answer" {
		t.Errorf("retriever context = %q, want session context", ret.lastCtx)
	}
	if len(comp.lastPassages) != 1 {
		t.Error("composer did not receive the retrieved passages")
	}

	logged := sessions.logs[testSessionID]
	if len(logged) != 2 {
		t.Fatalf("logged %d messages, want user + assistant", len(logged))
	}
	if logged[0].Role != session.RoleUser || logged[0].Content != "what happened?" {
		t.Errorf("user message = %+v (should be trimmed)", logged[0])
	}
	if logged[1].Role != session.RoleAssistant || logged[1].Content != "grounded answer" {
		t.Errorf("assistant message = %+v", logged[1])
	}
}

func TestHandleMessage_RejectsEmptyMessage(t *testing.T) {
	svc := newService(newFakeSessions(), &fakeRetriever{}, &fakeComposer{answer: "x"})
	if _, err := svc.HandleMessage(context.Background(), testSessionID, "   "); !errors.Is(err, ErrEmptyMessage) {
		t.Errorf("expected ErrEmptyMessage, got %v", err)
	}
}

func TestHandleMessage_RejectsInvalidSessionID(t *testing.T) {
	svc := newService(newFakeSessions(), &fakeRetriever{}, &fakeComposer{answer: "x"})
	if _, err := svc.HandleMessage(context.Background(), "bad", "question"); !errors.Is(err, session.ErrInvalidSessionID) {
		t.Errorf("expected ErrInvalidSessionID, got %v", err)
	}
}

func TestHandleMessage_SurvivesSessionWriteFailure(t *testing.T) {
	sessions := newFakeSessions()
	sessions.appendErr = errors.New("redis down")
	comp := &fakeComposer{answer: "still answered"}

	result, err := newService(sessions, &fakeRetriever{}, comp).HandleMessage(context.Background(), testSessionID, "question")
	if err != nil {
		t.Fatalf("HandleMessage should survive store failure: %v", err)
	}
	if result.Response != "still answered" {
		t.Errorf("Response = %q", result.Response)
	}
}

func TestHandleMessage_NoPassages(t *testing.T) {
	comp := &fakeComposer{answer: "insufficient info answer"}
	result, err := newService(newFakeSessions(), &fakeRetriever{}, comp).HandleMessage(context.Background(), testSessionID, "question")
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Passages) != 0 {
		t.Errorf("expected no passages, got %v", result.Passages)
	}
}

func TestHistory_Validation(t *testing.T) {
	svc := newService(newFakeSessions(), &fakeRetriever{}, &fakeComposer{})
	if _, err := svc.History(context.Background(), "bad"); !errors.Is(err, session.ErrInvalidSessionID) {
		t.Errorf("expected ErrInvalidSessionID, got %v", err)
	}
}

func TestClearHistory(t *testing.T) {
	sessions := newFakeSessions()
	svc := newService(sessions, &fakeRetriever{}, &fakeComposer{answer: "x"})

	if err := svc.ClearHistory(context.Background(), testSessionID); !errors.Is(err, session.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown session, got %v", err)
	}

	_, _ = svc.HandleMessage(context.Background(), testSessionID, "question")
	if err := svc.ClearHistory(context.Background(), testSessionID); err != nil {
		t.Fatalf("ClearHistory: %v", err)
	}
	if _, ok := sessions.logs[testSessionID]; ok {
		t.Error("history not cleared")
	}
}
