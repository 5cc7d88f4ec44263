package api

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/koopa0/newsrag/internal/chat"
	"github.com/koopa0/newsrag/internal/log"
	"github.com/koopa0/newsrag/internal/retriever"
	"github.com/koopa0/newsrag/internal/session"
	"github.com/koopa0/newsrag/internal/vectorstore"
)

const testSessionID = "sess_1700000000_abcd1234"

// fakeSessions is an in-memory session.Store for handler tests.
type fakeSessions struct {
	messages map[string][]session.Message
	created  map[string]time.Time
	pingErr  error
	failAll  error
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{
		messages: make(map[string][]session.Message),
		created:  make(map[string]time.Time),
	}
}

func (f *fakeSessions) Create(_ context.Context, sessionID string) (string, error) {
	if f.failAll != nil {
		return "", f.failAll
	}
	if sessionID == "" {
		sessionID = session.GenerateID()
	} else if err := session.ValidateID(sessionID); err != nil {
		return "", err
	}
	if _, ok := f.created[sessionID]; !ok {
		f.created[sessionID] = time.Now()
	}
	return sessionID, nil
}

func (f *fakeSessions) Append(_ context.Context, sessionID string, msg session.Message) error {
	if f.failAll != nil {
		return f.failAll
	}
	if _, ok := f.created[sessionID]; !ok {
		f.created[sessionID] = time.Now()
	}
	f.messages[sessionID] = append(f.messages[sessionID], msg)
	return nil
}

func (f *fakeSessions) Messages(_ context.Context, sessionID string) ([]session.Message, error) {
	if f.failAll != nil {
		return nil, f.failAll
	}
	return f.messages[sessionID], nil
}

func (f *fakeSessions) Context(_ context.Context, sessionID string, maxMessages int) string {
	var assistant []string
	for _, msg := range f.messages[sessionID] {
		if msg.Role == session.RoleAssistant {
			assistant = append(assistant, msg.Content)
		}
	}
	return session.BuildContext(assistant, maxMessages)
}

func (f *fakeSessions) Info(_ context.Context, sessionID string) (session.Info, error) {
	if f.failAll != nil {
		return session.Info{}, f.failAll
	}
	created, ok := f.created[sessionID]
	if !ok {
		return session.Info{}, session.ErrNotFound
	}
	return session.Info{
		SessionID:    sessionID,
		CreatedAt:    created,
		MessageCount: len(f.messages[sessionID]),
		TTL:          session.TTL,
	}, nil
}

func (f *fakeSessions) Delete(_ context.Context, sessionID string) error {
	if f.failAll != nil {
		return f.failAll
	}
	if _, ok := f.created[sessionID]; !ok {
		return session.ErrNotFound
	}
	delete(f.created, sessionID)
	delete(f.messages, sessionID)
	return nil
}

func (f *fakeSessions) Ping(context.Context) error { return f.pingErr }

// fakeRetriever returns canned passages.
type fakeRetriever struct {
	passages []retriever.Passage
}

func (f *fakeRetriever) Retrieve(context.Context, string, string, int) []retriever.Passage {
	return f.passages
}

// fakeComposer echoes the query.
type fakeComposer struct{}

func (fakeComposer) Compose(_ context.Context, query string, _ []retriever.Passage, _ string) string {
	return "answer to: " + query
}

// fakeStore is a stub vectorstore.Store with configurable stats.
type fakeStore struct {
	stats    vectorstore.Stats
	statsErr error
}

func (f *fakeStore) Upsert(context.Context, []vectorstore.Entry) error { return nil }

func (f *fakeStore) Query(context.Context, []float32, int, bool) ([]vectorstore.Match, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeStore) Stats(context.Context) (vectorstore.Stats, error) {
	return f.stats, f.statsErr
}

// fakeEmbedder reports a fixed dimension.
type fakeEmbedder struct{ dim int }

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	v := make([]float32, f.dim)
	for i := range v {
		v[i] = float32(len(text) % 5)
	}
	return v, nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i], _ = f.Embed(ctx, t)
	}
	return out, nil
}

func (f *fakeEmbedder) Dimension() int { return f.dim }

// newTestServer wires a Server around in-memory fakes.
func newTestServer(sessions *fakeSessions, store *fakeStore) *Server {
	svc := chat.New(sessions, &fakeRetriever{passages: []retriever.Passage{{
		Text:  strings.Repeat("context ", 10),
		Title: "Test Article",
		URL:   "https://news.example/a",
		Score: 0.9,
	}}}, fakeComposer{}, 0, log.NewNop())

	return NewServer(svc, sessions, store, &fakeEmbedder{dim: 768}, log.NewNop())
}
