package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionCreate_GeneratedID(t *testing.T) {
	srv := newTestServer(newFakeSessions(), &fakeStore{})

	req := httptest.NewRequest(http.MethodPost, "/api/session", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, strings.HasPrefix(resp["sessionId"], "sess_"), "sessionId = %q", resp["sessionId"])
}

func TestSessionCreate_ClientSuppliedID(t *testing.T) {
	srv := newTestServer(newFakeSessions(), &fakeStore{})
	body := `{"sessionId": "` + testSessionID + `"}`

	req := httptest.NewRequest(http.MethodPost, "/api/session", strings.NewReader(body))
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), testSessionID)
}

func TestSessionCreate_InvalidID(t *testing.T) {
	srv := newTestServer(newFakeSessions(), &fakeStore{})
	body := `{"sessionId": "no spaces allowed"}`

	req := httptest.NewRequest(http.MethodPost, "/api/session", strings.NewReader(body))
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid_session_id")
}

func TestSessionInfo_OK(t *testing.T) {
	sessions := newFakeSessions()
	sessions.created[testSessionID] = time.Now()
	srv := newTestServer(sessions, &fakeStore{})

	req := httptest.NewRequest(http.MethodGet, "/api/session/"+testSessionID, nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp SessionInfoResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, testSessionID, resp.SessionID)
	assert.Equal(t, int64((24 * time.Hour).Seconds()), resp.TTLSeconds)
}

func TestSessionInfo_NotFound(t *testing.T) {
	srv := newTestServer(newFakeSessions(), &fakeStore{})

	req := httptest.NewRequest(http.MethodGet, "/api/session/"+testSessionID, nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "session_not_found")
}

func TestSessionDelete_OK(t *testing.T) {
	sessions := newFakeSessions()
	sessions.created[testSessionID] = time.Now()
	srv := newTestServer(sessions, &fakeStore{})

	req := httptest.NewRequest(http.MethodDelete, "/api/session/"+testSessionID, nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, sessions.created, testSessionID)
}

func TestSessionDelete_NotFound(t *testing.T) {
	srv := newTestServer(newFakeSessions(), &fakeStore{})

	req := httptest.NewRequest(http.MethodDelete, "/api/session/"+testSessionID, nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
