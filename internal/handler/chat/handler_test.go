package chat

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sponsorlink/marketplace/backend/internal/middleware"
	"github.com/sponsorlink/marketplace/backend/internal/model/chat"
	"github.com/sponsorlink/marketplace/backend/internal/model/playbook"
	chatservice "github.com/sponsorlink/marketplace/backend/internal/service/chat"
)

func setupRouter(t *testing.T, limiter *middleware.RateLimiter) (*chi.Mux, *chatservice.Service) {
	t.Helper()
	chatSvc := chatservice.NewService(
		playbook.NewMemoryStore(playbook.Seed()),
		chatservice.Options{ReplyDelay: time.Millisecond},
		zap.NewNop(),
	)
	t.Cleanup(chatSvc.Close)

	var mw func(http.Handler) http.Handler
	if limiter != nil {
		mw = limiter.PerSession
	}
	handler := New(chatSvc, mw)

	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	return r, chatSvc
}

func do(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var payload []byte
	if body != nil {
		payload, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func createSession(t *testing.T, r http.Handler) chat.Snapshot {
	t.Helper()
	resp := do(r, http.MethodPost, "/sessions", map[string]string{})
	require.Equal(t, http.StatusCreated, resp.Code)

	var snap chat.Snapshot
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &snap))
	return snap
}

func TestCreateSessionReturnsGreeting(t *testing.T) {
	r, _ := setupRouter(t, nil)

	snap := createSession(t, r)
	assert.NotEmpty(t, snap.SessionID)
	assert.Equal(t, chat.UserTypeUnknown, snap.UserType)
	require.Len(t, snap.Messages, 1)
	assert.Equal(t, chat.SenderBot, snap.Messages[0].Sender)
}

func TestCreateSessionWithoutBody(t *testing.T) {
	r, _ := setupRouter(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/sessions", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusCreated, resp.Code)
}

func TestCreateSessionUnknownPlaybook(t *testing.T) {
	r, _ := setupRouter(t, nil)

	resp := do(r, http.MethodPost, "/sessions", map[string]string{"playbookId": "non-existent"})
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestCreateSessionInvalidBody(t *testing.T) {
	r, _ := setupRouter(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/sessions", bytes.NewReader([]byte("{")))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestAddMessageFlow(t *testing.T) {
	r, _ := setupRouter(t, nil)
	snap := createSession(t, r)

	resp := do(r, http.MethodPost, "/sessions/"+snap.SessionID+"/messages", map[string]string{
		"content": "We're a brand looking to promote",
	})
	require.Equal(t, http.StatusAccepted, resp.Code)

	var msg chat.Message
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &msg))
	assert.Equal(t, chat.SenderUser, msg.Sender)
	assert.Equal(t, 2, msg.Seq)

	require.Eventually(t, func() bool {
		resp := do(r, http.MethodGet, "/sessions/"+snap.SessionID, nil)
		var got chat.Snapshot
		if err := json.Unmarshal(resp.Body.Bytes(), &got); err != nil {
			return false
		}
		return got.UserType == chat.UserTypeBrand && len(got.Messages) == 3
	}, 2*time.Second, 5*time.Millisecond)
}

func TestAddMessageInvalidSender(t *testing.T) {
	r, _ := setupRouter(t, nil)
	snap := createSession(t, r)

	resp := do(r, http.MethodPost, "/sessions/"+snap.SessionID+"/messages", map[string]string{
		"content": "hi",
		"sender":  "admin",
	})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestAddMessageUnknownSession(t *testing.T) {
	r, _ := setupRouter(t, nil)

	resp := do(r, http.MethodPost, "/sessions/missing/messages", map[string]string{"content": "hi"})
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestAddMessageRateLimited(t *testing.T) {
	r, _ := setupRouter(t, middleware.NewRateLimiter(0.001, 1))
	snap := createSession(t, r)

	path := "/sessions/" + snap.SessionID + "/messages"
	assert.Equal(t, http.StatusAccepted, do(r, http.MethodPost, path, map[string]string{"content": "hi"}).Code)
	assert.Equal(t, http.StatusTooManyRequests, do(r, http.MethodPost, path, map[string]string{"content": "hi"}).Code)
}

func TestToggle(t *testing.T) {
	r, _ := setupRouter(t, nil)
	snap := createSession(t, r)

	resp := do(r, http.MethodPost, "/sessions/"+snap.SessionID+"/toggle", nil)
	require.Equal(t, http.StatusOK, resp.Code)

	var body map[string]bool
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.True(t, body["open"])
}

func TestCloseSession(t *testing.T) {
	r, svc := setupRouter(t, nil)
	snap := createSession(t, r)

	resp := do(r, http.MethodDelete, "/sessions/"+snap.SessionID, nil)
	assert.Equal(t, http.StatusNoContent, resp.Code)
	assert.Equal(t, 0, svc.Len())

	resp = do(r, http.MethodGet, "/sessions/"+snap.SessionID, nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}
