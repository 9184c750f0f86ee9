package webchat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"

	"github.com/wolfman30/studio-concierge/internal/transcript"
	"github.com/wolfman30/studio-concierge/pkg/logging"
)

// echoReplier answers with the identity and message it received.
type echoReplier struct {
	mu    sync.Mutex
	calls []string
}

func (e *echoReplier) Reply(_ context.Context, identity, message string) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, identity+"|"+message)
	return "echo: " + message
}

// mockTranscript stores messages in memory.
type mockTranscript struct {
	mu    sync.Mutex
	store map[string][]transcript.Message
	err   error
}

func newMockTranscript() *mockTranscript {
	return &mockTranscript{store: make(map[string][]transcript.Message)}
}

func (m *mockTranscript) Append(_ context.Context, identity string, msgs ...transcript.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.store[identity] = append(m.store[identity], msgs...)
	return nil
}

func (m *mockTranscript) List(_ context.Context, identity string, limit int64) ([]transcript.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	msgs := m.store[identity]
	if limit > 0 && int64(len(msgs)) > limit {
		msgs = msgs[int64(len(msgs))-limit:]
	}
	return msgs, nil
}

func newTestHandler(t *testing.T) (*Handler, *echoReplier, *mockTranscript) {
	t.Helper()
	replier := &echoReplier{}
	tr := newMockTranscript()
	return NewHandler(replier, tr, DefaultGreeting("Wellness Studio"), logging.New("error")), replier, tr
}

func postChat(h *Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(body))
	req.RemoteAddr = "192.0.2.10:43210"
	rec := httptest.NewRecorder()
	h.HandleChat(rec, req)
	return rec
}

func TestHandleChat_ReturnsReply(t *testing.T) {
	h, replier, tr := newTestHandler(t)

	rec := postChat(h, `{"message":"When are you open?"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var resp ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "echo: When are you open?", resp.Reply)

	assert.Equal(t, []string{"192.0.2.10|When are you open?"}, replier.calls)
	require.Len(t, tr.store["192.0.2.10"], 2)
	assert.Equal(t, transcript.RoleUser, tr.store["192.0.2.10"][0].Role)
	assert.Equal(t, transcript.RoleAssistant, tr.store["192.0.2.10"][1].Role)
}

func TestHandleChat_RejectsBadPayloads(t *testing.T) {
	cases := map[string]string{
		"empty body":      ``,
		"invalid json":    `{"message":`,
		"missing message": `{"text":"hi"}`,
		"blank message":   `{"message":"   "}`,
		"wrong type":      `{"message":42}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			h, replier, _ := newTestHandler(t)
			rec := postChat(h, body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Empty(t, replier.calls)
		})
	}
}

func TestHandleChat_TranscriptFailureDoesNotAffectReply(t *testing.T) {
	h, _, tr := newTestHandler(t)
	tr.err = errors.New("redis down")

	rec := postChat(h, `{"message":"hi"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "echo: hi")
}

func TestHandleChat_WithoutTranscript(t *testing.T) {
	h := NewHandler(&echoReplier{}, nil, nil, logging.New("error"))
	rec := postChat(h, `{"message":"hi"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleGreeting(t *testing.T) {
	h, _, _ := newTestHandler(t)
	rec := httptest.NewRecorder()
	h.HandleGreeting(rec, httptest.NewRequest(http.MethodGet, "/api/chat/greeting", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Messages []string `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Messages, 4)
	assert.Contains(t, resp.Messages[0], "Wellness Studio")
}

func TestHandleHistory(t *testing.T) {
	h, _, _ := newTestHandler(t)
	postChat(h, `{"message":"one"}`)
	postChat(h, `{"message":"two"}`)

	req := httptest.NewRequest(http.MethodGet, "/api/chat/history?limit=2", nil)
	req.RemoteAddr = "192.0.2.10:1111"
	rec := httptest.NewRecorder()
	h.HandleHistory(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Messages []HistoryMessage `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Messages, 2)
	assert.Equal(t, "two", resp.Messages[0].Text)
	assert.Equal(t, "echo: two", resp.Messages[1].Text)
}

func TestHandleHistory_InvalidLimit(t *testing.T) {
	h, _, _ := newTestHandler(t)
	rec := httptest.NewRecorder()
	h.HandleHistory(rec, httptest.NewRequest(http.MethodGet, "/api/chat/history?limit=abc", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleHistory_StoreError(t *testing.T) {
	h, _, tr := newTestHandler(t)
	tr.err = errors.New("redis down")
	rec := httptest.NewRecorder()
	h.HandleHistory(rec, httptest.NewRequest(http.MethodGet, "/api/chat/history", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHandleWebSocket(t *testing.T) {
	h, replier, _ := newTestHandler(t)
	server := httptest.NewServer(http.HandlerFunc(h.HandleWebSocket))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, err := websocket.Dial(wsURL, "", server.URL)
	require.NoError(t, err)
	defer conn.Close()

	var greeting OutboundMessage
	require.NoError(t, websocket.JSON.Receive(conn, &greeting))
	assert.Equal(t, "greeting", greeting.Type)
	assert.Len(t, greeting.Greeting, 4)

	require.NoError(t, websocket.JSON.Send(conn, InboundMessage{Type: "ping"}))
	var pong OutboundMessage
	require.NoError(t, websocket.JSON.Receive(conn, &pong))
	assert.Equal(t, "pong", pong.Type)

	require.NoError(t, websocket.JSON.Send(conn, InboundMessage{Type: "message", Message: "  "}))
	var rejected OutboundMessage
	require.NoError(t, websocket.JSON.Receive(conn, &rejected))
	assert.Equal(t, "error", rejected.Type)

	require.NoError(t, websocket.JSON.Send(conn, InboundMessage{Type: "message", Message: "hello"}))
	var reply OutboundMessage
	require.NoError(t, websocket.JSON.Receive(conn, &reply))
	assert.Equal(t, "message", reply.Type)
	assert.Equal(t, "echo: hello", reply.Text)
	assert.Equal(t, transcript.RoleAssistant, reply.Role)

	replier.mu.Lock()
	defer replier.mu.Unlock()
	require.Len(t, replier.calls, 1)
	assert.True(t, strings.HasPrefix(replier.calls[0], "127.0.0.1|"))
}

// countingLimiter allows the first n calls.
type countingLimiter struct {
	mu    sync.Mutex
	n     int
	calls []string
}

func (l *countingLimiter) Allow(identity string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, identity)
	return len(l.calls) <= l.n
}

func TestHandleWebSocket_RateLimitsFrames(t *testing.T) {
	replier := &echoReplier{}
	limiter := &countingLimiter{n: 1}
	h := NewHandler(replier, nil, nil, logging.New("error"), WithLimiter(limiter))
	server := httptest.NewServer(http.HandlerFunc(h.HandleWebSocket))
	defer server.Close()

	conn, err := websocket.Dial("ws"+strings.TrimPrefix(server.URL, "http"), "", server.URL)
	require.NoError(t, err)
	defer conn.Close()

	var greeting OutboundMessage
	require.NoError(t, websocket.JSON.Receive(conn, &greeting))

	for _, text := range []string{"first", "second"} {
		require.NoError(t, websocket.JSON.Send(conn, InboundMessage{Type: "message", Message: text}))
	}

	var first, second OutboundMessage
	require.NoError(t, websocket.JSON.Receive(conn, &first))
	require.NoError(t, websocket.JSON.Receive(conn, &second))
	assert.Equal(t, "echo: first", first.Text)
	assert.Equal(t, "error", second.Type)
	assert.Equal(t, "rate limit exceeded", second.Text)

	// Pings do not consume the budget.
	require.NoError(t, websocket.JSON.Send(conn, InboundMessage{Type: "ping"}))
	var pong OutboundMessage
	require.NoError(t, websocket.JSON.Receive(conn, &pong))
	assert.Equal(t, "pong", pong.Type)

	replier.mu.Lock()
	assert.Equal(t, []string{"127.0.0.1|first"}, replier.calls)
	replier.mu.Unlock()

	limiter.mu.Lock()
	assert.Equal(t, []string{"127.0.0.1", "127.0.0.1"}, limiter.calls)
	limiter.mu.Unlock()
}
