// Package webchat exposes the chat engine over HTTP and WebSocket.
package webchat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/websocket"

	"github.com/wolfman30/studio-concierge/internal/http/middleware"
	"github.com/wolfman30/studio-concierge/internal/transcript"
	"github.com/wolfman30/studio-concierge/pkg/logging"
)

const (
	maxBodyBytes        = 16 << 10
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// Replier computes the reply to one message from a conversant.
type Replier interface {
	Reply(ctx context.Context, identity, message string) string
}

// TranscriptStore records and reads chat history.
type TranscriptStore interface {
	Append(ctx context.Context, identity string, msgs ...transcript.Message) error
	List(ctx context.Context, identity string, limit int64) ([]transcript.Message, error)
}

// Limiter decides whether a conversant may send another message.
type Limiter interface {
	Allow(identity string) bool
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithLimiter throttles messages received over the socket. POST requests
// are limited by the router middleware instead.
func WithLimiter(l Limiter) HandlerOption {
	return func(h *Handler) { h.limiter = l }
}

// Handler serves the chat endpoints. Conversants are identified by their
// network address, so every transport shares one session per address.
type Handler struct {
	replier    Replier
	transcript TranscriptStore
	greeting   []string
	limiter    Limiter
	logger     *logging.Logger
}

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Message *string `json:"message"`
}

// ChatResponse is the body returned for every processed message.
type ChatResponse struct {
	Reply string `json:"reply"`
}

// InboundMessage is what the widget sends over the socket.
type InboundMessage struct {
	Type    string `json:"type"` // "message", "ping"
	Message string `json:"message"`
}

// OutboundMessage is what we send to the widget over the socket.
type OutboundMessage struct {
	Type      string           `json:"type"` // "greeting", "history", "message", "pong", "error"
	Text      string           `json:"text,omitempty"`
	Role      string           `json:"role,omitempty"`
	Timestamp string           `json:"timestamp,omitempty"`
	Messages  []HistoryMessage `json:"messages,omitempty"`
	Greeting  []string         `json:"greeting,omitempty"`
}

// HistoryMessage is a simplified message for history responses.
type HistoryMessage struct {
	Role      string `json:"role"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

// DefaultGreeting returns the messages the widget shows when it opens.
func DefaultGreeting(studioName string) []string {
	if strings.TrimSpace(studioName) == "" {
		studioName = "our studio"
	}
	return []string{
		fmt.Sprintf("Hello and welcome to %s!", studioName),
		"Please note: your messages are processed to answer your question and, if you book, to forward your request to the studio.",
		"To request an appointment just write 'book an appointment'.",
		"How can I help you today?",
	}
}

// NewHandler creates a chat handler. transcript may be nil.
func NewHandler(replier Replier, transcript TranscriptStore, greeting []string, logger *logging.Logger, opts ...HandlerOption) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	if len(greeting) == 0 {
		greeting = DefaultGreeting("")
	}
	h := &Handler{
		replier:    replier,
		transcript: transcript,
		greeting:   greeting,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// HandleChat processes one message: POST {"message": "..."} -> {"reply": "..."}.
func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	message, err := decodeChatRequest(w, r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	reply := h.process(r.Context(), middleware.ClientIP(r), message)
	writeJSON(w, http.StatusOK, ChatResponse{Reply: reply})
}

func decodeChatRequest(w http.ResponseWriter, r *http.Request) (string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return "", errors.New("request body required")
		}
		return "", errors.New("invalid request body")
	}
	if req.Message == nil {
		return "", errors.New("message is required")
	}
	if strings.TrimSpace(*req.Message) == "" {
		return "", errors.New("message must not be empty")
	}
	return *req.Message, nil
}

// HandleGreeting returns the widget's opening messages.
func (h *Handler) HandleGreeting(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"messages": h.greeting})
}

// HandleHistory returns the caller's recent chat history.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	limit := int64(defaultHistoryLimit)
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	history, err := h.history(r.Context(), middleware.ClientIP(r), limit)
	if err != nil {
		h.logger.Error("webchat: failed to load history", "error", err)
		http.Error(w, "failed to load history", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": history})
}

// HandleWebSocket upgrades to WebSocket and handles real-time messaging.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(func(conn *websocket.Conn) {
		h.serveWS(conn, r)
	}).ServeHTTP(w, r)
}

func (h *Handler) serveWS(conn *websocket.Conn, r *http.Request) {
	ctx := r.Context()
	identity := middleware.ClientIP(r)

	_ = websocket.JSON.Send(conn, OutboundMessage{Type: "greeting", Greeting: h.greeting})
	if history, err := h.history(ctx, identity, defaultHistoryLimit); err == nil && len(history) > 0 {
		_ = websocket.JSON.Send(conn, OutboundMessage{Type: "history", Messages: history})
	}

	h.logger.Info("webchat: connection opened", "identity", identity)

	for {
		var msg InboundMessage
		if err := websocket.JSON.Receive(conn, &msg); err != nil {
			h.logger.Debug("webchat: connection closed", "identity", identity, "error", err)
			return
		}

		switch msg.Type {
		case "ping":
			_ = websocket.JSON.Send(conn, OutboundMessage{Type: "pong"})
			continue
		case "message":
		default:
			_ = websocket.JSON.Send(conn, OutboundMessage{Type: "error", Text: "unsupported message type"})
			continue
		}
		if strings.TrimSpace(msg.Message) == "" {
			_ = websocket.JSON.Send(conn, OutboundMessage{Type: "error", Text: "message must not be empty"})
			continue
		}
		if h.limiter != nil && !h.limiter.Allow(identity) {
			_ = websocket.JSON.Send(conn, OutboundMessage{Type: "error", Text: "rate limit exceeded"})
			continue
		}

		reply := h.process(ctx, identity, msg.Message)
		if err := websocket.JSON.Send(conn, OutboundMessage{
			Type:      "message",
			Role:      transcript.RoleAssistant,
			Text:      reply,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}); err != nil {
			h.logger.Debug("webchat: failed to send reply", "identity", identity, "error", err)
			return
		}
	}
}

func (h *Handler) process(ctx context.Context, identity, message string) string {
	received := time.Now().UTC()
	reply := h.replier.Reply(ctx, identity, message)

	if h.transcript != nil {
		err := h.transcript.Append(ctx, identity,
			transcript.Message{Role: transcript.RoleUser, Body: message, Timestamp: received},
			transcript.Message{Role: transcript.RoleAssistant, Body: reply, Timestamp: time.Now().UTC()},
		)
		if err != nil {
			h.logger.Warn("webchat: failed to record transcript", "identity", identity, "error", err)
		}
	}
	return reply
}

func (h *Handler) history(ctx context.Context, identity string, limit int64) ([]HistoryMessage, error) {
	if h.transcript == nil {
		return []HistoryMessage{}, nil
	}
	msgs, err := h.transcript.List(ctx, identity, limit)
	if err != nil {
		return nil, err
	}
	history := make([]HistoryMessage, 0, len(msgs))
	for _, m := range msgs {
		history = append(history, HistoryMessage{
			Role:      m.Role,
			Text:      m.Body,
			Timestamp: m.Timestamp.Format(time.RFC3339),
		})
	}
	return history, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
