// Package transcript keeps a bounded chat history per conversant in Redis.
package transcript

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	keyPrefix          = "chat_transcript:"
	defaultTTL         = 7 * 24 * time.Hour
	defaultMaxMessages = 200
)

// Roles of transcript messages.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ErrIdentityRequired is returned when no conversant identity is given.
var ErrIdentityRequired = errors.New("transcript: identity required")

// Message is one turn of a conversation.
type Message struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Body      string    `json:"body"`
	Timestamp time.Time `json:"timestamp"`
}

// Store appends and lists transcript messages. A nil *Store is valid and
// records nothing.
type Store struct {
	redis       *redis.Client
	tracer      trace.Tracer
	ttl         time.Duration
	maxMessages int64
}

// NewStore returns a store using redisClient, or nil if the client is nil.
func NewStore(redisClient *redis.Client) *Store {
	if redisClient == nil {
		return nil
	}
	return &Store{
		redis:       redisClient,
		tracer:      otel.Tracer("studio.internal.transcript"),
		ttl:         defaultTTL,
		maxMessages: defaultMaxMessages,
	}
}

// Append adds msgs to the identity's transcript, refreshing its expiry and
// trimming it to the most recent messages.
func (s *Store) Append(ctx context.Context, identity string, msgs ...Message) error {
	if s == nil || s.redis == nil || len(msgs) == 0 {
		return nil
	}
	if identity == "" {
		return ErrIdentityRequired
	}

	values := make([]interface{}, 0, len(msgs))
	for _, msg := range msgs {
		if msg.ID == "" {
			msg.ID = uuid.NewString()
		}
		if msg.Timestamp.IsZero() {
			msg.Timestamp = time.Now().UTC()
		}
		data, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("transcript: marshal message: %w", err)
		}
		values = append(values, data)
	}

	ctx, span := s.tracer.Start(ctx, "transcript.append", trace.WithAttributes(attribute.Int("messages", len(values))))
	defer span.End()

	key := transcriptKey(identity)
	pipe := s.redis.TxPipeline()
	pipe.RPush(ctx, key, values...)
	pipe.Expire(ctx, key, s.ttl)
	if s.maxMessages > 0 {
		pipe.LTrim(ctx, key, -s.maxMessages, -1)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		span.RecordError(err)
		return fmt.Errorf("transcript: append: %w", err)
	}
	return nil
}

// List returns up to limit of the most recent messages, oldest first. A
// non-positive limit returns the whole transcript.
func (s *Store) List(ctx context.Context, identity string, limit int64) ([]Message, error) {
	if s == nil || s.redis == nil {
		return []Message{}, nil
	}
	if identity == "" {
		return nil, ErrIdentityRequired
	}

	ctx, span := s.tracer.Start(ctx, "transcript.list")
	defer span.End()

	start := int64(0)
	if limit > 0 {
		start = -limit
	}

	raw, err := s.redis.LRange(ctx, transcriptKey(identity), start, -1).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []Message{}, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("transcript: list: %w", err)
	}

	out := make([]Message, 0, len(raw))
	for _, item := range raw {
		var msg Message
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			span.RecordError(err)
			continue
		}
		out = append(out, msg)
	}
	return out, nil
}

func transcriptKey(identity string) string {
	return keyPrefix + identity
}
