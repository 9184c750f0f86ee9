// Package unanswered records chat messages the knowledge base could not
// answer so the studio can extend its FAQ.
package unanswered

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/studio-concierge/pkg/logging"
)

// ErrEmptyMessage is returned when asked to record a blank message.
var ErrEmptyMessage = errors.New("unanswered: empty message")

const (
	defaultListLimit = 50
	maxListLimit     = 500
	maxMessageLength = 2000
)

// Query is one recorded unanswered message.
type Query struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists unanswered queries in Postgres.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore creates a store backed by db.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// Log records message. Overlong messages are truncated.
func (s *Store) Log(ctx context.Context, message string) error {
	message = strings.TrimSpace(message)
	if message == "" {
		return ErrEmptyMessage
	}
	if s == nil || s.db == nil {
		return fmt.Errorf("unanswered: database not configured")
	}
	message = truncate(message, maxMessageLength)

	query := `
		INSERT INTO unanswered_queries (id, message, created_at)
		VALUES ($1, $2, $3)
	`
	if _, err := s.db.ExecContext(ctx, query, uuid.NewString(), message, s.now()); err != nil {
		return fmt.Errorf("unanswered: failed to log query: %w", err)
	}
	return nil
}

// List returns the most recent queries first. A non-positive limit uses the
// default page size.
func (s *Store) List(ctx context.Context, limit int) ([]Query, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("unanswered: database not configured")
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, message, created_at
		FROM unanswered_queries
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("unanswered: failed to list queries: %w", err)
	}
	defer rows.Close()

	queries := make([]Query, 0, limit)
	for rows.Next() {
		var q Query
		if err := rows.Scan(&q.ID, &q.Message, &q.CreatedAt); err != nil {
			return nil, fmt.Errorf("unanswered: failed to scan query: %w", err)
		}
		queries = append(queries, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("unanswered: failed to iterate queries: %w", err)
	}
	return queries, nil
}

// LogSink records unanswered queries in the application log. It is used
// when no database is configured.
type LogSink struct {
	logger *logging.Logger
}

// NewLogSink creates a sink writing to logger.
func NewLogSink(logger *logging.Logger) *LogSink {
	if logger == nil {
		logger = logging.Default()
	}
	return &LogSink{logger: logger}
}

// Log writes message at info level.
func (s *LogSink) Log(_ context.Context, message string) error {
	message = strings.TrimSpace(message)
	if message == "" {
		return ErrEmptyMessage
	}
	s.logger.Info("unanswered query", "message", truncate(message, maxMessageLength))
	return nil
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen])
}
