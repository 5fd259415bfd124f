// Package session persists conversation history as question/answer
// exchanges keyed by session ID, backed by PostgreSQL.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/lectern-ai/lectern/internal/log"
)

// ErrInvalidSessionID reports a session ID that is not a valid UUID.
var ErrInvalidSessionID = errors.New("invalid session ID")

// Querier defines the database operations Store depends on. Interfaces are
// defined by the consumer, which keeps Store testable against a fake.
type Querier interface {
	CreateSession(ctx context.Context) (pgtype.UUID, error)
	EnsureSession(ctx context.Context, id pgtype.UUID) error
	InsertExchange(ctx context.Context, arg InsertExchangeParams) error
	ListRecentExchanges(ctx context.Context, arg ListRecentExchangesParams) ([]ExchangeRow, error)
	ClearExchanges(ctx context.Context, sessionID pgtype.UUID) error
}

// Store manages conversation sessions.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	queries    Querier
	logger     log.Logger
	maxHistory int
}

// NewStore creates a Store. maxHistory caps how many exchanges History
// returns; values below 1 fall back to 2.
func NewStore(querier Querier, logger log.Logger, maxHistory int) *Store {
	if logger == nil {
		logger = log.NewNop()
	}
	if maxHistory < 1 {
		maxHistory = 2
	}
	return &Store{
		queries:    querier,
		logger:     logger,
		maxHistory: maxHistory,
	}
}

// Create starts a new session and returns its ID.
func (s *Store) Create(ctx context.Context) (string, error) {
	id, err := s.queries.CreateSession(ctx)
	if err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}

	sessionID := uuid.UUID(id.Bytes).String()
	s.logger.Debug("session created", "session_id", sessionID)
	return sessionID, nil
}

// History returns the session's recent exchanges formatted for prompt
// injection:
//
//	User: <question>
//	Assistant: <answer>
//
// Exchanges appear oldest first. An unknown session yields an empty string.
func (s *Store) History(ctx context.Context, sessionID string) (string, error) {
	id, err := parseSessionID(sessionID)
	if err != nil {
		return "", err
	}

	rows, err := s.queries.ListRecentExchanges(ctx, ListRecentExchangesParams{
		SessionID:   id,
		ResultLimit: int32(s.maxHistory),
	})
	if err != nil {
		return "", fmt.Errorf("list exchanges: %w", err)
	}

	parts := make([]string, 0, len(rows))
	for _, row := range rows {
		parts = append(parts, fmt.Sprintf("User: %s\nAssistant: %s", row.UserText, row.AssistantText))
	}
	return strings.Join(parts, "\n"), nil
}

// AddExchange appends a completed question/answer pair. The session row is
// created on first use, so client-supplied IDs work without a prior Create.
func (s *Store) AddExchange(ctx context.Context, sessionID, userText, assistantText string) error {
	id, err := parseSessionID(sessionID)
	if err != nil {
		return err
	}

	if err := s.queries.EnsureSession(ctx, id); err != nil {
		return fmt.Errorf("ensure session: %w", err)
	}
	err = s.queries.InsertExchange(ctx, InsertExchangeParams{
		SessionID:     id,
		UserText:      userText,
		AssistantText: assistantText,
	})
	if err != nil {
		return fmt.Errorf("insert exchange: %w", err)
	}
	return nil
}

// Clear removes a session's conversation history. The session ID remains
// valid for future exchanges.
func (s *Store) Clear(ctx context.Context, sessionID string) error {
	id, err := parseSessionID(sessionID)
	if err != nil {
		return err
	}

	if err := s.queries.ClearExchanges(ctx, id); err != nil {
		return fmt.Errorf("clear exchanges: %w", err)
	}
	s.logger.Debug("session cleared", "session_id", sessionID)
	return nil
}

func parseSessionID(sessionID string) (pgtype.UUID, error) {
	parsed, err := uuid.Parse(sessionID)
	if err != nil {
		return pgtype.UUID{}, fmt.Errorf("%w: %q", ErrInvalidSessionID, sessionID)
	}
	return pgtype.UUID{Bytes: parsed, Valid: true}, nil
}
