// Package chat implements the study-assistant turn orchestrator: read a
// user's recent history, assemble the prompt, call the completion service,
// persist the new exchange.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fasihullahsaeed729-wq/study-bot/internal/completion"
	"github.com/fasihullahsaeed729-wq/study-bot/internal/memory"
	"github.com/fasihullahsaeed729-wq/study-bot/internal/observability"
	"github.com/fasihullahsaeed729-wq/study-bot/internal/prompt"
)

// ErrMissingUserID rejects turns without a conversation owner.
var ErrMissingUserID = errors.New("user_id is required")

// TurnResult is the outcome of one handled turn.
type TurnResult struct {
	Answer string
	// ExchangeCount is the number of prior (user, assistant) exchanges,
	// computed from the history length before this turn was written. An
	// odd-length history under-reports by the dangling turn; that arithmetic
	// is part of the API contract.
	ExchangeCount int
}

// Service orchestrates a chat turn over its injected collaborators.
//
// There is no per-user locking: two concurrent turns for the same user may
// interleave their history reads and writes. Each store call is individually
// consistent; cross-call ordering for one user is not guaranteed.
type Service struct {
	store        memory.Store
	completions  completion.Client
	metrics      *observability.Metrics
	instruction  string
	historyLimit int
}

func NewService(store memory.Store, completions completion.Client, metrics *observability.Metrics, historyLimit int) *Service {
	if historyLimit <= 0 {
		historyLimit = 10
	}
	return &Service{
		store:        store,
		completions:  completions,
		metrics:      metrics,
		instruction:  prompt.StudyAssistantInstruction,
		historyLimit: historyLimit,
	}
}

// HandleTurn runs one full exchange. The question is forwarded as-is, empty
// included. When clearHistory is set the user's transcript is wiped first and
// the turn proceeds against the now-empty history.
//
// Nothing is written unless the completion succeeds, so a provider failure
// never leaves a dangling user turn in the transcript.
func (s *Service) HandleTurn(ctx context.Context, userID, question string, clearHistory bool) (TurnResult, error) {
	if strings.TrimSpace(userID) == "" {
		s.countTurn("invalid")
		return TurnResult{}, ErrMissingUserID
	}

	if clearHistory {
		// The count is only surfaced by the dedicated clear operation.
		if _, err := s.store.ClearHistory(ctx, userID); err != nil {
			s.countTurn("storage_error")
			return TurnResult{}, fmt.Errorf("clear history: %w", err)
		}
	}

	history, err := s.store.RecentHistory(ctx, userID, s.historyLimit)
	if err != nil {
		s.countTurn("storage_error")
		return TurnResult{}, fmt.Errorf("read history: %w", err)
	}

	messages := prompt.Assemble(s.instruction, historyMessages(history), question)

	started := time.Now()
	answer, err := s.completions.Complete(ctx, messages)
	if err != nil {
		s.countTurn("completion_error")
		return TurnResult{}, fmt.Errorf("complete turn: %w", err)
	}
	if s.metrics != nil {
		s.metrics.ObserveCompletionLatency(time.Since(started))
	}

	if err := s.store.AppendTurn(ctx, memory.TurnRecord{UserID: userID, Role: prompt.RoleUser, Content: question}); err != nil {
		s.countTurn("storage_error")
		return TurnResult{}, fmt.Errorf("save user turn: %w", err)
	}
	if err := s.store.AppendTurn(ctx, memory.TurnRecord{UserID: userID, Role: prompt.RoleAssistant, Content: answer}); err != nil {
		s.countTurn("storage_error")
		return TurnResult{}, fmt.Errorf("save assistant turn: %w", err)
	}

	s.countTurn("ok")
	return TurnResult{
		Answer:        answer,
		ExchangeCount: len(history) / 2,
	}, nil
}

// History returns the user's full transcript in chronological order.
func (s *Service) History(ctx context.Context, userID string) ([]memory.TurnRecord, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrMissingUserID
	}
	return s.store.History(ctx, userID)
}

// Clear wipes the user's transcript and reports how many turns were removed.
func (s *Service) Clear(ctx context.Context, userID string) (int64, error) {
	if strings.TrimSpace(userID) == "" {
		return 0, ErrMissingUserID
	}
	return s.store.ClearHistory(ctx, userID)
}

func (s *Service) countTurn(outcome string) {
	if s.metrics != nil {
		s.metrics.ChatTurns.WithLabelValues(outcome).Inc()
	}
}

func historyMessages(records []memory.TurnRecord) []prompt.Message {
	if len(records) == 0 {
		return nil
	}
	out := make([]prompt.Message, len(records))
	for i, r := range records {
		out[i] = prompt.Message{Role: r.Role, Content: r.Content}
	}
	return out
}
