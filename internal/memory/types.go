package memory

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable indicates the backing store could not be reached or the
// operation failed at the storage layer.
var ErrUnavailable = errors.New("memory store unavailable")

// TurnRecord stores a single user or assistant conversational turn.
type TurnRecord struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists and retrieves conversational memory. Turns are immutable
// once written; they are only ever inserted or bulk-deleted per user.
type Store interface {
	// AppendTurn durably writes one turn before returning. A RecentHistory
	// call issued afterwards in the same process observes the write.
	AppendTurn(ctx context.Context, record TurnRecord) error
	// RecentHistory returns at most limit most-recent turns for the user in
	// chronological order. limit <= 0 applies the default of 10. Unknown
	// users yield an empty result, not an error.
	RecentHistory(ctx context.Context, userID string, limit int) ([]TurnRecord, error)
	// History returns the user's full transcript in chronological order.
	History(ctx context.Context, userID string) ([]TurnRecord, error)
	// ClearHistory deletes every turn for the user and reports how many were
	// removed. Clearing an empty history returns 0.
	ClearHistory(ctx context.Context, userID string) (int64, error)
	Close() error
}

const defaultHistoryLimit = 10
