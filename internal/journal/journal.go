// Package journal records every submission that reached the node and tracks
// its confirmation outcome.
package journal

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when no entry exists for a transaction id.
	ErrNotFound = errors.New("journal entry not found")

	// ErrDuplicate indicates the transaction id was already recorded.
	ErrDuplicate = errors.New("duplicate journal entry")
)

// Kind is the flow that produced a submission.
type Kind string

const (
	KindPayment Kind = "payment"
	KindBulk    Kind = "bulk"
	KindOptIn   Kind = "opt_in"
)

// Status is the confirmation state of a submission.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusTimedOut  Status = "timed_out"
	StatusRejected  Status = "rejected"
)

// Entry is one broadcast, keyed by the id of its first transaction.
type Entry struct {
	ID             uuid.UUID `json:"id"`
	TxID           string    `json:"tx_id"`
	Kind           Kind      `json:"kind"`
	Sender         string    `json:"sender"`
	AssetID        uint64    `json:"asset_id"`
	Recipients     []string  `json:"recipients"`
	TotalUnits     uint64    `json:"total_units"`
	GroupID        string    `json:"group_id,omitempty"`
	Status         Status    `json:"status"`
	Error          string    `json:"error,omitempty"`
	ConfirmedRound uint64    `json:"confirmed_round,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Outcome is the result of waiting for confirmation.
type Outcome struct {
	Status         Status
	ConfirmedRound uint64
	Error          string
}

// Journal is implemented by the in-memory and Postgres backends.
type Journal interface {
	Record(ctx context.Context, entry Entry) (Entry, error)
	Resolve(ctx context.Context, txID string, outcome Outcome) (Entry, error)
	Get(ctx context.Context, txID string) (Entry, error)
	ListBySender(ctx context.Context, sender string, limit int) ([]Entry, error)
}

func prepare(entry Entry, now time.Time) Entry {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.Status == "" {
		entry.Status = StatusPending
	}
	if entry.Recipients == nil {
		entry.Recipients = []string{}
	}
	entry.CreatedAt = now
	entry.UpdatedAt = now
	return entry
}

const defaultListLimit = 50

func clampLimit(limit int) int {
	if limit <= 0 || limit > 500 {
		return defaultListLimit
	}
	return limit
}
