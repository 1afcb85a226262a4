package journal

import (
	"context"
	"sort"
	"sync"
	"time"
)

type inMemoryJournal struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewInMemory creates a concurrency-safe in-memory journal useful for unit tests
// and development runs without Postgres.
func NewInMemory() Journal {
	return &inMemoryJournal{entries: make(map[string]Entry)}
}

func (j *inMemoryJournal) Record(_ context.Context, entry Entry) (Entry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if existing, exists := j.entries[entry.TxID]; exists {
		return existing, ErrDuplicate
	}
	entry = prepare(entry, time.Now().UTC())
	entry.Recipients = append([]string(nil), entry.Recipients...)
	j.entries[entry.TxID] = entry
	return entry, nil
}

func (j *inMemoryJournal) Resolve(_ context.Context, txID string, outcome Outcome) (Entry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	entry, ok := j.entries[txID]
	if !ok {
		return Entry{}, ErrNotFound
	}
	entry.Status = outcome.Status
	entry.ConfirmedRound = outcome.ConfirmedRound
	entry.Error = outcome.Error
	entry.UpdatedAt = time.Now().UTC()
	j.entries[txID] = entry
	return entry, nil
}

func (j *inMemoryJournal) Get(_ context.Context, txID string) (Entry, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	entry, ok := j.entries[txID]
	if !ok {
		return Entry{}, ErrNotFound
	}
	return entry, nil
}

func (j *inMemoryJournal) ListBySender(_ context.Context, sender string, limit int) ([]Entry, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	out := make([]Entry, 0)
	for _, e := range j.entries {
		if e.Sender == sender {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].CreatedAt.After(out[b].CreatedAt) })
	if n := clampLimit(limit); len(out) > n {
		out = out[:n]
	}
	return out, nil
}
