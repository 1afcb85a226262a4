package journal

import (
	"context"
	"fmt"
	"sync"
	"testing"
)

func TestInMemoryJournal_RecordAndResolve(t *testing.T) {
	j := NewInMemory()
	ctx := context.Background()

	entry, err := j.Record(ctx, Entry{TxID: "TX1", Kind: KindPayment, Sender: "A", Recipients: []string{"B"}, TotalUnits: 2_500_000})
	if err != nil {
		t.Fatalf("record failed: %v", err)
	}
	if entry.Status != StatusPending {
		t.Fatalf("expected pending status, got %s", entry.Status)
	}
	if entry.CreatedAt.IsZero() || entry.ID.String() == "" {
		t.Fatalf("expected id and timestamps to be assigned")
	}

	resolved, err := j.Resolve(ctx, "TX1", Outcome{Status: StatusConfirmed, ConfirmedRound: 1003})
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if resolved.Status != StatusConfirmed || resolved.ConfirmedRound != 1003 {
		t.Fatalf("unexpected resolved entry %+v", resolved)
	}

	got, err := j.Get(ctx, "TX1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.TotalUnits != 2_500_000 || got.Status != StatusConfirmed {
		t.Fatalf("unexpected stored entry %+v", got)
	}
}

func TestInMemoryJournal_Duplicate(t *testing.T) {
	j := NewInMemory()
	ctx := context.Background()

	if _, err := j.Record(ctx, Entry{TxID: "dup", Kind: KindPayment}); err != nil {
		t.Fatalf("initial record failed: %v", err)
	}
	if _, err := j.Record(ctx, Entry{TxID: "dup", Kind: KindPayment}); err != ErrDuplicate {
		t.Fatalf("expected duplicate error, got %v", err)
	}
}

func TestInMemoryJournal_NotFound(t *testing.T) {
	j := NewInMemory()
	ctx := context.Background()
	if _, err := j.Get(ctx, "missing"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := j.Resolve(ctx, "missing", Outcome{Status: StatusConfirmed}); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestInMemoryJournal_ConcurrentRecords(t *testing.T) {
	j := NewInMemory()
	ctx := context.Background()

	const workers = 10
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := j.Record(ctx, Entry{TxID: fmt.Sprintf("tx-%d", i), Sender: "A", Kind: KindBulk}); err != nil {
				t.Errorf("record %d failed: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	entries, err := j.ListBySender(ctx, "A", 0)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(entries) != workers {
		t.Fatalf("expected %d entries, got %d", workers, len(entries))
	}

	limited, _ := j.ListBySender(ctx, "A", 3)
	if len(limited) != 3 {
		t.Fatalf("expected limit to apply, got %d", len(limited))
	}
	none, _ := j.ListBySender(ctx, "B", 0)
	if len(none) != 0 {
		t.Fatalf("expected no entries for other sender")
	}
}
