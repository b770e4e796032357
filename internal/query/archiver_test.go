package query

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"solana-signals/internal/domain"
)

// captureArchive records batches it receives.
type captureArchive struct {
	mu      sync.Mutex
	batches [][]*domain.TokenSignal
}

func (c *captureArchive) InsertBulk(_ context.Context, signals []*domain.TokenSignal) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.batches = append(c.batches, signals)
	return nil
}

func (c *captureArchive) GetByToken(context.Context, string, int) ([]*domain.TokenSignal, error) {
	return nil, nil
}

func (c *captureArchive) total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, b := range c.batches {
		n += len(b)
	}
	return n
}

func TestArchiver_FlushesOnStop(t *testing.T) {
	store := &captureArchive{}
	a := NewArchiver(store, zerolog.Nop())
	a.Start()

	for i := 0; i < 5; i++ {
		a.Record(&domain.TokenSignal{TokenAddress: "mint1", CombinedScore: 50 + i})
	}
	a.Stop()

	if got := store.total(); got != 5 {
		t.Errorf("archived = %d signals, want 5", got)
	}
}

func TestArchiver_FlushesOnInterval(t *testing.T) {
	store := &captureArchive{}
	a := NewArchiver(store, zerolog.Nop())
	a.flush = 20 * time.Millisecond
	a.Start()
	defer a.Stop()

	a.Record(&domain.TokenSignal{TokenAddress: "mint1", CombinedScore: 81})

	deadline := time.After(2 * time.Second)
	for store.total() == 0 {
		select {
		case <-deadline:
			t.Fatal("interval flush never happened")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestArchiver_RecordNeverBlocksWhenFull(t *testing.T) {
	store := &captureArchive{}
	a := NewArchiver(store, zerolog.Nop())
	// Not started: the buffer fills and further records must drop, not hang.
	for i := 0; i < 1000; i++ {
		a.Record(&domain.TokenSignal{TokenAddress: "mint1"})
	}
}
