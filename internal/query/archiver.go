package query

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"solana-signals/internal/domain"
	"solana-signals/internal/observability"
	"solana-signals/internal/storage"
)

// Archiver batches computed signals into the archive store off the request
// path. Archiving is best effort: a full buffer or a failed flush drops
// signals rather than slowing reads.
type Archiver struct {
	store storage.SignalArchiveStore
	log   zerolog.Logger

	in     chan *domain.TokenSignal
	done   chan struct{}
	once   sync.Once
	wg     sync.WaitGroup
	flush  time.Duration
	maxLen int
}

// NewArchiver creates an archiver over the given store. Call Start before
// recording and Stop on shutdown.
func NewArchiver(store storage.SignalArchiveStore, log zerolog.Logger) *Archiver {
	return &Archiver{
		store:  store,
		log:    log.With().Str("component", "archiver").Logger(),
		in:     make(chan *domain.TokenSignal, 256),
		done:   make(chan struct{}),
		flush:  5 * time.Second,
		maxLen: 100,
	}
}

// Start launches the background flush loop.
func (a *Archiver) Start() {
	a.wg.Add(1)
	go a.run()
}

// Stop flushes pending signals and stops the loop.
func (a *Archiver) Stop() {
	a.once.Do(func() { close(a.done) })
	a.wg.Wait()
}

// Record queues a signal for archiving. Never blocks.
func (a *Archiver) Record(sig *domain.TokenSignal) {
	select {
	case a.in <- sig:
	default:
		observability.RecordArchiveDrop()
		a.log.Debug().Str("token", sig.TokenAddress).Msg("archive buffer full, signal dropped")
	}
}

func (a *Archiver) run() {
	defer a.wg.Done()

	ticker := time.NewTicker(a.flush)
	defer ticker.Stop()

	var pending []*domain.TokenSignal
	for {
		select {
		case sig := <-a.in:
			pending = append(pending, sig)
			if len(pending) >= a.maxLen {
				a.flushBatch(pending)
				pending = nil
			}
		case <-ticker.C:
			if len(pending) > 0 {
				a.flushBatch(pending)
				pending = nil
			}
		case <-a.done:
			// Drain whatever is queued, then flush once.
			for {
				select {
				case sig := <-a.in:
					pending = append(pending, sig)
				default:
					if len(pending) > 0 {
						a.flushBatch(pending)
					}
					return
				}
			}
		}
	}
}

func (a *Archiver) flushBatch(batch []*domain.TokenSignal) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.store.InsertBulk(ctx, batch); err != nil {
		a.log.Warn().Err(err).Int("batch", len(batch)).Msg("archive flush failed")
		return
	}
	observability.RecordSignalsArchived(len(batch))
	a.log.Debug().Int("batch", len(batch)).Msg("signals archived")
}
