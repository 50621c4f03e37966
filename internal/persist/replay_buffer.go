package persist

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// ReplaySaver writes a batch of records atomically. ReplayRepo implements it.
type ReplaySaver interface {
	Save(ctx context.Context, recs []ReplayRecord) error
}

// ReplayBuffer collects recorded searches and writes them in batches, so a
// burst of searches costs one transaction instead of one per search.
type ReplayBuffer struct {
	saver     ReplaySaver
	batchSize int
	log       *zap.Logger

	mu      sync.Mutex
	pending []ReplayRecord
	dropped int
}

func NewReplayBuffer(saver ReplaySaver, batchSize int, log *zap.Logger) *ReplayBuffer {
	if batchSize <= 0 {
		batchSize = 64
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ReplayBuffer{saver: saver, batchSize: batchSize, log: log}
}

// Record queues rec and flushes once a full batch is pending.
func (b *ReplayBuffer) Record(ctx context.Context, rec ReplayRecord) error {
	rec.Fingerprint()
	b.mu.Lock()
	b.pending = append(b.pending, rec)
	full := len(b.pending) >= b.batchSize
	b.mu.Unlock()
	if full {
		return b.Flush(ctx)
	}
	return nil
}

// Flush writes everything pending. A failed batch is dropped and counted;
// the caller decides whether that is fatal.
func (b *ReplayBuffer) Flush(ctx context.Context) error {
	b.mu.Lock()
	batch := b.pending
	b.pending = nil
	b.mu.Unlock()
	if len(batch) == 0 {
		return nil
	}
	if err := b.saver.Save(ctx, batch); err != nil {
		b.mu.Lock()
		b.dropped += len(batch)
		b.mu.Unlock()
		b.log.Error("replay batch lost", zap.Int("records", len(batch)), zap.Error(err))
		return err
	}
	b.log.Debug("replay batch saved", zap.Int("records", len(batch)))
	return nil
}

// Pending and Dropped report buffer counters.
func (b *ReplayBuffer) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

func (b *ReplayBuffer) Dropped() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}
