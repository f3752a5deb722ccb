package sink

import (
	"context"
	"sync"

	"github.com/petalops/irisflow/internal/runtime/enrich"
)

// MemoryWriter keeps records in memory. It backs tests and the in-process
// examples, and can be armed to fail so retry and poison paths are testable.
type MemoryWriter struct {
	mu       sync.Mutex
	records  []enrich.EnrichedRecord
	archived []RawSample
	failWith error
	closed   bool
}

// NewMemoryWriter returns an empty in-memory sink.
func NewMemoryWriter() *MemoryWriter {
	return &MemoryWriter{}
}

// FailWith arms the writer to return err from every subsequent Write and
// Archive call. Pass nil to disarm.
func (w *MemoryWriter) FailWith(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.failWith = err
}

func (w *MemoryWriter) EnsureTable(ctx context.Context) error {
	return nil
}

func (w *MemoryWriter) Write(ctx context.Context, rec enrich.EnrichedRecord) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.failWith != nil {
		return w.failWith
	}
	w.records = append(w.records, rec)
	return nil
}

func (w *MemoryWriter) Archive(ctx context.Context, sample RawSample) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.failWith != nil {
		return w.failWith
	}
	w.archived = append(w.archived, sample)
	return nil
}

// Records returns a copy of everything written so far.
func (w *MemoryWriter) Records() []enrich.EnrichedRecord {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]enrich.EnrichedRecord, len(w.records))
	copy(out, w.records)
	return out
}

// Archived returns a copy of every archived raw sample.
func (w *MemoryWriter) Archived() []RawSample {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]RawSample, len(w.archived))
	copy(out, w.archived)
	return out
}

// Len reports how many prediction records were written.
func (w *MemoryWriter) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.records)
}

func (w *MemoryWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

// Closed reports whether Close was called.
func (w *MemoryWriter) Closed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}
