// Package sink appends enriched prediction records to durable storage. The
// sink is the only stage whose failure is fatal: a write error propagates to
// the caller instead of being swallowed, so the message can be retried or
// parked in the poison queue.
package sink

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/petalops/irisflow/internal/runtime/enrich"
	"github.com/petalops/irisflow/internal/runtime/ingest"
)

// Writer is an append-only destination for enriched records. Implementations
// must be safe for concurrent use.
type Writer interface {
	// EnsureTable creates the destination table when it does not exist yet.
	EnsureTable(ctx context.Context) error
	// Write appends one record. Records are never updated or deleted.
	Write(ctx context.Context, rec enrich.EnrichedRecord) error
	Close() error
}

// RawSample is an inbound payload archived before any processing, keyed by
// the message ID it arrived under.
type RawSample struct {
	MessageID     string
	Record        ingest.FeatureRecord
	IngestionTime time.Time
}

// Archiver stores raw samples for replay and audit.
type Archiver interface {
	EnsureTable(ctx context.Context) error
	Archive(ctx context.Context, sample RawSample) error
	Close() error
}

var identPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// validIdent guards table names that end up interpolated into DDL and DML.
func validIdent(name string) error {
	if !identPattern.MatchString(name) {
		return fmt.Errorf("invalid table name %q", name)
	}
	return nil
}
