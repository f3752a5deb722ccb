// Package enrich stamps scored records with the metadata the sink schema
// requires: a fresh prediction timestamp and the pipeline version that
// produced the record.
package enrich

import (
	"time"

	"github.com/petalops/irisflow/internal/runtime/score"
)

// DefaultPipelineVersion tags records when no version is configured.
const DefaultPipelineVersion = "v1"

// EnrichedRecord is the final row shape handed to the sink.
type EnrichedRecord struct {
	score.ScoredRecord
	PredictionTimestamp time.Time `json:"prediction_timestamp"`
	PipelineVersion     string    `json:"pipeline_version"`
}

// Enricher finalises scored records. The clock is injectable so tests can
// pin the stamped timestamps.
type Enricher struct {
	version string
	now     func() time.Time
}

// Option customises an Enricher.
type Option func(*Enricher)

// WithClock substitutes the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Enricher) {
		if now != nil {
			e.now = now
		}
	}
}

// New returns an Enricher stamping records with the given pipeline version.
// An empty version falls back to DefaultPipelineVersion.
func New(version string, opts ...Option) *Enricher {
	if version == "" {
		version = DefaultPipelineVersion
	}
	e := &Enricher{
		version: version,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Version returns the pipeline version this enricher stamps.
func (e *Enricher) Version() string {
	return e.version
}

// Enrich completes a scored record. The prediction timestamp is always taken
// from the enricher's clock at call time, never from the input. A record that
// arrived without a sample timestamp gets one here so the sink schema's
// NOT NULL columns always hold a value.
func (e *Enricher) Enrich(scored score.ScoredRecord) EnrichedRecord {
	now := e.now().UTC()
	if scored.Timestamp.IsZero() {
		scored.Timestamp = now
	}
	return EnrichedRecord{
		ScoredRecord:        scored,
		PredictionTimestamp: now,
		PipelineVersion:     e.version,
	}
}
