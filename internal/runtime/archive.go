package runtime

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	errspkg "github.com/petalops/irisflow/internal/runtime/errors"
	"github.com/petalops/irisflow/internal/runtime/ingest"
	loggingpkg "github.com/petalops/irisflow/internal/runtime/logging"
	"github.com/petalops/irisflow/internal/runtime/sink"
)

// DefaultArchiveHandlerName names the raw archive handler when none is configured.
const DefaultArchiveHandlerName = "iris-raw-archive"

// ArchiveRegistration wires a handler that appends every valid inbound sample
// to the raw archive table, untouched by scoring. It typically consumes the
// same topic as the chain so the archive is a faithful copy of the stream.
type ArchiveRegistration struct {
	// Name identifies the handler. Defaults to DefaultArchiveHandlerName.
	Name string
	// ConsumeTopic overrides the configured samples topic.
	ConsumeTopic string

	Archiver sink.Archiver

	// SkipEnsureTable leaves table creation to the operator.
	SkipEnsureTable bool
}

type archive struct {
	name     string
	adapter  *ingest.Adapter
	archiver sink.Archiver
	table    string
	metrics  *PipelineMetrics
	now      func() time.Time
}

// RegisterArchive prepares the archive table and attaches the raw archive
// handler to the service router.
func RegisterArchive(svc *Service, cfg ArchiveRegistration) error {
	if svc == nil {
		return errspkg.ErrServiceRequired
	}
	if cfg.Archiver == nil {
		return errspkg.ErrSinkRequired
	}

	if cfg.Name == "" {
		cfg.Name = DefaultArchiveHandlerName
	}
	if cfg.ConsumeTopic == "" {
		cfg.ConsumeTopic = svc.Conf.SamplesTopicOrDefault()
	}

	if !cfg.SkipEnsureTable {
		ctx, cancel := context.WithTimeout(context.Background(), setupTimeout)
		defer cancel()
		if err := cfg.Archiver.EnsureTable(ctx); err != nil {
			return fmt.Errorf("ensure archive table: %w", err)
		}
	}

	a := &archive{
		name:     cfg.Name,
		adapter:  ingest.NewAdapter(svc.Logger),
		archiver: cfg.Archiver,
		table:    svc.Conf.ArchiveTableOrDefault(),
		metrics:  svc.getMetrics(),
		now:      time.Now,
	}

	svc.Logger.Info("Registering raw archive", loggingpkg.LogFields{
		"handler":       cfg.Name,
		"consume_topic": cfg.ConsumeTopic,
	})

	return svc.registerHandler(handlerRegistration{
		Name:         cfg.Name,
		ConsumeTopic: cfg.ConsumeTopic,
		Handler:      a.handle,
	})
}

// handle appends one validated sample to the archive table. Malformed
// payloads are dropped; a failed append propagates for retry.
func (a *archive) handle(msg *message.Message) ([]*message.Message, error) {
	rec, ok := a.adapter.Ingest(msg.Payload)
	if !ok {
		if a.metrics != nil {
			a.metrics.RecordRejected(a.name)
		}
		return nil, nil
	}

	sample := sink.RawSample{
		MessageID:     msg.UUID,
		Record:        rec,
		IngestionTime: a.now().UTC(),
	}

	if err := a.archiver.Archive(msg.Context(), sample); err != nil {
		if a.metrics != nil {
			a.metrics.RecordSinkWrite(a.name, err)
		}
		return nil, &SinkWriteError{Table: a.table, Err: err}
	}
	if a.metrics != nil {
		a.metrics.RecordSinkWrite(a.name, nil)
	}
	return nil, nil
}
