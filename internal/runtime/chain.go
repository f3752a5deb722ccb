package runtime

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	errspkg "github.com/petalops/irisflow/internal/runtime/errors"
	"github.com/petalops/irisflow/internal/runtime/enrich"
	"github.com/petalops/irisflow/internal/runtime/ingest"
	loggingpkg "github.com/petalops/irisflow/internal/runtime/logging"
	metadatapkg "github.com/petalops/irisflow/internal/runtime/metadata"
	"github.com/petalops/irisflow/internal/runtime/score"
	"github.com/petalops/irisflow/internal/runtime/sink"
)

// DefaultChainHandlerName names the pipeline handler when none is configured.
const DefaultChainHandlerName = "iris-sample-chain"

const setupTimeout = 10 * time.Second

// ChainRegistration wires the ingestion, scoring, enrichment, and sink stages
// into a single handler on the service router.
type ChainRegistration struct {
	// Name identifies the handler. Defaults to DefaultChainHandlerName.
	Name string
	// ConsumeTopic overrides the configured samples topic.
	ConsumeTopic string
	// PredictionsTopic republishes every enriched record when non-empty.
	// Defaults to the configured predictions topic; empty disables it.
	PredictionsTopic string

	Scorer   *score.Client
	Enricher *enrich.Enricher
	Sink     sink.Writer

	// ProbeScorer fails registration when the scoring service does not
	// answer its health endpoint.
	ProbeScorer bool
	// SkipEnsureTable leaves table creation to the operator.
	SkipEnsureTable bool
}

// chain processes one sample per message. It is stateless between messages;
// retries and poison routing belong to the router middleware, never in here.
type chain struct {
	name     string
	adapter  *ingest.Adapter
	scorer   *score.Client
	enricher *enrich.Enricher
	sink     sink.Writer
	table    string
	metrics  *PipelineMetrics

	republish bool
}

// RegisterChain validates the stage wiring, prepares the sink table, and
// attaches the chain handler to the service router.
func RegisterChain(svc *Service, cfg ChainRegistration) error {
	if svc == nil {
		return errspkg.ErrServiceRequired
	}
	if cfg.Scorer == nil {
		return errspkg.ErrScorerRequired
	}
	if cfg.Sink == nil {
		return errspkg.ErrSinkRequired
	}

	if cfg.Name == "" {
		cfg.Name = DefaultChainHandlerName
	}
	if cfg.ConsumeTopic == "" {
		cfg.ConsumeTopic = svc.Conf.SamplesTopicOrDefault()
	}
	if cfg.PredictionsTopic == "" {
		cfg.PredictionsTopic = svc.Conf.PredictionsTopic
	}
	if cfg.Enricher == nil {
		cfg.Enricher = enrich.New(svc.Conf.PipelineVersionOrDefault())
	}

	ctx, cancel := context.WithTimeout(context.Background(), setupTimeout)
	defer cancel()

	if cfg.ProbeScorer {
		if err := cfg.Scorer.Healthy(ctx); err != nil {
			return fmt.Errorf("scorer health probe failed: %w", err)
		}
	}
	if !cfg.SkipEnsureTable {
		if err := cfg.Sink.EnsureTable(ctx); err != nil {
			return fmt.Errorf("ensure sink table: %w", err)
		}
	}

	c := &chain{
		name:      cfg.Name,
		adapter:   ingest.NewAdapter(svc.Logger),
		scorer:    cfg.Scorer,
		enricher:  cfg.Enricher,
		sink:      cfg.Sink,
		table:     svc.Conf.SinkTableOrDefault(),
		metrics:   svc.getMetrics(),
		republish: cfg.PredictionsTopic != "",
	}

	svc.Logger.Info("Registering sample chain", loggingpkg.LogFields{
		"handler":           cfg.Name,
		"consume_topic":     cfg.ConsumeTopic,
		"predictions_topic": cfg.PredictionsTopic,
		"scorer_endpoint":   cfg.Scorer.Endpoint(),
	})

	return svc.registerHandler(handlerRegistration{
		Name:         cfg.Name,
		ConsumeTopic: cfg.ConsumeTopic,
		PublishTopic: cfg.PredictionsTopic,
		Handler:      c.handle,
	})
}

// handle runs one message through the full chain. Malformed payloads are
// dropped (nil, nil acks the message); a failed sink append is the only error
// path, returned so the retry and poison middlewares see it.
func (c *chain) handle(msg *message.Message) ([]*message.Message, error) {
	if c.metrics != nil {
		c.metrics.RecordSample(c.name)
	}

	rec, ok := c.adapter.Ingest(msg.Payload)
	if !ok {
		if c.metrics != nil {
			c.metrics.RecordRejected(c.name)
		}
		return nil, nil
	}

	scored := c.scorer.Score(msg.Context(), rec)
	if c.metrics != nil {
		c.metrics.RecordInference(c.name, time.Duration(scored.ProcessingTime*float64(time.Second)), scored.Failed())
	}

	enriched := c.enricher.Enrich(scored)

	if err := c.sink.Write(msg.Context(), enriched); err != nil {
		if c.metrics != nil {
			c.metrics.RecordSinkWrite(c.name, err)
		}
		return nil, &SinkWriteError{Table: c.table, Err: err}
	}
	if c.metrics != nil {
		c.metrics.RecordSinkWrite(c.name, nil)
	}

	if !c.republish {
		return nil, nil
	}

	out, err := NewMessageFromJSON(enriched, metadatapkg.FromWatermill(msg.Metadata))
	if err != nil {
		// The record is already durable in the sink; a republish failure
		// must not trigger a second append.
		return nil, nil
	}
	out.SetContext(msg.Context())
	return []*message.Message{out}, nil
}
