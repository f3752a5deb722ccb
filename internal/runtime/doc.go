/*
Package runtime provides the core stream processing infrastructure for
irisflow.

# Architecture Overview

The runtime package implements a message-driven inference pipeline built on
top of Watermill. Samples arrive on a pub/sub transport and flow through
ingestion, scoring, enrichment, and the analytical sink, with a middleware
chain for cross-cutting concerns.

# Package Structure

## Core Service (service.go)

The Service struct is the central orchestrator that wires together:
  - Message router (Watermill)
  - Publisher and subscriber connections
  - Middleware chain
  - HTTP servers for metrics and the stats endpoint

## Pipeline Handlers (chain.go, archive.go)

  - chain.go: the sample chain - ingest, score against the model service,
    enrich, append to the sink, optionally republish
  - archive.go: raw-sample archive - appends every valid inbound sample to
    the archive table before any processing

## Producers (generator.go, publisher.go)

  - generator.go: random iris sample producer for load and demo streams
  - publisher.go: utilities for emitting JSON samples with proper metadata

## Middleware (middleware.go)

The middleware system provides composable message processing stages:
  - CorrelationID: Ensures message traceability
  - LogMessages: Debug logging of message payloads
  - Tracer: OpenTelemetry distributed tracing
  - Metrics: Prometheus metrics collection
  - Retry: Exponential backoff retry logic
  - PoisonQueue: Dead letter queue for failed messages
  - Recoverer: Panic recovery

## Stats & Monitoring (models.go, metrics.go, resources.go, ops.go)

Extended metrics collection for handler performance:
  - Latency percentiles (p50, p95, p99)
  - Throughput tracking
  - Error categorization (validation, inference, sink, transport)
  - Stage counters (samples, rejections, sink rows)
  - Resource usage sampling

# Sub-packages

  - config/: Service configuration with validation and koanf loading
  - enrich/: Prediction timestamp and pipeline version stamping
  - errors/: Sentinel errors
  - ids/: ULID generation for message IDs
  - ingest/: Inbound payload validation
  - jsoncodec/: JSON marshaling utilities
  - logging/: Logger interface and adapters
  - metadata/: Message metadata utilities
  - modelserver/: Self-contained HTTP scoring service
  - score/: Remote model client with sentinel degradation
  - sink/: Append-only prediction and archive storage
  - transport/: Pub/sub transport factory (Kafka, RabbitMQ, NATS, AWS, HTTP)

# Usage Example

	cfg := &irisflow.Config{
		PubSubSystem: "kafka",
		KafkaBrokers: []string{"localhost:9092"},
		ScorerURL:    "http://iris-scorer:8080",
	}

	svc := irisflow.NewService(cfg, logger, ctx, irisflow.ServiceDependencies{})

	scorer, _ := irisflow.NewScoringClient(cfg.ScorerURL)
	writer, _ := irisflow.NewPostgresWriter(irisflow.PostgresConfig{
		ConnectionString: cfg.SinkPostgresURL,
	})

	irisflow.RegisterChain(svc, irisflow.ChainRegistration{
		Scorer: scorer,
		Sink:   writer,
	})

	svc.Start(ctx)
*/
package runtime
