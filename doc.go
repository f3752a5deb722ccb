// Package irisflow is a small layer on top of Watermill that streams iris
// flower measurements from a message transport through a scoring model and
// into an analytical sink. It reads the target transport (Kafka, RabbitMQ,
// AWS SNS/SQS, NATS, HTTP, or Go Channels) from Config, bootstraps the
// Watermill router, and registers the default middleware chain for
// correlation IDs, logging, tracing, metrics, retries, and poison queue
// forwarding.
//
// Service hosts the router and exposes the pipeline stages as registrations:
// RegisterChain wires the full ingest -> score -> enrich -> sink chain onto a
// samples topic, RegisterArchive persists raw samples alongside it, and
// NewGenerator produces synthetic measurements for load and demo runs. A
// minimal setup therefore involves filling Config, creating a Service,
// registering a chain, and calling Start; see the examples directory for
// copy/paste starting points.
//
// # Pipeline semantics
//
// Malformed samples are logged and dropped without failing the message, so a
// bad payload can never wedge the stream. Scoring failures degrade to an
// "ERROR" sentinel prediction that is still written to the sink with its
// measurements, keeping the output row count equal to the valid input count.
// Only sink write failures fail the message and enter the retry and poison
// queue path.
//
// # Transports
//
// Irisflow supports 6 message transports out of the box:
//   - channel: In-memory Go channels for testing
//   - kafka: High-throughput streaming with consumer groups
//   - rabbitmq: AMQP-based durable queues
//   - aws: AWS SNS/SQS with LocalStack support
//   - nats: High-performance messaging, optionally with JetStream
//   - http: Request/response messaging
//
// # Middleware
//
// The default middleware chain includes correlation ID injection, structured
// logging, OpenTelemetry tracing, Prometheus metrics, retry with exponential
// backoff, poison queue forwarding, and panic recovery. Custom middleware can
// be added via ServiceDependencies.Middlewares.
//
// # Job Hooks
//
// JobHooksMiddleware provides OnJobStart, OnJobDone, and OnJobError callbacks
// for custom logging, metrics collection, and alerting around handler
// execution.
//
// When you need more control, ServiceDependencies exposes well-scoped hooks:
// bring your own ErrorClassifier, PipelineMetrics, middleware registrations,
// or even an entire TransportFactory to plug in custom brokers.
package irisflow
