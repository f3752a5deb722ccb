package irisflow

import (
	runtimepkg "github.com/petalops/irisflow/internal/runtime"
	configpkg "github.com/petalops/irisflow/internal/runtime/config"
	"github.com/petalops/irisflow/internal/runtime/enrich"
	errspkg "github.com/petalops/irisflow/internal/runtime/errors"
	idspkg "github.com/petalops/irisflow/internal/runtime/ids"
	"github.com/petalops/irisflow/internal/runtime/ingest"
	jsoncodec "github.com/petalops/irisflow/internal/runtime/jsoncodec"
	loggingpkg "github.com/petalops/irisflow/internal/runtime/logging"
	metadatapkg "github.com/petalops/irisflow/internal/runtime/metadata"
	"github.com/petalops/irisflow/internal/runtime/modelserver"
	"github.com/petalops/irisflow/internal/runtime/score"
	"github.com/petalops/irisflow/internal/runtime/sink"
	transportpkg "github.com/petalops/irisflow/internal/runtime/transport"
	newtransport "github.com/petalops/irisflow/transport"
)

type (
	Config              = configpkg.Config
	Service             = runtimepkg.Service
	ServiceDependencies = runtimepkg.ServiceDependencies
	Transport           = transportpkg.Transport
	TransportFactory    = transportpkg.Factory

	MessageHandlerRegistration = runtimepkg.MessageHandlerRegistration
	ChainRegistration          = runtimepkg.ChainRegistration
	ArchiveRegistration        = runtimepkg.ArchiveRegistration

	MiddlewareBuilder      = runtimepkg.MiddlewareBuilder
	MiddlewareRegistration = runtimepkg.MiddlewareRegistration
	RetryMiddlewareConfig  = runtimepkg.RetryMiddlewareConfig

	Producer        = runtimepkg.Producer
	Generator       = runtimepkg.Generator
	GeneratorConfig = runtimepkg.GeneratorConfig

	Metadata = metadatapkg.Metadata

	LogFields     = loggingpkg.LogFields
	ServiceLogger = loggingpkg.ServiceLogger

	UnprocessableEventError = runtimepkg.UnprocessableEventError
	SinkWriteError          = runtimepkg.SinkWriteError

	HandlerInfo  = runtimepkg.HandlerInfo
	HandlerStats = runtimepkg.HandlerStats

	// Job lifecycle hooks
	JobContext = runtimepkg.JobContext
	JobHooks   = runtimepkg.JobHooks

	// Pipeline metrics
	PipelineMetrics         = runtimepkg.PipelineMetrics
	PipelineHandlerMetrics  = runtimepkg.PipelineHandlerMetrics
	PipelineMetricsSnapshot = runtimepkg.PipelineMetricsSnapshot

	// Error classification
	ErrorClassifier = runtimepkg.ErrorClassifier
	ErrorCategory   = runtimepkg.ErrorCategory

	// Sample records as they move through the stages
	FeatureRecord  = ingest.FeatureRecord
	ScoredRecord   = score.ScoredRecord
	EnrichedRecord = enrich.EnrichedRecord
	RawSample      = sink.RawSample

	// Stage collaborators
	ScoringClient  = score.Client
	ScoringOption  = score.Option
	Enricher       = enrich.Enricher
	EnrichOption   = enrich.Option
	SinkWriter     = sink.Writer
	Archiver       = sink.Archiver
	MemoryWriter   = sink.MemoryWriter
	PostgresConfig = sink.PostgresConfig
	PostgresWriter = sink.PostgresWriter

	// Built-in model server for local development and tests
	ModelServer       = modelserver.Server
	ModelServerOption = modelserver.Option

	// Transport capabilities
	Capabilities = newtransport.Capabilities

	// Modular transport types
	TransportBuilder  = newtransport.Builder
	TransportConfig   = newtransport.Config
	TransportRegistry = newtransport.Registry
)

var (
	NewService    = runtimepkg.NewService
	TryNewService = runtimepkg.TryNewService
	LoadConfig    = configpkg.Load

	RegisterMessageHandler = runtimepkg.RegisterMessageHandler
	RegisterChain          = runtimepkg.RegisterChain
	RegisterArchive        = runtimepkg.RegisterArchive

	DefaultMiddlewares      = runtimepkg.DefaultMiddlewares
	CorrelationIDMiddleware = runtimepkg.CorrelationIDMiddleware
	LogMessagesMiddleware   = runtimepkg.LogMessagesMiddleware
	TracerMiddleware        = runtimepkg.TracerMiddleware
	MetricsMiddleware       = runtimepkg.MetricsMiddleware
	RetryMiddleware         = runtimepkg.RetryMiddleware
	PoisonQueueMiddleware   = runtimepkg.PoisonQueueMiddleware
	RecovererMiddleware     = runtimepkg.RecovererMiddleware

	// Job lifecycle hooks
	JobHooksMiddleware = runtimepkg.JobHooksMiddleware
	LoggingHooks       = runtimepkg.LoggingHooks
	MetricsHooks       = runtimepkg.MetricsHooks
	AlertingHooks      = runtimepkg.AlertingHooks

	// Pipeline metrics
	NewPipelineMetrics = runtimepkg.NewPipelineMetrics

	// Sample stream stages
	ParseSample        = ingest.Parse
	NewScoringClient   = score.NewClient
	WithScoringTimeout = score.WithTimeout
	NewEnricher        = enrich.New
	NewPostgresWriter  = sink.NewPostgresWriter
	NewMemoryWriter    = sink.NewMemoryWriter
	NewModelServer     = modelserver.New

	// Sample producer
	NewGenerator  = runtimepkg.NewGenerator
	PublishSample = runtimepkg.PublishSample
	PublishJSON   = runtimepkg.PublishJSON

	// Transport capabilities
	GetCapabilities = newtransport.GetCapabilities

	// Modular transport registry.
	// Import individual transports via: _ "github.com/petalops/irisflow/transport/kafka"
	DefaultTransportRegistry = newtransport.DefaultRegistry
	RegisterTransport        = newtransport.Register
	BuildTransport           = newtransport.Build

	Marshal       = jsoncodec.Marshal
	MarshalIndent = jsoncodec.MarshalIndent
	Unmarshal     = jsoncodec.Unmarshal
	Encode        = jsoncodec.Encode
	Decode        = jsoncodec.Decode

	ErrServiceRequired      = errspkg.ErrServiceRequired
	ErrHandlerRequired      = errspkg.ErrHandlerRequired
	ErrHandlerNameRequired  = errspkg.ErrHandlerNameRequired
	ErrConsumeTopicRequired = errspkg.ErrConsumeTopicRequired
	ErrPublisherRequired    = errspkg.ErrPublisherRequired
	ErrTopicRequired        = errspkg.ErrTopicRequired
	ErrScorerRequired       = errspkg.ErrScorerRequired
	ErrSinkRequired         = errspkg.ErrSinkRequired
	ErrPayloadRequired      = errspkg.ErrPayloadRequired

	NewSlogServiceLogger = loggingpkg.NewSlogServiceLogger
	NewNopServiceLogger  = loggingpkg.NewNopServiceLogger

	NewMetadata = metadatapkg.New

	// NewMessageID generates a unique message ID using ULID.
	NewMessageID = idspkg.NewMessageID
)

// Metadata keys - use these constants for standard metadata fields.
const (
	MetadataKeySampleID      = metadatapkg.KeySampleID
	MetadataKeySource        = metadatapkg.KeySource
	MetadataKeyPublishedAt   = metadatapkg.KeyPublishedAt
	MetadataKeyCorrelationID = metadatapkg.KeyCorrelationID
)

// Error category constants for ErrorClassifier.
const (
	ErrorCategoryNone       = runtimepkg.ErrorCategoryNone
	ErrorCategoryValidation = runtimepkg.ErrorCategoryValidation
	ErrorCategoryInference  = runtimepkg.ErrorCategoryInference
	ErrorCategorySink       = runtimepkg.ErrorCategorySink
	ErrorCategoryTransport  = runtimepkg.ErrorCategoryTransport
	ErrorCategoryOther      = runtimepkg.ErrorCategoryOther
)

// Well-known defaults shared with deployment tooling.
const (
	DefaultChainHandlerName   = runtimepkg.DefaultChainHandlerName
	DefaultArchiveHandlerName = runtimepkg.DefaultArchiveHandlerName
	DefaultGeneratorSource    = runtimepkg.DefaultGeneratorSource
	ScoringErrorLabel         = score.ErrorLabel
)
