package runtime

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	errspkg "github.com/petalops/irisflow/internal/runtime/errors"
	"github.com/petalops/irisflow/internal/runtime/ingest"
	loggingpkg "github.com/petalops/irisflow/internal/runtime/logging"
	metadatapkg "github.com/petalops/irisflow/internal/runtime/metadata"
)

// DefaultGeneratorSource is the source attribute stamped on generated samples.
const DefaultGeneratorSource = "iris-data-generator"

// GeneratorConfig tunes the random sample producer.
type GeneratorConfig struct {
	// Topic receives the generated samples.
	Topic string
	// Source tags the message metadata. Defaults to DefaultGeneratorSource.
	Source string
	// BatchSize is the number of samples per batch. Defaults to 10.
	BatchSize int
	// Delay separates batches. Defaults to 5s.
	Delay time.Duration
	// Duration bounds the total production time. Zero runs until the
	// context is cancelled.
	Duration time.Duration
	// Seed pins the random source for reproducible streams. Zero seeds
	// from the clock.
	Seed int64
}

func (cfg GeneratorConfig) withDefaults() GeneratorConfig {
	if cfg.Source == "" {
		cfg.Source = DefaultGeneratorSource
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if cfg.Delay <= 0 {
		cfg.Delay = 5 * time.Second
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	return cfg
}

// Generator publishes batches of random iris samples, mimicking a field
// deployment's data feed. Measurement ranges cover the full iris dataset
// plus a margin, so some samples land outside every class cluster.
type Generator struct {
	publisher message.Publisher
	log       loggingpkg.ServiceLogger
	cfg       GeneratorConfig
	rng       *rand.Rand
	now       func() time.Time
}

// NewGenerator returns a sample producer publishing to cfg.Topic.
func NewGenerator(publisher message.Publisher, log loggingpkg.ServiceLogger, cfg GeneratorConfig) (*Generator, error) {
	if publisher == nil {
		return nil, errspkg.ErrPublisherRequired
	}
	if cfg.Topic == "" {
		return nil, errspkg.ErrTopicRequired
	}
	if log == nil {
		log = loggingpkg.NewNopServiceLogger()
	}
	cfg = cfg.withDefaults()

	return &Generator{
		publisher: publisher,
		log:       log,
		cfg:       cfg,
		rng:       rand.New(rand.NewSource(cfg.Seed)),
		now:       time.Now,
	}, nil
}

// Sample draws one random iris sample.
func (g *Generator) Sample() ingest.FeatureRecord {
	return ingest.FeatureRecord{
		SepalLength: g.uniform(4.0, 8.0),
		SepalWidth:  g.uniform(2.0, 4.5),
		PetalLength: g.uniform(1.0, 7.0),
		PetalWidth:  g.uniform(0.1, 2.5),
		Timestamp:   g.now().UTC(),
		SampleID:    1000 + g.rng.Int63n(9000),
	}
}

// uniform draws from [lo, hi) rounded to one decimal, matching the precision
// of the iris measurements.
func (g *Generator) uniform(lo, hi float64) float64 {
	v := lo + g.rng.Float64()*(hi-lo)
	return math.Round(v*10) / 10
}

// SendBatch publishes one batch of samples.
func (g *Generator) SendBatch(ctx context.Context) error {
	for i := 0; i < g.cfg.BatchSize; i++ {
		rec := g.Sample()
		md := metadatapkg.New(
			metadatapkg.KeySource, g.cfg.Source,
		)
		if err := PublishSample(ctx, g.publisher, g.cfg.Topic, rec, md); err != nil {
			return err
		}
	}

	g.log.Info("Sent sample batch", loggingpkg.LogFields{
		"topic":      g.cfg.Topic,
		"batch_size": g.cfg.BatchSize,
	})
	return nil
}

// Run produces batches until the context is cancelled or the configured
// duration elapses. The first batch is sent immediately.
func (g *Generator) Run(ctx context.Context) error {
	g.log.Info("Starting sample production", loggingpkg.LogFields{
		"topic":      g.cfg.Topic,
		"batch_size": g.cfg.BatchSize,
		"delay":      g.cfg.Delay.String(),
	})

	var deadline <-chan time.Time
	if g.cfg.Duration > 0 {
		timer := time.NewTimer(g.cfg.Duration)
		defer timer.Stop()
		deadline = timer.C
	}

	ticker := time.NewTicker(g.cfg.Delay)
	defer ticker.Stop()

	batches := 0
	for {
		if err := g.SendBatch(ctx); err != nil {
			g.log.Error("Batch publish failed", err, loggingpkg.LogFields{"topic": g.cfg.Topic})
			return err
		}
		batches++

		select {
		case <-ctx.Done():
			g.log.Info("Sample production stopped", loggingpkg.LogFields{"batches": batches})
			return ctx.Err()
		case <-deadline:
			g.log.Info("Sample production completed", loggingpkg.LogFields{"batches": batches})
			return nil
		case <-ticker.C:
		}
	}
}
