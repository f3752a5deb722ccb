package runtime

import (
	"context"
	"errors"
	"testing"
	"time"

	errspkg "github.com/petalops/irisflow/internal/runtime/errors"
	"github.com/petalops/irisflow/internal/runtime/ingest"
	"github.com/petalops/irisflow/internal/runtime/jsoncodec"
	metadatapkg "github.com/petalops/irisflow/internal/runtime/metadata"
)

func TestNewGeneratorValidation(t *testing.T) {
	if _, err := NewGenerator(nil, nil, GeneratorConfig{Topic: "t"}); !errors.Is(err, errspkg.ErrPublisherRequired) {
		t.Fatalf("expected publisher required, got %v", err)
	}
	if _, err := NewGenerator(&testPublisher{}, nil, GeneratorConfig{}); !errors.Is(err, errspkg.ErrTopicRequired) {
		t.Fatalf("expected topic required, got %v", err)
	}
}

func TestGeneratorSampleRanges(t *testing.T) {
	pub := &testPublisher{}
	gen, err := NewGenerator(pub, nil, GeneratorConfig{Topic: "iris.samples", Seed: 1})
	if err != nil {
		t.Fatalf("generator init failed: %v", err)
	}

	for i := 0; i < 200; i++ {
		rec := gen.Sample()
		if rec.SepalLength < 4.0 || rec.SepalLength > 8.0 {
			t.Fatalf("sepal length out of range: %v", rec.SepalLength)
		}
		if rec.SepalWidth < 2.0 || rec.SepalWidth > 4.5 {
			t.Fatalf("sepal width out of range: %v", rec.SepalWidth)
		}
		if rec.PetalLength < 1.0 || rec.PetalLength > 7.0 {
			t.Fatalf("petal length out of range: %v", rec.PetalLength)
		}
		if rec.PetalWidth < 0.1 || rec.PetalWidth > 2.5 {
			t.Fatalf("petal width out of range: %v", rec.PetalWidth)
		}
		if rec.SampleID < 1000 || rec.SampleID > 9999 {
			t.Fatalf("sample id out of range: %d", rec.SampleID)
		}
		if rec.Timestamp.IsZero() {
			t.Fatal("expected timestamp to be set")
		}
	}
}

func TestGeneratorSeedIsReproducible(t *testing.T) {
	a, _ := NewGenerator(&testPublisher{}, nil, GeneratorConfig{Topic: "t", Seed: 7})
	b, _ := NewGenerator(&testPublisher{}, nil, GeneratorConfig{Topic: "t", Seed: 7})

	for i := 0; i < 10; i++ {
		ra, rb := a.Sample(), b.Sample()
		ra.Timestamp, rb.Timestamp = time.Time{}, time.Time{}
		if ra != rb {
			t.Fatalf("sample %d diverged: %+v vs %+v", i, ra, rb)
		}
	}
}

func TestGeneratorSendBatch(t *testing.T) {
	pub := &testPublisher{}
	gen, err := NewGenerator(pub, nil, GeneratorConfig{Topic: "iris.samples", BatchSize: 3, Seed: 1})
	if err != nil {
		t.Fatalf("generator init failed: %v", err)
	}

	if err := gen.SendBatch(context.Background()); err != nil {
		t.Fatalf("send batch failed: %v", err)
	}

	published := pub.Published()
	if len(published) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(published))
	}
	for _, p := range published {
		if p.topic != "iris.samples" {
			t.Fatalf("unexpected topic %q", p.topic)
		}
		if p.msg.Metadata.Get(metadatapkg.KeySource) != DefaultGeneratorSource {
			t.Fatalf("expected source attribute, got %v", p.msg.Metadata)
		}
		if p.msg.Metadata.Get(metadatapkg.KeySampleID) == "" {
			t.Fatal("expected sample_id attribute")
		}
		if p.msg.Metadata.Get(metadatapkg.KeyPublishedAt) == "" {
			t.Fatal("expected published_at attribute")
		}

		var rec ingest.FeatureRecord
		if err := jsoncodec.Unmarshal(p.msg.Payload, &rec); err != nil {
			t.Fatalf("payload is not a feature record: %v", err)
		}
		if _, rejection := ingest.Parse(p.msg.Payload); rejection != nil {
			t.Fatalf("generated payload rejected by ingest: %v", rejection)
		}
	}
}

func TestGeneratorSendBatchPropagatesPublishError(t *testing.T) {
	pub := &testPublisher{err: errors.New("broker down")}
	gen, err := NewGenerator(pub, nil, GeneratorConfig{Topic: "t", BatchSize: 1, Seed: 1})
	if err != nil {
		t.Fatalf("generator init failed: %v", err)
	}
	if err := gen.SendBatch(context.Background()); err == nil {
		t.Fatal("expected publish error")
	}
}

func TestGeneratorRunStopsOnContextCancel(t *testing.T) {
	pub := &testPublisher{}
	gen, err := NewGenerator(pub, nil, GeneratorConfig{Topic: "t", BatchSize: 1, Delay: time.Hour, Seed: 1})
	if err != nil {
		t.Fatalf("generator init failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := gen.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", err)
	}
	if len(pub.Published()) != 1 {
		t.Fatalf("expected the first batch before stopping, got %d", len(pub.Published()))
	}
}

func TestGeneratorRunHonorsDuration(t *testing.T) {
	pub := &testPublisher{}
	gen, err := NewGenerator(pub, nil, GeneratorConfig{
		Topic:     "t",
		BatchSize: 1,
		Delay:     time.Hour,
		Duration:  10 * time.Millisecond,
		Seed:      1,
	})
	if err != nil {
		t.Fatalf("generator init failed: %v", err)
	}

	if err := gen.Run(context.Background()); err != nil {
		t.Fatalf("expected clean completion, got %v", err)
	}
	if len(pub.Published()) == 0 {
		t.Fatal("expected at least one batch")
	}
}
