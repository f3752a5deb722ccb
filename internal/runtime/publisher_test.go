package runtime

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	errspkg "github.com/petalops/irisflow/internal/runtime/errors"
	"github.com/petalops/irisflow/internal/runtime/ingest"
	"github.com/petalops/irisflow/internal/runtime/jsoncodec"
	metadatapkg "github.com/petalops/irisflow/internal/runtime/metadata"
)

func testFeatureRecord() ingest.FeatureRecord {
	return ingest.FeatureRecord{
		SepalLength: 5.1,
		SepalWidth:  3.5,
		PetalLength: 1.4,
		PetalWidth:  0.2,
		Timestamp:   time.Now().UTC(),
		SampleID:    4242,
	}
}

func TestNewMessageFromJSON(t *testing.T) {
	msg, err := NewMessageFromJSON(testFeatureRecord(), metadatapkg.Metadata{"source": "test"})
	if err != nil {
		t.Fatalf("message build failed: %v", err)
	}
	if msg.UUID == "" {
		t.Fatal("expected a message id")
	}
	if msg.Metadata.Get("source") != "test" {
		t.Fatalf("expected metadata carried over, got %v", msg.Metadata)
	}

	var rec ingest.FeatureRecord
	if err := jsoncodec.Unmarshal(msg.Payload, &rec); err != nil {
		t.Fatalf("payload is not a feature record: %v", err)
	}
	if rec.SampleID != 4242 {
		t.Fatalf("expected sample id in payload, got %d", rec.SampleID)
	}
}

func TestNewMessageFromJSONRejectsNilPayload(t *testing.T) {
	if _, err := NewMessageFromJSON(nil, nil); !errors.Is(err, errspkg.ErrPayloadRequired) {
		t.Fatalf("expected payload required, got %v", err)
	}
}

func TestPublishJSONValidation(t *testing.T) {
	pub := &testPublisher{}

	if err := PublishJSON(context.Background(), nil, "t", testFeatureRecord(), nil); !errors.Is(err, errspkg.ErrPublisherRequired) {
		t.Fatalf("expected publisher required, got %v", err)
	}
	if err := PublishJSON(context.Background(), pub, "", testFeatureRecord(), nil); !errors.Is(err, errspkg.ErrTopicRequired) {
		t.Fatalf("expected topic required, got %v", err)
	}
}

func TestPublishJSONPropagatesPublisherError(t *testing.T) {
	boom := errors.New("broker down")
	pub := &testPublisher{err: boom}
	if err := PublishJSON(context.Background(), pub, "t", testFeatureRecord(), nil); !errors.Is(err, boom) {
		t.Fatalf("expected publisher error, got %v", err)
	}
}

func TestPublishSampleAddsStandardAttributes(t *testing.T) {
	pub := &testPublisher{}
	rec := testFeatureRecord()

	md := metadatapkg.Metadata{metadatapkg.KeySource: "unit-test"}
	if err := PublishSample(context.Background(), pub, "iris.samples", rec, md); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	published := pub.Published()
	if len(published) != 1 {
		t.Fatalf("expected 1 message, got %d", len(published))
	}
	msg := published[0].msg

	if got := msg.Metadata.Get(metadatapkg.KeySampleID); got != strconv.FormatInt(rec.SampleID, 10) {
		t.Fatalf("expected sample id attribute, got %q", got)
	}
	if msg.Metadata.Get(metadatapkg.KeySource) != "unit-test" {
		t.Fatal("expected caller metadata to survive")
	}

	publishedAt := msg.Metadata.Get(metadatapkg.KeyPublishedAt)
	if _, err := time.Parse(time.RFC3339Nano, publishedAt); err != nil {
		t.Fatalf("expected RFC3339 publish timestamp, got %q: %v", publishedAt, err)
	}

	// The caller's metadata map must not be mutated by publishing.
	if len(md) != 1 {
		t.Fatalf("expected caller metadata untouched, got %v", md)
	}
}

func TestServicePublishSample(t *testing.T) {
	svc := newTestService(t)
	pub := svc.publisher.(*testPublisher)

	if err := svc.PublishSample(context.Background(), "iris.samples", testFeatureRecord(), nil); err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	if len(pub.Published()) != 1 {
		t.Fatalf("expected 1 message, got %d", len(pub.Published()))
	}

	var nilSvc *Service
	if err := nilSvc.PublishSample(context.Background(), "t", testFeatureRecord(), nil); err == nil {
		t.Fatal("expected error on nil service")
	}
}
