package runtime

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	errspkg "github.com/petalops/irisflow/internal/runtime/errors"
	idspkg "github.com/petalops/irisflow/internal/runtime/ids"
	"github.com/petalops/irisflow/internal/runtime/ingest"
	"github.com/petalops/irisflow/internal/runtime/jsoncodec"
	metadatapkg "github.com/petalops/irisflow/internal/runtime/metadata"
)

// Producer emits iris samples onto the configured transport.
type Producer interface {
	PublishSample(ctx context.Context, topic string, rec ingest.FeatureRecord, metadata metadatapkg.Metadata) error
}

// NewMessageFromJSON converts the provided value into a Watermill message
// with a ULID message ID and the supplied metadata attributes.
func NewMessageFromJSON(v any, metadata metadatapkg.Metadata) (*message.Message, error) {
	if v == nil {
		return nil, errspkg.ErrPayloadRequired
	}

	payload, err := jsoncodec.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	msg := message.NewMessage(idspkg.NewMessageID(), payload)
	msg.Metadata = metadatapkg.ToWatermill(metadata)
	return msg, nil
}

// PublishJSON marshals the value and publishes it to the provided topic.
func PublishJSON(ctx context.Context, publisher message.Publisher, topic string, v any, metadata metadatapkg.Metadata) error {
	if publisher == nil {
		return errspkg.ErrPublisherRequired
	}
	if topic == "" {
		return errspkg.ErrTopicRequired
	}

	msg, err := NewMessageFromJSON(v, metadata)
	if err != nil {
		return err
	}

	if ctx != nil {
		msg.SetContext(ctx)
	}

	return publisher.Publish(topic, msg)
}

// PublishSample publishes a feature record with the standard sample
// attributes (sample id and publish timestamp) merged into the metadata.
func PublishSample(ctx context.Context, publisher message.Publisher, topic string, rec ingest.FeatureRecord, metadata metadatapkg.Metadata) error {
	enriched := metadata.WithAll(metadatapkg.Metadata{
		metadatapkg.KeySampleID:    strconv.FormatInt(rec.SampleID, 10),
		metadatapkg.KeyPublishedAt: time.Now().UTC().Format(time.RFC3339Nano),
	})
	return PublishJSON(ctx, publisher, topic, rec, enriched)
}

// PublishSample emits the record using the Service publisher so callers can
// produce samples without touching the internal Watermill APIs directly.
func (s *Service) PublishSample(ctx context.Context, topic string, rec ingest.FeatureRecord, metadata metadatapkg.Metadata) error {
	if s == nil {
		return errors.New("pipeline service is nil")
	}
	return PublishSample(ctx, s.publisher, topic, rec, metadata)
}

// PublishJSON emits an arbitrary JSON payload using the Service publisher.
func (s *Service) PublishJSON(ctx context.Context, topic string, v any, metadata metadatapkg.Metadata) error {
	if s == nil {
		return errors.New("pipeline service is nil")
	}
	return PublishJSON(ctx, s.publisher, topic, v, metadata)
}
