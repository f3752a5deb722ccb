// Package nats provides a NATS transport for irisflow. Core NATS is the
// default; setting the JetStream config flag switches to JetStream-backed
// delivery with acknowledgments and redelivery.
package nats

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/petalops/irisflow/transport"
)

// TransportName is the name used to register this transport.
const TransportName = "nats"

// PublisherFactory allows overriding the publisher creation for testing.
var PublisherFactory = func(cfg nats.PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
	return nats.NewPublisher(cfg, logger)
}

// SubscriberFactory allows overriding the subscriber creation for testing.
var SubscriberFactory = func(cfg nats.SubscriberConfig, logger watermill.LoggerAdapter) (message.Subscriber, error) {
	return nats.NewSubscriber(cfg, logger)
}

func init() {
	transport.RegisterWithCapabilities(TransportName, Build, transport.NATSCapabilities)
}

// Register registers the NATS transport with the default registry. It is
// called automatically on import and only needs to be invoked by tests that
// swap out the registry.
func Register() {
	transport.RegisterWithCapabilities(TransportName, Build, transport.NATSCapabilities)
}

// Build creates a new NATS transport. JetStream is provisioned automatically
// when enabled in the config.
func Build(ctx context.Context, cfg transport.Config, logger watermill.LoggerAdapter) (transport.Transport, error) {
	url := cfg.GetNATSURL()
	marshaler := &nats.NATSMarshaler{}

	jetStream := nats.JetStreamConfig{Disabled: true}
	if cfg.GetNATSJetStream() {
		jetStream = nats.JetStreamConfig{AutoProvision: true}
	}

	publisher, err := PublisherFactory(
		nats.PublisherConfig{
			URL:       url,
			Marshaler: marshaler,
			JetStream: jetStream,
		},
		logger,
	)
	if err != nil {
		return transport.Transport{}, err
	}

	subscriber, err := SubscriberFactory(
		nats.SubscriberConfig{
			URL:         url,
			Unmarshaler: marshaler,
			JetStream:   jetStream,
		},
		logger,
	)
	if err != nil {
		return transport.Transport{}, err
	}

	return transport.Transport{
		Publisher:  publisher,
		Subscriber: subscriber,
	}, nil
}

// Capabilities returns the capabilities of core NATS delivery.
func Capabilities() transport.Capabilities {
	return transport.NATSCapabilities
}

// CapabilitiesFor reports the capabilities of the delivery mode the given
// config selects.
func CapabilitiesFor(jetStream bool) transport.Capabilities {
	if jetStream {
		return transport.NATSJetStreamCapabilities
	}
	return transport.NATSCapabilities
}
