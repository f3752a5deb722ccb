package aws

import (
	"context"
	"errors"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-aws/sns"
	"github.com/ThreeDotsLabs/watermill-aws/sqs"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petalops/irisflow/transport"
)

func TestRegister(t *testing.T) {
	original := transport.DefaultRegistry
	defer func() { transport.DefaultRegistry = original }()
	transport.DefaultRegistry = transport.NewRegistry()
	Register()

	caps := transport.GetCapabilities(TransportName)
	assert.Equal(t, "aws", caps.Name)
	assert.True(t, caps.SupportsDelay)
	assert.True(t, caps.SupportsNativeDLQ)
	assert.Equal(t, int64(262144), caps.MaxMessageSize)
}

func TestCapabilities(t *testing.T) {
	assert.Equal(t, transport.AWSCapabilities, Capabilities())
}

func TestTransportName(t *testing.T) {
	assert.Equal(t, "aws", TransportName)
}

func TestBuild(t *testing.T) {
	t.Run("creates transport with mocked factories", func(t *testing.T) {
		originalLoader := DefaultConfigLoader
		originalPubFactory := PublisherFactory
		originalSubFactory := SubscriberFactory
		defer func() {
			DefaultConfigLoader = originalLoader
			PublisherFactory = originalPubFactory
			SubscriberFactory = originalSubFactory
		}()

		DefaultConfigLoader = func(ctx context.Context, opts ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
			return aws.Config{Region: "eu-central-1"}, nil
		}

		mockPub := &mockPublisher{}
		mockSub := &mockSubscriber{}
		PublisherFactory = func(cfg sns.PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
			assert.Equal(t, "eu-central-1", cfg.AWSConfig.Region)
			return mockPub, nil
		}
		SubscriberFactory = func(cfg sns.SubscriberConfig, sqsCfg sqs.SubscriberConfig, logger watermill.LoggerAdapter) (message.Subscriber, error) {
			assert.Equal(t, "eu-central-1", cfg.AWSConfig.Region)
			return mockSub, nil
		}

		cfg := &mockConfig{region: "eu-central-1", accountID: "123456789012"}
		tr, err := Build(context.Background(), cfg, watermill.NopLogger{})

		require.NoError(t, err)
		assert.Equal(t, mockPub, tr.Publisher)
		assert.Equal(t, mockSub, tr.Subscriber)
	})

	t.Run("returns error when config loader fails", func(t *testing.T) {
		originalLoader := DefaultConfigLoader
		defer func() { DefaultConfigLoader = originalLoader }()

		DefaultConfigLoader = func(ctx context.Context, opts ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
			return aws.Config{}, errors.New("no credentials")
		}

		cfg := &mockConfig{region: "eu-central-1"}
		_, err := Build(context.Background(), cfg, watermill.NopLogger{})
		assert.Error(t, err)
	})
}

func TestResolveAccountAndRegion(t *testing.T) {
	logger := watermill.NopLogger{}

	t.Run("uses configured values", func(t *testing.T) {
		cfg := &mockConfig{region: "us-east-1", accountID: "123456789012"}
		accountID, region := resolveAccountAndRegion(cfg, logger, "fallback")
		assert.Equal(t, "123456789012", accountID)
		assert.Equal(t, "us-east-1", region)
	})

	t.Run("falls back to localstack account for custom endpoints", func(t *testing.T) {
		cfg := &mockConfig{region: "us-east-1", endpoint: "http://localhost:4566"}
		accountID, _ := resolveAccountAndRegion(cfg, logger, "")
		assert.Equal(t, localstackAccountID, accountID)
	})

	t.Run("replaces invalid account id when using localstack", func(t *testing.T) {
		cfg := &mockConfig{region: "us-east-1", accountID: "42", endpoint: "http://localhost:4566"}
		accountID, _ := resolveAccountAndRegion(cfg, logger, "")
		assert.Equal(t, localstackAccountID, accountID)
	})

	t.Run("nil config uses fallback region", func(t *testing.T) {
		accountID, region := resolveAccountAndRegion(nil, logger, "eu-west-1")
		assert.Empty(t, accountID)
		assert.Equal(t, "eu-west-1", region)
	})
}

func TestAWSEndpointURL(t *testing.T) {
	parsed, err := awsEndpointURL(&mockConfig{endpoint: "http://localhost:4566"})
	require.NoError(t, err)
	require.NotNil(t, parsed)
	assert.Equal(t, "localhost:4566", parsed.Host)

	parsed, err = awsEndpointURL(&mockConfig{})
	require.NoError(t, err)
	assert.Nil(t, parsed)
}

type mockConfig struct {
	region    string
	accountID string
	endpoint  string
}

func (m *mockConfig) GetPubSubSystem() string       { return "aws" }
func (m *mockConfig) GetKafkaBrokers() []string     { return nil }
func (m *mockConfig) GetKafkaConsumerGroup() string { return "" }
func (m *mockConfig) GetRabbitMQURL() string        { return "" }
func (m *mockConfig) GetNATSURL() string            { return "" }
func (m *mockConfig) GetNATSJetStream() bool        { return false }
func (m *mockConfig) GetHTTPServerAddress() string  { return "" }
func (m *mockConfig) GetHTTPPublisherURL() string   { return "" }
func (m *mockConfig) GetAWSRegion() string          { return m.region }
func (m *mockConfig) GetAWSAccountID() string       { return m.accountID }
func (m *mockConfig) GetAWSAccessKeyID() string     { return "" }
func (m *mockConfig) GetAWSSecretAccessKey() string { return "" }
func (m *mockConfig) GetAWSEndpoint() string        { return m.endpoint }

type mockPublisher struct{}

func (m *mockPublisher) Publish(topic string, messages ...*message.Message) error { return nil }
func (m *mockPublisher) Close() error                                             { return nil }

type mockSubscriber struct{}

func (m *mockSubscriber) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return make(chan *message.Message), nil
}
func (m *mockSubscriber) Close() error { return nil }
