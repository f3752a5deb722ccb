package runtime

import (
	"context"
	"sync"
	"testing"

	"github.com/ThreeDotsLabs/watermill/message"

	configpkg "github.com/petalops/irisflow/internal/runtime/config"
	loggingpkg "github.com/petalops/irisflow/internal/runtime/logging"
)

type testPublisher struct {
	mu        sync.Mutex
	published []publishedMessage
	err       error
}

type publishedMessage struct {
	topic string
	msg   *message.Message
}

func (p *testPublisher) Publish(topic string, messages ...*message.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	for _, msg := range messages {
		p.published = append(p.published, publishedMessage{topic: topic, msg: msg})
	}
	return nil
}

func (p *testPublisher) Close() error { return nil }

func (p *testPublisher) Published() []publishedMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	clone := make([]publishedMessage, len(p.published))
	copy(clone, p.published)
	return clone
}

type testSubscriber struct {
	err error
}

func (s *testSubscriber) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	if s.err != nil {
		return nil, s.err
	}
	ch := make(chan *message.Message)
	close(ch)
	return ch, nil
}

func (s *testSubscriber) Close() error { return nil }

type testLogEntry struct {
	level  string
	msg    string
	err    error
	fields loggingpkg.LogFields
}

type testLogger struct {
	mu      sync.Mutex
	entries []testLogEntry
	base    loggingpkg.LogFields
}

func newTestLogger() *testLogger {
	return &testLogger{}
}

func (l *testLogger) record(level, msg string, err error, fields loggingpkg.LogFields) {
	merged := make(loggingpkg.LogFields, len(l.base)+len(fields))
	for k, v := range l.base {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, testLogEntry{level: level, msg: msg, err: err, fields: merged})
}

func (l *testLogger) With(fields loggingpkg.LogFields) loggingpkg.ServiceLogger {
	merged := make(loggingpkg.LogFields, len(l.base)+len(fields))
	for k, v := range l.base {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &testLogger{base: merged}
}

func (l *testLogger) Debug(msg string, fields loggingpkg.LogFields) { l.record("debug", msg, nil, fields) }
func (l *testLogger) Info(msg string, fields loggingpkg.LogFields)  { l.record("info", msg, nil, fields) }
func (l *testLogger) Warn(msg string, fields loggingpkg.LogFields)  { l.record("warn", msg, nil, fields) }
func (l *testLogger) Error(msg string, err error, fields loggingpkg.LogFields) {
	l.record("error", msg, err, fields)
}

func (l *testLogger) Entries() []testLogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	clone := make([]testLogEntry, len(l.entries))
	copy(clone, l.entries)
	return clone
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	log := newTestLogger()
	wmLogger := loggingpkg.NewWatermillAdapter(log)
	router, err := message.NewRouter(message.RouterConfig{}, wmLogger)
	if err != nil {
		t.Fatalf("router init failed: %v", err)
	}
	return &Service{
		Conf:       &configpkg.Config{},
		Logger:     log,
		router:     router,
		publisher:  &testPublisher{},
		subscriber: &testSubscriber{},
	}
}
