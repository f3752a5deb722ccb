package runtime

import (
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	errspkg "github.com/petalops/irisflow/internal/runtime/errors"
)

type handlerRegistration struct {
	Name         string
	ConsumeTopic string
	Subscriber   message.Subscriber
	PublishTopic string
	Publisher    message.Publisher
	Handler      message.HandlerFunc
}

// MessageHandlerRegistration wires a raw Watermill handler without typed helpers.
type MessageHandlerRegistration struct {
	Name         string
	ConsumeTopic string
	PublishTopic string
	Handler      message.HandlerFunc
	Subscriber   message.Subscriber
	Publisher    message.Publisher
}

// RegisterMessageHandler attaches the provided handler to the service router.
func RegisterMessageHandler(svc *Service, cfg MessageHandlerRegistration) error {
	if svc == nil {
		return errspkg.ErrServiceRequired
	}

	return svc.registerHandler(handlerRegistration{
		Name:         cfg.Name,
		ConsumeTopic: cfg.ConsumeTopic,
		PublishTopic: cfg.PublishTopic,
		Subscriber:   cfg.Subscriber,
		Publisher:    cfg.Publisher,
		Handler:      cfg.Handler,
	})
}

func (s *Service) registerHandler(cfg handlerRegistration) error {
	if cfg.Handler == nil {
		return errspkg.ErrHandlerRequired
	}
	if cfg.ConsumeTopic == "" {
		return errspkg.ErrConsumeTopicRequired
	}
	if cfg.Name == "" {
		return errspkg.ErrHandlerNameRequired
	}
	if cfg.Subscriber == nil {
		cfg.Subscriber = s.subscriber
	}
	if cfg.Publisher == nil {
		cfg.Publisher = s.publisher
	}

	stats := newHandlerStats(cfg.Name, cfg.ConsumeTopic, cfg.PublishTopic, s.getResourceTracker())
	info := &HandlerInfo{
		Name:         cfg.Name,
		ConsumeTopic: cfg.ConsumeTopic,
		PublishTopic: cfg.PublishTopic,
		Stats:        stats,
	}

	s.handlersMu.Lock()
	s.handlers = append(s.handlers, info)
	s.handlersMu.Unlock()

	cfg.Handler = wrapHandlerWithStats(cfg.Handler, stats, s.getErrorClassifier())

	s.router.AddHandler(
		cfg.Name,
		cfg.ConsumeTopic,
		cfg.Subscriber,
		cfg.PublishTopic,
		cfg.Publisher,
		cfg.Handler,
	)

	return nil
}

// Handlers returns a snapshot of the registered handlers and their stats.
func (s *Service) Handlers() []*HandlerInfo {
	s.handlersMu.RLock()
	defer s.handlersMu.RUnlock()

	clone := make([]*HandlerInfo, len(s.handlers))
	copy(clone, s.handlers)
	return clone
}

func wrapHandlerWithStats(handler message.HandlerFunc, stats *HandlerStats, classifier ErrorClassifier) message.HandlerFunc {
	return func(msg *message.Message) ([]*message.Message, error) {
		invocation := stats.onMessageStart(msg)
		start := time.Now()
		msgs, err := handler(msg)
		duration := time.Since(start)

		stats.onMessageFinish(invocation, duration, err, classifier)

		return msgs, err
	}
}
