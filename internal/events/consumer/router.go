// Package consumer turns Kafka records into registry events. Each topic
// carries payloads of exactly one event kind.
package consumer

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"rolesync/internal/events"
	"rolesync/internal/platform/kafka"
)

// Router binds topics to event kinds and dispatches every record as an
// envelope of its topic's kind. It implements kafka.Handler.
type Router struct {
	kinds      map[string]events.Kind
	dispatcher Dispatcher
	logger     *slog.Logger
}

func NewRouter(dispatcher Dispatcher, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		kinds:      make(map[string]events.Kind),
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Register binds topic to kind. Rebinding a topic to another kind is an error.
func (r *Router) Register(topic string, kind events.Kind) error {
	if topic == "" {
		return fmt.Errorf("bind %s: topic is required", kind)
	}
	if kind == "" {
		return fmt.Errorf("bind %s: event kind is required", topic)
	}
	if bound, ok := r.kinds[topic]; ok && bound != kind {
		return fmt.Errorf("topic %s is already bound to %s", topic, bound)
	}
	r.kinds[topic] = kind
	return nil
}

// Topics returns the bound topics, sorted.
func (r *Router) Topics() []string {
	topics := make([]string, 0, len(r.kinds))
	for t := range r.kinds {
		topics = append(topics, t)
	}
	slices.Sort(topics)
	return topics
}

// Handle dispatches msg as an event of its topic's kind. Records of unbound
// topics are logged and acknowledged.
func (r *Router) Handle(ctx context.Context, msg *kafka.Message) error {
	kind, ok := r.kinds[msg.Topic]
	if !ok {
		r.logger.WarnContext(ctx, "no event kind bound to topic, skipping record",
			"topic", msg.Topic,
			"offset", msg.Offset,
		)
		return nil
	}
	env, err := envelopeFor(kind, msg)
	if err != nil {
		return err
	}
	return r.dispatcher.Dispatch(ctx, env)
}
