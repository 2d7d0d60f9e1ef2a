package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"rolesync/internal/events"
	"rolesync/internal/platform/kafka"
)

// HeaderEventID carries the producer's event id. Records without it are
// identified by their topic position.
const HeaderEventID = "event_id"

// Dispatcher is satisfied by *events.Registry.
type Dispatcher interface {
	Dispatch(ctx context.Context, env events.Envelope) error
}

// envelopeFor wraps a record value, which must be a JSON payload of kind.
func envelopeFor(kind events.Kind, msg *kafka.Message) (events.Envelope, error) {
	if !json.Valid(msg.Value) {
		return events.Envelope{}, fmt.Errorf("%w: %s is not JSON", events.ErrMalformedEvent, position(msg))
	}

	id := msg.Headers[HeaderEventID]
	if id == "" {
		id = position(msg)
	}
	ts := msg.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	return events.Envelope{
		ID:   id,
		Kind: kind,
		Time: ts,
		Data: json.RawMessage(msg.Value),
	}, nil
}

func position(msg *kafka.Message) string {
	return fmt.Sprintf("%s/%d@%d", msg.Topic, msg.Partition, msg.Offset)
}
