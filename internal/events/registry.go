package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"rolesync/internal/documents"
)

// HandlerFunc processes one envelope. A non-nil error is a failed outcome the
// delivering infrastructure may redeliver.
type HandlerFunc func(ctx context.Context, env Envelope) error

// Registry routes envelopes to the handlers registered for their kind.
type Registry struct {
	mu       sync.RWMutex
	handlers map[Kind][]HandlerFunc
	logger   *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		handlers: make(map[Kind][]HandlerFunc),
		logger:   logger,
	}
}

// Register adds a raw handler for kind.
func (r *Registry) Register(kind Kind, h HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[kind] = append(r.handlers[kind], h)
}

// OnUserCreated registers fn for user creation events.
func (r *Registry) OnUserCreated(fn func(ctx context.Context, evt UserCreated) error) {
	r.Register(KindUserCreated, func(ctx context.Context, env Envelope) error {
		evt, err := decodeUserCreated(env)
		if err != nil {
			return err
		}
		return fn(ctx, evt)
	})
}

// OnDocumentUpdated registers fn for updates to documents whose path matches
// pattern, e.g. "users/{userId}". Updates to other paths are ignored.
func (r *Registry) OnDocumentUpdated(pattern string, fn func(ctx context.Context, change DocumentChange) error) error {
	p, err := documents.ParsePattern(pattern)
	if err != nil {
		return err
	}
	r.Register(KindDocumentUpdated, func(ctx context.Context, env Envelope) error {
		evt, ref, err := decodeDocumentUpdated(env)
		if err != nil {
			return err
		}
		params, ok := p.Match(ref.Path())
		if !ok {
			return nil
		}
		return fn(ctx, DocumentChange{
			EventID: env.ID,
			Ref:     ref,
			Params:  params,
			Before:  evt.Before,
			After:   evt.After,
		})
	})
	return nil
}

// Dispatch runs every handler registered for env.Kind. Envelopes of unknown
// kinds are acknowledged so they are not redelivered forever.
func (r *Registry) Dispatch(ctx context.Context, env Envelope) error {
	if env.Kind == "" {
		return fmt.Errorf("%w: envelope %q has no kind", ErrMalformedEvent, env.ID)
	}

	r.mu.RLock()
	handlers := r.handlers[env.Kind]
	r.mu.RUnlock()

	if len(handlers) == 0 {
		r.logger.WarnContext(ctx, "no handler for event kind, skipping",
			"event_id", env.ID,
			"kind", string(env.Kind),
		)
		return nil
	}

	var errs []error
	for _, h := range handlers {
		if err := h(ctx, env); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// DocumentSink returns a callback that dispatches store changes as
// KindDocumentUpdated envelopes. Handler failures are logged; an in-process
// store has no redelivery.
func (r *Registry) DocumentSink(ctx context.Context) func(documents.Change) {
	return func(change documents.Change) {
		env, err := NewDocumentUpdated(change)
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to encode document change",
				"document", change.Ref.Path(),
				"error", err,
			)
			return
		}
		if err := r.Dispatch(ctx, env); err != nil {
			r.logger.ErrorContext(ctx, "document change handler failed",
				"event_id", env.ID,
				"document", change.Ref.Path(),
				"error", err,
			)
		}
	}
}

// Kinds lists the kinds that have at least one handler.
func (r *Registry) Kinds() []Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]Kind, 0, len(r.handlers))
	for k := range r.handlers {
		kinds = append(kinds, k)
	}
	return kinds
}
