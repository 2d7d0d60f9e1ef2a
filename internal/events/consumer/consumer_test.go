package consumer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rolesync/internal/events"
	"rolesync/internal/platform/kafka"
)

type recordingDispatcher struct {
	envs []events.Envelope
	err  error
}

func (d *recordingDispatcher) Dispatch(_ context.Context, env events.Envelope) error {
	d.envs = append(d.envs, env)
	return d.err
}

func newTestRouter(t *testing.T, d Dispatcher) *Router {
	t.Helper()
	r := NewRouter(d, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, r.Register("identity.user-created", events.KindUserCreated))
	require.NoError(t, r.Register("documents.users-updated", events.KindDocumentUpdated))
	return r
}

func TestRouter_Register(t *testing.T) {
	r := newTestRouter(t, &recordingDispatcher{})

	t.Run("topics are sorted", func(t *testing.T) {
		assert.Equal(t, []string{"documents.users-updated", "identity.user-created"}, r.Topics())
	})

	t.Run("rebinding to the same kind is allowed", func(t *testing.T) {
		require.NoError(t, r.Register("identity.user-created", events.KindUserCreated))
	})

	t.Run("rebinding to another kind fails", func(t *testing.T) {
		err := r.Register("identity.user-created", events.KindDocumentUpdated)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already bound")
	})

	t.Run("empty topic or kind fails", func(t *testing.T) {
		assert.Error(t, r.Register("", events.KindUserCreated))
		assert.Error(t, r.Register("t", ""))
	})
}

func TestRouter_Handle(t *testing.T) {
	ctx := context.Background()

	t.Run("record becomes an envelope of its topic's kind", func(t *testing.T) {
		d := &recordingDispatcher{}
		r := newTestRouter(t, d)

		err := r.Handle(ctx, &kafka.Message{
			Topic:   "identity.user-created",
			Offset:  42,
			Value:   []byte(`{"uid":"abc123"}`),
			Headers: map[string]string{HeaderEventID: "evt-1"},
		})
		require.NoError(t, err)
		require.Len(t, d.envs, 1)
		assert.Equal(t, "evt-1", d.envs[0].ID)
		assert.Equal(t, events.KindUserCreated, d.envs[0].Kind)
		assert.JSONEq(t, `{"uid":"abc123"}`, string(d.envs[0].Data))
		assert.False(t, d.envs[0].Time.IsZero())
	})

	t.Run("profile topic yields document updates", func(t *testing.T) {
		d := &recordingDispatcher{}
		r := newTestRouter(t, d)

		require.NoError(t, r.Handle(ctx, &kafka.Message{Topic: "documents.users-updated", Value: []byte(`{}`)}))
		assert.Equal(t, events.KindDocumentUpdated, d.envs[0].Kind)
	})

	t.Run("id falls back to topic position", func(t *testing.T) {
		d := &recordingDispatcher{}
		r := newTestRouter(t, d)

		require.NoError(t, r.Handle(ctx, &kafka.Message{Topic: "identity.user-created", Partition: 2, Offset: 9, Value: []byte(`{}`)}))
		assert.Equal(t, "identity.user-created/2@9", d.envs[0].ID)
	})

	t.Run("unbound topic is acknowledged without dispatch", func(t *testing.T) {
		d := &recordingDispatcher{}
		r := newTestRouter(t, d)

		require.NoError(t, r.Handle(ctx, &kafka.Message{Topic: "billing.invoices", Value: []byte(`{}`)}))
		assert.Empty(t, d.envs)
	})

	t.Run("non-JSON value is malformed", func(t *testing.T) {
		d := &recordingDispatcher{}
		r := newTestRouter(t, d)

		err := r.Handle(ctx, &kafka.Message{Topic: "identity.user-created", Value: []byte("uid=abc123")})
		require.ErrorIs(t, err, events.ErrMalformedEvent)
		assert.Empty(t, d.envs)
	})

	t.Run("dispatch errors propagate", func(t *testing.T) {
		boom := errors.New("boom")
		r := newTestRouter(t, &recordingDispatcher{err: boom})
		require.ErrorIs(t, r.Handle(ctx, &kafka.Message{Topic: "documents.users-updated", Value: []byte(`{}`)}), boom)
	})
}
