package httptransport

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"rolesync/internal/events"
	"rolesync/pkg/platform/sentinel"
)

const maxEventBytes = 64 << 10

// Dispatcher is satisfied by *events.Registry.
type Dispatcher interface {
	Dispatch(ctx context.Context, env events.Envelope) error
}

// EventsHandler accepts pushed envelopes. A 2xx acknowledges the event; any
// other status asks the sender to redeliver it.
type EventsHandler struct {
	dispatcher Dispatcher
	logger     *slog.Logger
}

// NewEventsHandler constructs an EventsHandler.
func NewEventsHandler(dispatcher Dispatcher, logger *slog.Logger) *EventsHandler {
	return &EventsHandler{dispatcher: dispatcher, logger: logger}
}

// Register mounts the events endpoint on the router.
func (h *EventsHandler) Register(r chi.Router) {
	r.Post("/v1/events", h.HandlePush)
}

// HandlePush handles POST /v1/events.
func (h *EventsHandler) HandlePush(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetReqID(ctx)
	start := time.Now()

	var env events.Envelope
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxEventBytes))
	if err := dec.Decode(&env); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed event envelope"})
		return
	}
	if env.ID == "" {
		env.ID = requestID
	}
	if env.Time.IsZero() {
		env.Time = start.UTC()
	}

	if err := h.dispatcher.Dispatch(ctx, env); err != nil {
		if errors.Is(err, sentinel.ErrInvalidInput) {
			h.logger.WarnContext(ctx, "event rejected",
				"request_id", requestID,
				"event_id", env.ID,
				"kind", string(env.Kind),
				"error", err,
			)
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
		h.logger.ErrorContext(ctx, "event handling failed",
			"request_id", requestID,
			"event_id", env.ID,
			"kind", string(env.Kind),
			"error", err,
		)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "event handling failed"})
		return
	}

	h.logger.DebugContext(ctx, "event handled",
		"request_id", requestID,
		"event_id", env.ID,
		"kind", string(env.Kind),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	w.WriteHeader(http.StatusNoContent)
}
