package task

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/atelierhq/atelier-api/internal/events"
)

// DispatchEventHandler bridges the events package and the Dispatcher: it
// receives image_generation events emitted after a batch commit, decodes
// the dispatch plan, and hands it to the dispatcher. Registered with the
// event emitter during application wiring.
type DispatchEventHandler struct {
	dispatcher *Dispatcher
	logger     *slog.Logger
}

// NewDispatchEventHandler creates a handler backed by the given
// dispatcher.
func NewDispatchEventHandler(dispatcher *Dispatcher, logger *slog.Logger) *DispatchEventHandler {
	if dispatcher == nil {
		panic("event handler requires a dispatcher")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DispatchEventHandler{
		dispatcher: dispatcher,
		logger:     logger.With(slog.String("component", "dispatch_event_handler")),
	}
}

// Ensure DispatchEventHandler implements events.EventHandler
var _ events.EventHandler = (*DispatchEventHandler)(nil)

// HandleEvent processes an image_generation event. Events of other types
// are ignored so additional handlers can share the emitter.
func (h *DispatchEventHandler) HandleEvent(ctx context.Context, event *events.DispatchEvent) error {
	if event == nil {
		return fmt.Errorf("cannot handle nil event")
	}
	if event.Type != events.EventTypeImageGeneration {
		h.logger.Debug("ignoring event of unhandled type",
			slog.String("event_type", event.Type))
		return nil
	}

	var plan BatchDispatch
	if err := event.UnmarshalPayload(&plan); err != nil {
		return fmt.Errorf("failed to decode dispatch plan: %w", err)
	}

	h.dispatcher.DispatchBatch(plan)
	return nil
}
