package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/phrazzld/relay-api/internal/api/shared"
	"github.com/phrazzld/relay-api/internal/events"
	"github.com/phrazzld/relay-api/internal/platform/logger"
)

const (
	eventStreamBuffer = 64
	keepAliveInterval = 15 * time.Second
)

// EventsHandler streams task events to clients as server-sent events.
type EventsHandler struct {
	broadcaster *events.Broadcaster
	keepAlive   time.Duration

	// streams end when ctx is done, so server shutdown does not wait on
	// open connections
	ctx context.Context
}

// NewEventsHandler creates an EventsHandler fed by broadcaster. Open
// streams are closed once ctx is done.
func NewEventsHandler(ctx context.Context, broadcaster *events.Broadcaster) *EventsHandler {
	return &EventsHandler{broadcaster: broadcaster, keepAlive: keepAliveInterval, ctx: ctx}
}

// Stream handles GET /api/events. The stream ends when the client goes away
// or the server shuts down.
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		shared.RespondWithError(w, r, http.StatusInternalServerError, "Streaming unsupported")
		return
	}

	log := logger.FromContext(r.Context())
	ch, cancel := h.broadcaster.Subscribe(eventStreamBuffer)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	log.Debug("event stream opened")
	defer log.Debug("event stream closed")

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-h.ctx.Done():
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case event, ok := <-ch:
			if !ok {
				return
			}
			data, err := json.Marshal(event)
			if err != nil {
				log.Error("failed to encode event", "error", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", event.ID, event.Type, data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
