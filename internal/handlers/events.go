package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/producthunt/apiserver/internal/metrics"
	"github.com/producthunt/apiserver/internal/notify"
	"go.uber.org/zap"
)

// EventsHandler streams product events as server-sent events. Delivery is
// best effort: a slow client misses events and nothing is replayed.
type EventsHandler struct {
	hub       *notify.Hub
	keepalive time.Duration
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

func NewEventsHandler(hub *notify.Hub, keepalive time.Duration, m *metrics.Metrics, logger *zap.Logger) *EventsHandler {
	if keepalive <= 0 {
		keepalive = 15 * time.Second
	}
	return &EventsHandler{hub: hub, keepalive: keepalive, metrics: m, logger: loggerOrNop(logger)}
}

// Stream holds the connection open until the client goes away, then releases
// the subscription and the keepalive ticker.
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, kindStorage, "streaming unsupported")
		return
	}

	// The server-wide write timeout would cut long-lived streams.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	sub := h.hub.Subscribe()
	defer h.hub.Unsubscribe(sub)
	h.metrics.StreamOpened()
	defer h.metrics.StreamClosed()

	ticker := time.NewTicker(h.keepalive)
	defer ticker.Stop()

	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case event, open := <-sub.Events:
			if !open {
				return
			}
			// Streams are public, so who acted stays off the wire.
			event.Actor = ""
			data, err := json.Marshal(event)
			if err != nil {
				h.logger.Error("failed to encode event", zap.Error(err))
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
