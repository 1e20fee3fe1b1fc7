package httphandler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// keepaliveInterval is how often a comment line is written to an idle stream
// so proxies do not kill the connection.
const keepaliveInterval = 25 * time.Second

// Stream serves the live notification feed as server-sent events. Each
// pipeline notification becomes one SSE message whose event field is the
// notification kind and whose data is the JSON-encoded payload. The
// connection stays open until the client disconnects or the server shuts
// down.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	sub, cancel := h.notifier.Subscribe()
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	// Reconnect hint for EventSource clients.
	fmt.Fprint(w, "retry: 3000\n\n")
	flusher.Flush()

	keepalive := time.NewTicker(keepaliveInterval)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return

		case note, open := <-sub:
			if !open {
				// Dropped as a stalled subscriber.
				return
			}
			if err := writeSSE(w, string(note.Kind), note.Payload); err != nil {
				h.logger.Debug("stream write failed", "error", err)
				return
			}
			flusher.Flush()

		case <-keepalive.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// writeSSE writes one server-sent event with the given event name and
// JSON-encoded data.
func writeSSE(w http.ResponseWriter, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding stream payload: %w", err)
	}

	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	return err
}
