package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/packrat-app/packrat/internal/middleware"
	"github.com/packrat-app/packrat/internal/watch"
)

// WatchHandler serves the live subscription endpoints as server-sent
// events. Each event's data is the full current state, mirroring what the
// hub emits; clients re-render rather than patching.
type WatchHandler struct {
	Hub *watch.Hub
}

// heartbeatInterval paces the comment frames that keep a quiet stream from
// being dropped by idle-timeout proxies. Clients ignore comment frames.
var heartbeatInterval = 25 * time.Second

func sseHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
}

//
// ==========================
// Watch Collection
// ==========================
//

// WatchCollection streams the user's full asset list: once on connect and
// again after every mutation. The subscription ends when the client
// disconnects (request context cancellation).
func (h *WatchHandler) WatchCollection(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	flusher, ok := w.(http.Flusher)
	if !ok {
		JSONError(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	sseHeaders(w)
	flusher.Flush()

	ch, cancel := h.Hub.WatchCollection(r.Context(), userID)
	defer cancel()

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case list, ok := <-ch:
			if !ok {
				return
			}
			data, err := json.Marshal(list)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		case <-ticker.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		}
	}
}

//
// ==========================
// Watch Document
// ==========================
//

// WatchDocument streams a single asset. The payload is {"asset": {...}} or
// {"asset": null} once the document is gone, so a client can show the
// not-found state after an external delete.
func (h *WatchHandler) WatchDocument(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	id := chi.URLParam(r, "id")

	flusher, ok := w.(http.Flusher)
	if !ok {
		JSONError(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	sseHeaders(w)
	flusher.Flush()

	ch, cancel := h.Hub.WatchDocument(r.Context(), userID, id)
	defer cancel()

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case update, ok := <-ch:
			if !ok {
				return
			}
			data, err := json.Marshal(map[string]interface{}{"asset": update.Asset})
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		case <-ticker.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		}
	}
}
