package watch

import (
	"context"
	"encoding/json"
	"time"

	"github.com/lib/pq"
)

const notifyChannel = "asset_events"

// Listen connects a pq.Listener to the asset_events channel and feeds
// decoded events into the hub until ctx is done. It blocks; run it in its
// own goroutine. Reconnection is handled by pq.Listener itself.
func (h *Hub) Listen(ctx context.Context, databaseURL string) error {
	listener := pq.NewListener(databaseURL, 10*time.Second, time.Minute,
		func(event pq.ListenerEventType, err error) {
			if err != nil {
				h.logger.Error("watch: listener event", "event", int(event), "error", err)
			}
		})
	defer listener.Close()

	if err := listener.Listen(notifyChannel); err != nil {
		return err
	}
	h.logger.Info("watch: listening", "channel", notifyChannel)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case n := <-listener.Notify:
			// n is nil after a reconnect; subscribers may have missed
			// events, so refresh nothing here and wait for real traffic.
			if n == nil {
				continue
			}
			var ev Event
			if err := json.Unmarshal([]byte(n.Extra), &ev); err != nil {
				h.logger.Error("watch: bad notify payload", "payload", n.Extra, "error", err)
				continue
			}
			h.Notify(ctx, ev)
		case <-time.After(90 * time.Second):
			if err := listener.Ping(); err != nil {
				h.logger.Error("watch: listener ping failed", "error", err)
			}
		}
	}
}
