package watch

import (
	"context"
	"log/slog"
	"sync"

	"github.com/packrat-app/packrat/internal/metrics"
	"github.com/packrat-app/packrat/internal/models"
)

// Event is one asset mutation, as announced by the database trigger.
type Event struct {
	Op      string `json:"op"` // INSERT, UPDATE, DELETE
	UserID  string `json:"user_id"`
	AssetID string `json:"asset_id"`
}

// Source re-reads current state after an event. *repo.AssetRepo satisfies it.
type Source interface {
	List(ctx context.Context, userID string) ([]models.Asset, error)
	Get(ctx context.Context, userID, id string) (*models.Asset, error)
}

// DocUpdate carries the current state of a single watched asset.
// Asset is nil when the document is absent (deleted or never existed).
type DocUpdate struct {
	Asset *models.Asset
}

type collSub struct {
	userID string
	ch     chan []models.Asset
	once   sync.Once
}

type docSub struct {
	userID  string
	assetID string
	ch      chan DocUpdate
	once    sync.Once
}

// ==========================
// Hub
// ==========================

// Hub fans asset change events out to live subscribers. Events arrive from
// the Postgres asset_events channel (see Listen), so mutations made by any
// process reach every watching session. Each event triggers one re-read per
// affected subscription shape, and subscribers always receive the full
// current list or document, never a diff.
//
// Every send and every channel close happens under mu, and a send first
// re-checks that the subscriber is still registered. Cancellation between
// the state re-read and the delivery therefore drops the emission instead
// of hitting a closed channel.
type Hub struct {
	source Source
	logger *slog.Logger

	mu       sync.Mutex
	collSubs map[*collSub]struct{}
	docSubs  map[*docSub]struct{}
}

func NewHub(source Source, logger *slog.Logger) *Hub {
	return &Hub{
		source:   source,
		logger:   logger,
		collSubs: make(map[*collSub]struct{}),
		docSubs:  make(map[*docSub]struct{}),
	}
}

// ==========================
// Delivery
// ==========================

// A subscriber channel holds only the latest value: a slow consumer sees
// the current list, never a backlog of stale intermediate states. The
// drain-then-send runs under mu and never blocks (capacity 1, just
// drained), so holding the lock here is cheap.
func (h *Hub) pushColl(s *collSub, v []models.Asset) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.collSubs[s]; !ok {
		return
	}
	select {
	case <-s.ch:
	default:
	}
	select {
	case s.ch <- v:
	default:
	}
}

func (h *Hub) pushDoc(s *docSub, v DocUpdate) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.docSubs[s]; !ok {
		return
	}
	select {
	case <-s.ch:
	default:
	}
	select {
	case s.ch <- v:
	default:
	}
}

// ==========================
// Subscribe: collection
// ==========================

// WatchCollection subscribes to the user's full asset list. The current
// list is delivered first, then a fresh list after every mutation. The
// channel closes when cancel is called or ctx is done; cancel is
// idempotent. Failing to cancel leaks the subscription.
func (h *Hub) WatchCollection(ctx context.Context, userID string) (<-chan []models.Asset, func()) {
	s := &collSub{userID: userID, ch: make(chan []models.Asset, 1)}

	h.mu.Lock()
	h.collSubs[s] = struct{}{}
	h.mu.Unlock()
	metrics.IncWatchSubscribers()

	cancel := func() {
		s.once.Do(func() {
			h.mu.Lock()
			delete(h.collSubs, s)
			close(s.ch)
			h.mu.Unlock()
			metrics.DecWatchSubscribers()
		})
	}

	// Initial snapshot. A read failure degrades to an empty list; the
	// subscriber still gets later emissions.
	if list, err := h.source.List(ctx, userID); err != nil {
		h.logger.Error("watch: initial list failed", "user_id", userID, "error", err)
		h.pushColl(s, []models.Asset{})
	} else {
		h.pushColl(s, list)
	}

	go func() {
		<-ctx.Done()
		cancel()
	}()

	return s.ch, cancel
}

// ==========================
// Subscribe: document
// ==========================

// WatchDocument subscribes to a single asset. The current state is
// delivered first; deletion is delivered as an absent update.
func (h *Hub) WatchDocument(ctx context.Context, userID, assetID string) (<-chan DocUpdate, func()) {
	s := &docSub{userID: userID, assetID: assetID, ch: make(chan DocUpdate, 1)}

	h.mu.Lock()
	h.docSubs[s] = struct{}{}
	h.mu.Unlock()
	metrics.IncWatchSubscribers()

	cancel := func() {
		s.once.Do(func() {
			h.mu.Lock()
			delete(h.docSubs, s)
			close(s.ch)
			h.mu.Unlock()
			metrics.DecWatchSubscribers()
		})
	}

	if asset, err := h.source.Get(ctx, userID, assetID); err != nil {
		h.logger.Error("watch: initial get failed", "user_id", userID, "asset_id", assetID, "error", err)
		h.pushDoc(s, DocUpdate{})
	} else {
		h.pushDoc(s, DocUpdate{Asset: asset})
	}

	go func() {
		<-ctx.Done()
		cancel()
	}()

	return s.ch, cancel
}

// ==========================
// Dispatch
// ==========================

// Notify re-reads the state touched by ev and pushes it to matching
// subscribers. State is fetched once per event, not once per subscriber,
// and the fetch runs outside the lock; subscribers cancelled during the
// fetch simply miss the emission. Read failures are logged and the
// emission skipped; the subscription stays live for the next event.
func (h *Hub) Notify(ctx context.Context, ev Event) {
	h.mu.Lock()
	colls := make([]*collSub, 0, len(h.collSubs))
	for s := range h.collSubs {
		if s.userID == ev.UserID {
			colls = append(colls, s)
		}
	}
	docs := make([]*docSub, 0, len(h.docSubs))
	for s := range h.docSubs {
		if s.userID == ev.UserID && s.assetID == ev.AssetID {
			docs = append(docs, s)
		}
	}
	h.mu.Unlock()

	if len(colls) > 0 {
		list, err := h.source.List(ctx, ev.UserID)
		if err != nil {
			h.logger.Error("watch: list after event failed", "user_id", ev.UserID, "error", err)
		} else {
			for _, s := range colls {
				h.pushColl(s, list)
			}
		}
	}

	if len(docs) > 0 {
		if ev.Op == "DELETE" {
			for _, s := range docs {
				h.pushDoc(s, DocUpdate{})
			}
		} else {
			asset, err := h.source.Get(ctx, ev.UserID, ev.AssetID)
			if err != nil {
				h.logger.Error("watch: get after event failed", "user_id", ev.UserID, "asset_id", ev.AssetID, "error", err)
			} else {
				for _, s := range docs {
					h.pushDoc(s, DocUpdate{Asset: asset})
				}
			}
		}
	}
}
