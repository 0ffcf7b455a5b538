package watch

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/packrat-app/packrat/internal/models"
)

// fakeSource serves canned per-user state and lets tests swap it between
// events.
type fakeSource struct {
	mu     sync.Mutex
	assets map[string][]models.Asset // keyed by user id
}

func newFakeSource() *fakeSource {
	return &fakeSource{assets: map[string][]models.Asset{}}
}

func (f *fakeSource) set(userID string, assets ...models.Asset) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.assets[userID] = assets
}

func (f *fakeSource) List(_ context.Context, userID string) ([]models.Asset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Asset{}
	out = append(out, f.assets[userID]...)
	return out, nil
}

func (f *fakeSource) Get(_ context.Context, userID, id string) (*models.Asset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.assets[userID] {
		if a.ID == id {
			copied := a
			return &copied, nil
		}
	}
	return nil, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func recvList(t *testing.T, ch <-chan []models.Asset) []models.Asset {
	t.Helper()
	select {
	case list, ok := <-ch:
		if !ok {
			t.Fatal("channel closed while expecting a list")
		}
		return list
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for list emission")
		return nil
	}
}

func recvDoc(t *testing.T, ch <-chan DocUpdate) DocUpdate {
	t.Helper()
	select {
	case update, ok := <-ch:
		if !ok {
			t.Fatal("channel closed while expecting an update")
		}
		return update
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for document emission")
		return DocUpdate{}
	}
}

func TestHub_WatchCollection_InitialSnapshot(t *testing.T) {
	source := newFakeSource()
	source.set("u1", models.Asset{ID: "a1", UserID: "u1", Name: "Camera"})
	hub := NewHub(source, testLogger())

	ch, cancel := hub.WatchCollection(context.Background(), "u1")
	defer cancel()

	list := recvList(t, ch)
	if len(list) != 1 || list[0].ID != "a1" {
		t.Errorf("unexpected initial snapshot: %+v", list)
	}
}

func TestHub_WatchCollection_EmitsAfterEvent(t *testing.T) {
	source := newFakeSource()
	source.set("u1", models.Asset{ID: "a1", UserID: "u1", Name: "Camera"})
	hub := NewHub(source, testLogger())

	ch, cancel := hub.WatchCollection(context.Background(), "u1")
	defer cancel()
	recvList(t, ch)

	source.set("u1",
		models.Asset{ID: "a1", UserID: "u1", Name: "Camera"},
		models.Asset{ID: "a2", UserID: "u1", Name: "Tripod"},
	)
	hub.Notify(context.Background(), Event{Op: "INSERT", UserID: "u1", AssetID: "a2"})

	list := recvList(t, ch)
	if len(list) != 2 {
		t.Errorf("expected full current list after event, got %+v", list)
	}
}

func TestHub_WatchCollection_IgnoresOtherUsers(t *testing.T) {
	source := newFakeSource()
	hub := NewHub(source, testLogger())

	ch, cancel := hub.WatchCollection(context.Background(), "u1")
	defer cancel()
	recvList(t, ch)

	source.set("u2", models.Asset{ID: "b1", UserID: "u2", Name: "Bike"})
	hub.Notify(context.Background(), Event{Op: "INSERT", UserID: "u2", AssetID: "b1"})

	select {
	case list := <-ch:
		t.Errorf("expected no emission for another user's event, got %+v", list)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_WatchCollection_CoalescesToLatest(t *testing.T) {
	source := newFakeSource()
	hub := NewHub(source, testLogger())

	ch, cancel := hub.WatchCollection(context.Background(), "u1")
	defer cancel()
	// Do not read the initial snapshot: the two events below must replace
	// it so the slow consumer only ever sees current state.

	source.set("u1", models.Asset{ID: "a1", UserID: "u1"})
	hub.Notify(context.Background(), Event{Op: "INSERT", UserID: "u1", AssetID: "a1"})
	source.set("u1", models.Asset{ID: "a1", UserID: "u1"}, models.Asset{ID: "a2", UserID: "u1"})
	hub.Notify(context.Background(), Event{Op: "INSERT", UserID: "u1", AssetID: "a2"})

	list := recvList(t, ch)
	if len(list) != 2 {
		t.Errorf("expected only the latest list, got %+v", list)
	}
}

func TestHub_WatchCollection_CancelClosesChannel(t *testing.T) {
	source := newFakeSource()
	hub := NewHub(source, testLogger())

	ch, cancel := hub.WatchCollection(context.Background(), "u1")
	recvList(t, ch)

	cancel()
	cancel() // idempotent

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("expected closed channel after cancel")
		}
	case <-time.After(time.Second):
		t.Error("channel not closed after cancel")
	}

	// An event after cancel must not reach the closed channel.
	hub.Notify(context.Background(), Event{Op: "INSERT", UserID: "u1", AssetID: "a1"})
}

func TestHub_WatchCollection_ContextCancelEndsSubscription(t *testing.T) {
	source := newFakeSource()
	hub := NewHub(source, testLogger())

	ctx, stop := context.WithCancel(context.Background())
	ch, cancel := hub.WatchCollection(ctx, "u1")
	defer cancel()
	recvList(t, ch)

	stop()

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("expected closed channel after context cancel")
		}
	case <-time.After(time.Second):
		t.Error("channel not closed after context cancel")
	}
}

func TestHub_WatchDocument_InitialAndUpdate(t *testing.T) {
	source := newFakeSource()
	source.set("u1", models.Asset{ID: "a1", UserID: "u1", Name: "Camera"})
	hub := NewHub(source, testLogger())

	ch, cancel := hub.WatchDocument(context.Background(), "u1", "a1")
	defer cancel()

	update := recvDoc(t, ch)
	if update.Asset == nil || update.Asset.Name != "Camera" {
		t.Errorf("unexpected initial document: %+v", update)
	}

	source.set("u1", models.Asset{ID: "a1", UserID: "u1", Name: "Camera II"})
	hub.Notify(context.Background(), Event{Op: "UPDATE", UserID: "u1", AssetID: "a1"})

	update = recvDoc(t, ch)
	if update.Asset == nil || update.Asset.Name != "Camera II" {
		t.Errorf("unexpected updated document: %+v", update)
	}
}

func TestHub_WatchDocument_DeleteEmitsAbsent(t *testing.T) {
	source := newFakeSource()
	source.set("u1", models.Asset{ID: "a1", UserID: "u1", Name: "Camera"})
	hub := NewHub(source, testLogger())

	ch, cancel := hub.WatchDocument(context.Background(), "u1", "a1")
	defer cancel()
	recvDoc(t, ch)

	source.set("u1")
	hub.Notify(context.Background(), Event{Op: "DELETE", UserID: "u1", AssetID: "a1"})

	update := recvDoc(t, ch)
	if update.Asset != nil {
		t.Errorf("expected absent document after delete, got %+v", update.Asset)
	}
}

// stallSource blocks reads once armed, so a test can cancel a subscriber
// while a Notify re-read is in flight.
type stallSource struct {
	inner   Source
	mu      sync.Mutex
	armed   bool
	entered chan struct{}
	release chan struct{}
}

func newStallSource(inner Source) *stallSource {
	return &stallSource{
		inner:   inner,
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (s *stallSource) arm() {
	s.mu.Lock()
	s.armed = true
	s.mu.Unlock()
}

func (s *stallSource) stall() {
	s.mu.Lock()
	armed := s.armed
	s.armed = false
	s.mu.Unlock()
	if armed {
		close(s.entered)
		<-s.release
	}
}

func (s *stallSource) List(ctx context.Context, userID string) ([]models.Asset, error) {
	s.stall()
	return s.inner.List(ctx, userID)
}

func (s *stallSource) Get(ctx context.Context, userID, id string) (*models.Asset, error) {
	s.stall()
	return s.inner.Get(ctx, userID, id)
}

func TestHub_WatchCollection_CancelDuringNotify(t *testing.T) {
	inner := newFakeSource()
	inner.set("u1", models.Asset{ID: "a1", UserID: "u1"})
	source := newStallSource(inner)
	hub := NewHub(source, testLogger())

	ch, cancel := hub.WatchCollection(context.Background(), "u1")
	recvList(t, ch)

	// Stall the re-read inside Notify, cancel the subscriber mid-flight,
	// then let Notify finish. The late emission must be dropped, not sent
	// to the closed channel.
	source.arm()
	done := make(chan struct{})
	go func() {
		defer close(done)
		hub.Notify(context.Background(), Event{Op: "INSERT", UserID: "u1", AssetID: "a1"})
	}()

	<-source.entered
	cancel()
	close(source.release)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Notify did not return")
	}

	if _, ok := <-ch; ok {
		t.Error("expected closed channel after cancel")
	}
}

func TestHub_WatchDocument_CancelDuringNotify(t *testing.T) {
	inner := newFakeSource()
	inner.set("u1", models.Asset{ID: "a1", UserID: "u1"})
	source := newStallSource(inner)
	hub := NewHub(source, testLogger())

	ch, cancel := hub.WatchDocument(context.Background(), "u1", "a1")
	recvDoc(t, ch)

	source.arm()
	done := make(chan struct{})
	go func() {
		defer close(done)
		hub.Notify(context.Background(), Event{Op: "UPDATE", UserID: "u1", AssetID: "a1"})
	}()

	<-source.entered
	cancel()
	close(source.release)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Notify did not return")
	}

	if _, ok := <-ch; ok {
		t.Error("expected closed channel after cancel")
	}
}

func TestHub_WatchDocument_NeverExisted(t *testing.T) {
	source := newFakeSource()
	hub := NewHub(source, testLogger())

	ch, cancel := hub.WatchDocument(context.Background(), "u1", "ghost")
	defer cancel()

	update := recvDoc(t, ch)
	if update.Asset != nil {
		t.Errorf("expected absent document for unknown id, got %+v", update.Asset)
	}
}
