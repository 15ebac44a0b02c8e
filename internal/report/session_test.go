// internal/report/session_test.go
package report

import (
	"reflect"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// testDebounce keeps the tests fast while leaving room for slow runners.
const testDebounce = 20 * time.Millisecond

func newTestSession(t *testing.T, store *Store) (*Session, chan []int) {
	t.Helper()

	refreshes := make(chan []int, 8)
	s, err := NewSession(SessionConfig{
		Store:     store,
		OnRefresh: func(ids []int) { refreshes <- ids },
		Debounce:  testDebounce,
	})
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	t.Cleanup(s.Close)
	return s, refreshes
}

func recvRefresh(t *testing.T, ch chan []int) []int {
	t.Helper()
	select {
	case ids := <-ch:
		return ids
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for refresh")
		return nil
	}
}

func expectNoRefresh(t *testing.T, ch chan []int) {
	t.Helper()
	select {
	case ids := <-ch:
		t.Fatalf("expected no refresh, got one for %v", ids)
	case <-time.After(5 * testDebounce):
	}
}

func TestNewSession_RequiresStore(t *testing.T) {
	if _, err := NewSession(SessionConfig{}); err == nil {
		t.Error("expected error for missing store")
	}
}

func TestSession_DebounceCollapsesBursts(t *testing.T) {
	store := NewStore()
	s, refreshes := newTestSession(t, store)

	// A burst of edits must trigger exactly one refresh.
	s.Notify(SegmentEvent{Kind: SegmentAdded, SegmentID: 2, Label: "Tumor"})
	s.Notify(SegmentEvent{Kind: SegmentAdded, SegmentID: 1, Label: "Liver"})
	s.Notify(SegmentEvent{Kind: SegmentModified, SegmentID: 2, Label: "Tumor Core"})

	ids := recvRefresh(t, refreshes)
	if !reflect.DeepEqual(ids, []int{1, 2}) {
		t.Errorf("expected refresh with ids [1 2], got %v", ids)
	}
	expectNoRefresh(t, refreshes)

	if !reflect.DeepEqual(store.OrderedKeys(), []int{1, 2}) {
		t.Errorf("expected seeded store entries, got %v", store.OrderedKeys())
	}
	if s.Stale() {
		t.Error("expected session to be fresh after refresh")
	}
}

func TestSession_RemovalPrunesStore(t *testing.T) {
	store := NewStore()
	store.Set(1, "Shape", "Round")
	store.Set(3, "Shape", "Irregular")

	s, refreshes := newTestSession(t, store)

	s.Notify(SegmentEvent{Kind: SegmentAdded, SegmentID: 1, Label: "Liver"})
	s.Notify(SegmentEvent{Kind: SegmentAdded, SegmentID: 3, Label: "Tumor"})
	recvRefresh(t, refreshes)

	s.Notify(SegmentEvent{Kind: SegmentRemoved, SegmentID: 3})
	ids := recvRefresh(t, refreshes)

	if !reflect.DeepEqual(ids, []int{1}) {
		t.Fatalf("expected refresh with ids [1], got %v", ids)
	}
	if !reflect.DeepEqual(store.OrderedKeys(), []int{1}) {
		t.Fatalf("expected pruned store, got %v", store.OrderedKeys())
	}

	// The surviving entry keeps its selections.
	if e, _ := store.Get(1); e["Shape"] != "Round" {
		t.Errorf("expected selections preserved, got %v", e)
	}
}

func TestSession_SubscribeAndCancel(t *testing.T) {
	s, _ := newTestSession(t, NewStore())

	var got []SegmentEvent
	cancel := s.Subscribe(func(ev SegmentEvent) { got = append(got, ev) })

	ev := SegmentEvent{Kind: SegmentAdded, SegmentID: 7, Label: "Lesion"}
	s.Notify(ev)
	if len(got) != 1 || got[0] != ev {
		t.Fatalf("expected delivered event %+v, got %v", ev, got)
	}

	cancel()
	s.Notify(SegmentEvent{Kind: SegmentRemoved, SegmentID: 7})
	if len(got) != 1 {
		t.Errorf("expected no delivery after cancel, got %v", got)
	}
}

func TestSession_AutoUpdateOff(t *testing.T) {
	store := NewStore()
	s, refreshes := newTestSession(t, store)

	s.SetAutoUpdate(false)
	s.Notify(SegmentEvent{Kind: SegmentAdded, SegmentID: 4, Label: "Node"})

	// The store is still synced after the debounce, only the refresh is held.
	expectNoRefresh(t, refreshes)
	if !reflect.DeepEqual(store.OrderedKeys(), []int{4}) {
		t.Fatalf("expected store synced while auto update is off, got %v", store.OrderedKeys())
	}
	if !s.Stale() {
		t.Fatal("expected session to be stale while auto update is off")
	}

	// Turning auto update back on refreshes immediately.
	s.SetAutoUpdate(true)
	ids := recvRefresh(t, refreshes)
	if !reflect.DeepEqual(ids, []int{4}) {
		t.Errorf("expected refresh with ids [4], got %v", ids)
	}
	if s.Stale() {
		t.Error("expected session to be fresh again")
	}
}

func TestSession_Flush(t *testing.T) {
	store := NewStore()
	s, refreshes := newTestSession(t, store)

	s.Notify(SegmentEvent{Kind: SegmentAdded, SegmentID: 9, Label: "Cyst"})

	ids := s.Flush()
	if !reflect.DeepEqual(ids, []int{9}) {
		t.Fatalf("expected flush to return [9], got %v", ids)
	}
	if !reflect.DeepEqual(store.OrderedKeys(), []int{9}) {
		t.Fatalf("expected store synced by flush, got %v", store.OrderedKeys())
	}

	// The pending debounce was canceled, no refresh follows.
	expectNoRefresh(t, refreshes)
}

func TestSession_Close(t *testing.T) {
	store := NewStore()
	s, refreshes := newTestSession(t, store)

	s.Notify(SegmentEvent{Kind: SegmentAdded, SegmentID: 1, Label: "Liver"})
	s.Close()

	expectNoRefresh(t, refreshes)

	s.Notify(SegmentEvent{Kind: SegmentAdded, SegmentID: 2, Label: "Tumor"})
	if got := s.SegmentIDs(); !reflect.DeepEqual(got, []int{1}) {
		t.Errorf("expected notifications after close to be ignored, got %v", got)
	}

	// Subscribing after close is a no-op with a safe cancel.
	cancel := s.Subscribe(func(SegmentEvent) {})
	cancel()
}

func TestEventKind_String(t *testing.T) {
	tests := []struct {
		kind EventKind
		want string
	}{
		{SegmentAdded, "SegmentAdded"},
		{SegmentRemoved, "SegmentRemoved"},
		{SegmentModified, "SegmentModified"},
		{RepresentationModified, "RepresentationModified"},
	}

	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("expected %q, got %q", tt.want, got)
		}
	}
}
