package poller

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"dropbot/internal/drops"
	"dropbot/internal/notify"
	"dropbot/internal/storage"
	logx "dropbot/pkg/logx"
)

type fakeFeed struct {
	mu       sync.Mutex
	snapshot []drops.Drop
	err      error
	calls    int

	// gate, when set, blocks Fetch until closed.
	gate    chan struct{}
	started chan struct{}
}

func (f *fakeFeed) Fetch(ctx context.Context) ([]drops.Drop, error) {
	f.mu.Lock()
	f.calls++
	gate := f.gate
	started := f.started
	snap := f.snapshot
	err := f.err
	f.mu.Unlock()

	if started != nil {
		close(started)
		f.mu.Lock()
		f.started = nil
		f.mu.Unlock()
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return snap, err
}

func (f *fakeFeed) fetchCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeSink struct {
	mu   sync.Mutex
	sent []notify.Payload
	err  error
}

func (s *fakeSink) Send(_ context.Context, p notify.Payload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, p)
	return nil
}

func (s *fakeSink) payloads() []notify.Payload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]notify.Payload(nil), s.sent...)
}

func openTestStore(t *testing.T) storage.Store {
	t.Helper()
	st, err := storage.Open(storage.Config{
		Path: filepath.Join(t.TempDir(), "dropbot.db"),
	}, logx.Nop())
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func apexSnapshot() []drops.Drop {
	return []drops.Drop{{
		GameDisplayName: "Apex Legends",
		Rewards:         []drops.Reward{{ID: "r1", Name: "Skin", ImageURL: "u"}},
		EndAt:           "2025-01-01T00:00:00Z",
	}}
}

func TestCycleNotifiesOnceAcrossRuns(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := openTestStore(t)
	if err := st.AddSubscription(ctx, "u1", "Apex Legends"); err != nil {
		t.Fatalf("AddSubscription: %v", err)
	}

	feed := &fakeFeed{snapshot: apexSnapshot()}
	sink := &fakeSink{}
	w := New(st, feed, sink, time.Hour, logx.Nop())

	w.RunCycle(ctx)

	got := sink.payloads()
	if len(got) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(got))
	}
	if got[0].Title != "Apex Legends" || got[0].Body != "Skin" || got[0].ImageRef != "u" {
		t.Fatalf("unexpected payload: %+v", got[0])
	}
	ok, err := st.IsNotified(ctx, "r1")
	if err != nil {
		t.Fatalf("IsNotified: %v", err)
	}
	if !ok {
		t.Fatal("expected r1 in ledger after first cycle")
	}

	// Identical second cycle must be silent.
	w.RunCycle(ctx)
	if n := len(sink.payloads()); n != 1 {
		t.Fatalf("expected no additional notifications, got %d total", n)
	}
}

func TestCycleFeedFailureIsNotFatal(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := openTestStore(t)
	if err := st.AddSubscription(ctx, "u1", "Apex Legends"); err != nil {
		t.Fatalf("AddSubscription: %v", err)
	}

	feed := &fakeFeed{err: drops.ErrFeedUnavailable}
	sink := &fakeSink{}
	w := New(st, feed, sink, time.Hour, logx.Nop())

	w.RunCycle(ctx)
	if len(sink.payloads()) != 0 {
		t.Fatal("no notifications expected on feed failure")
	}

	// Feed recovers; the next cycle picks the drop up.
	feed.mu.Lock()
	feed.err = nil
	feed.snapshot = apexSnapshot()
	feed.mu.Unlock()

	w.RunCycle(ctx)
	if len(sink.payloads()) != 1 {
		t.Fatalf("expected 1 notification after recovery, got %d", len(sink.payloads()))
	}
}

func TestCycleSendFailureDoesNotBlockOthers(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := openTestStore(t)
	for _, g := range []string{"Apex Legends", "Rust"} {
		if err := st.AddSubscription(ctx, "u1", g); err != nil {
			t.Fatalf("AddSubscription: %v", err)
		}
	}

	snapshot := append(apexSnapshot(), drops.Drop{
		GameDisplayName: "Rust",
		Rewards:         []drops.Reward{{ID: "r2", Name: "Hat", ImageURL: "u2"}},
		EndAt:           "2025-01-01T00:00:00Z",
	})
	feed := &fakeFeed{snapshot: snapshot}
	sink := &fakeSink{err: errors.New("flood control")}
	w := New(st, feed, sink, time.Hour, logx.Nop())

	w.RunCycle(ctx)

	// Both rewards were recorded even though every send failed: the
	// trade-off is a missed notification, never a duplicate.
	for _, id := range []string{"r1", "r2"} {
		ok, err := st.IsNotified(ctx, id)
		if err != nil {
			t.Fatalf("IsNotified(%s): %v", id, err)
		}
		if !ok {
			t.Fatalf("expected %s recorded despite send failure", id)
		}
	}

	// And they are not re-sent once the sink recovers.
	sink.mu.Lock()
	sink.err = nil
	sink.mu.Unlock()
	w.RunCycle(ctx)
	if len(sink.payloads()) != 0 {
		t.Fatalf("failed sends must not be retried, got %d", len(sink.payloads()))
	}
}

func TestCycleSkipsNoTrackedGames(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := openTestStore(t)

	feed := &fakeFeed{snapshot: apexSnapshot()}
	sink := &fakeSink{}
	w := New(st, feed, sink, time.Hour, logx.Nop())

	w.RunCycle(ctx)
	if feed.fetchCalls() != 0 {
		t.Fatal("cycle with no tracked games should not hit the feed")
	}
	if len(sink.payloads()) != 0 {
		t.Fatal("no notifications expected")
	}
}

func TestTickSingleFlight(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st := openTestStore(t)
	if err := st.AddSubscription(ctx, "u1", "Apex Legends"); err != nil {
		t.Fatalf("AddSubscription: %v", err)
	}

	gate := make(chan struct{})
	started := make(chan struct{})
	feed := &fakeFeed{snapshot: apexSnapshot(), gate: gate, started: started}
	sink := &fakeSink{}
	w := New(st, feed, sink, time.Hour, logx.Nop())
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop(context.Background())

	done := make(chan struct{})
	go func() {
		w.tick()
		close(done)
	}()
	<-started

	// A tick firing while the first cycle is blocked must be a no-op.
	w.tick()
	if got := feed.fetchCalls(); got != 1 {
		t.Fatalf("overlapping tick started a second cycle: %d fetches", got)
	}

	close(gate)
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("first cycle did not finish")
	}
	if len(sink.payloads()) != 1 {
		t.Fatalf("expected the blocked cycle to complete with 1 send, got %d", len(sink.payloads()))
	}
}
