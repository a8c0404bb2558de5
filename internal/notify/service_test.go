package notify

import (
	"context"
	"sync"
	"testing"

	kit "dropbot/internal/transport"
	logx "dropbot/pkg/logx"
)

type fakeAdapter struct {
	mu     sync.Mutex
	photos []string // photo URLs sent
	texts  []string
	err    error
}

func (f *fakeAdapter) Start(context.Context, chan<- kit.Update) error { return nil }
func (f *fakeAdapter) Stop(context.Context) error                     { return nil }

func (f *fakeAdapter) SendText(_ context.Context, _ kit.ChatTarget, text string, _ *kit.SendOptions) (kit.MessageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return kit.MessageRef{}, f.err
	}
	f.texts = append(f.texts, text)
	return kit.MessageRef{}, nil
}

func (f *fakeAdapter) SendPhoto(_ context.Context, _ kit.ChatTarget, photoURL, _ string, _ *kit.SendOptions) (kit.MessageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return kit.MessageRef{}, f.err
	}
	f.photos = append(f.photos, photoURL)
	return kit.MessageRef{}, nil
}

func (f *fakeAdapter) EditText(context.Context, kit.MessageRef, string, *kit.SendOptions) error {
	return nil
}

func TestSendUsesPhotoWhenImagePresent(t *testing.T) {
	t.Parallel()
	ad := &fakeAdapter{}
	s := New(ad, kit.ChatTarget{ChatID: 1}, 10, logx.Nop())

	err := s.Send(context.Background(), Payload{Title: "Rust", Body: "Hat", ImageRef: "http://img"})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(ad.photos) != 1 || ad.photos[0] != "http://img" {
		t.Fatalf("expected photo send, got photos=%v texts=%v", ad.photos, ad.texts)
	}
}

func TestSendFallsBackToText(t *testing.T) {
	t.Parallel()
	ad := &fakeAdapter{}
	s := New(ad, kit.ChatTarget{ChatID: 1}, 10, logx.Nop())

	err := s.Send(context.Background(), Payload{Title: "Rust", Body: "Hat"})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(ad.texts) != 1 || len(ad.photos) != 0 {
		t.Fatalf("expected text send, got photos=%v texts=%v", ad.photos, ad.texts)
	}
}

func TestSendHonorsContextCancel(t *testing.T) {
	t.Parallel()
	ad := &fakeAdapter{}
	// Burst of 1: the second Wait would block, so a cancelled context must
	// surface instead of hanging.
	s := New(ad, kit.ChatTarget{ChatID: 1}, 1, logx.Nop())

	if err := s.Send(context.Background(), Payload{Title: "a"}); err != nil {
		t.Fatalf("first send: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Send(ctx, Payload{Title: "b"}); err == nil {
		t.Fatal("expected error from cancelled context")
	}
}
