package core

import (
	"context"
	"testing"
	"time"
)

func TestHeaderServiceRejectsWhileSyncing(t *testing.T) {
	store := openTestStore(t)
	sm := NewStateManager()
	svc := NewHeaderService(store, sm, NewBus[HeaderUpdate]())

	if _, err := svc.Headers(0, 0); err == nil {
		t.Fatalf("expected rejection while syncing")
	}
}

func TestHeaderServiceReturnsHeadersOnceActive(t *testing.T) {
	store := openTestStore(t)
	sm := NewStateManager()
	if err := sm.Transition(StateActive); err != nil {
		t.Fatalf("Transition failed: %v", err)
	}
	var hdr BlockHeader
	hdr[0] = 9
	if err := store.PutHeader(0, hdr); err != nil {
		t.Fatalf("PutHeader failed: %v", err)
	}

	svc := NewHeaderService(store, sm, NewBus[HeaderUpdate]())
	headers, err := svc.Headers(0, 1)
	if err != nil {
		t.Fatalf("Headers failed: %v", err)
	}
	if len(headers) != 1 || headers[0][0] != 9 {
		t.Fatalf("unexpected headers: %v", headers)
	}
}

func TestHeaderServiceSubscribeUnsubscribesOnCancel(t *testing.T) {
	bus := NewBus[HeaderUpdate]()
	store := openTestStore(t)
	sm := NewStateManager()
	svc := NewHeaderService(store, sm, bus)

	ctx, cancel := context.WithCancel(context.Background())
	_, _ = svc.Subscribe(ctx)
	if bus.SubscriberCount() != 1 {
		t.Fatalf("expected 1 subscriber, got %d", bus.SubscriberCount())
	}
	cancel()
	time.Sleep(20 * time.Millisecond)
	if bus.SubscriberCount() != 0 {
		t.Fatalf("expected subscriber to be removed after cancel, got %d", bus.SubscriberCount())
	}
}
