package events

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"jury_portal_backend/platform/logger"
)

type pingEvent struct {
	BaseEvent
}

func (pingEvent) EventName() string { return "test.ping" }

func TestPublishSyncRunsAllHandlersAndJoinsErrors(t *testing.T) {
	bus := NewInMemoryBus(logger.New("test"))
	var calls int32
	boom := errors.New("boom")

	bus.Subscribe("test.ping", HandlerFunc(func(ctx context.Context, e Event) error {
		atomic.AddInt32(&calls, 1)
		return boom
	}))
	bus.Subscribe("test.ping", HandlerFunc(func(ctx context.Context, e Event) error {
		atomic.AddInt32(&calls, 1)
		return nil
	}))

	err := bus.PublishSync(context.Background(), pingEvent{BaseEvent: NewBaseEvent()})
	if !errors.Is(err, boom) {
		t.Fatalf("expected joined handler error, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected both handlers to run, got %d", calls)
	}
}

func TestPublishRecoversHandlerPanics(t *testing.T) {
	bus := NewInMemoryBus(logger.New("test"))
	var delivered int32

	bus.Subscribe("test.ping", HandlerFunc(func(ctx context.Context, e Event) error {
		panic("handler exploded")
	}))
	bus.Subscribe("test.ping", HandlerFunc(func(ctx context.Context, e Event) error {
		atomic.AddInt32(&delivered, 1)
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	bus.Publish(ctx, pingEvent{BaseEvent: NewBaseEvent()})
	cancel()
	bus.Wait()

	if delivered != 1 {
		t.Fatalf("expected healthy handler to receive the event, got %d", delivered)
	}
}

func TestPublishWithoutSubscribersIsNoop(t *testing.T) {
	bus := NewInMemoryBus(nil)
	bus.Publish(context.Background(), pingEvent{BaseEvent: NewBaseEvent()})
	bus.Wait()
}
