package eventbus

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestPublishDeliversToSubscribers(t *testing.T) {
	b := NewWithConfig(2, 10)
	defer b.Close(context.Background())

	var wg sync.WaitGroup
	wg.Add(2)
	got := make(chan Event, 2)
	handler := func(e Event) {
		got <- e
		wg.Done()
	}
	b.Subscribe(EventTypeStatus, handler)
	b.Subscribe(EventTypeStatus, handler)
	b.Subscribe(EventTypeCommand, func(Event) { t.Error("command handler called for status event") })

	b.Publish(Event{Type: EventTypeStatus, Data: map[string]interface{}{"status": "00020"}})
	wg.Wait()
	close(got)

	for e := range got {
		if e.String("status") != "00020" {
			t.Errorf("status = %q, want 00020", e.String("status"))
		}
		if e.ID == "" || e.Time.IsZero() {
			t.Errorf("event missing ID or time: %+v", e)
		}
	}
}

func TestHandlerPanicDoesNotKillWorker(t *testing.T) {
	b := NewWithConfig(1, 10)
	defer b.Close(context.Background())

	done := make(chan struct{})
	calls := 0
	b.Subscribe(EventTypeStatus, func(Event) {
		calls++
		if calls == 1 {
			panic("boom")
		}
		close(done)
	})

	b.Publish(Event{Type: EventTypeStatus})
	b.Publish(Event{Type: EventTypeStatus})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("second event not delivered after panic")
	}
}

func TestPublishAfterCloseIsDropped(t *testing.T) {
	b := NewWithConfig(1, 1)
	b.Subscribe(EventTypeStatus, func(Event) { t.Error("handler called after close") })
	b.Close(context.Background())

	b.Publish(Event{Type: EventTypeStatus})
	b.Close(context.Background())
}

func TestPublishFullQueueDoesNotBlock(t *testing.T) {
	b := NewWithConfig(1, 1)
	release := make(chan struct{})
	b.Subscribe(EventTypeStatus, func(Event) { <-release })

	finished := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			b.Publish(Event{Type: EventTypeStatus})
		}
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a full queue")
	}
	close(release)
	b.Close(context.Background())
}
