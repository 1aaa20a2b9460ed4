package events

import (
	"encoding/json"
	"sync"
	"testing"
	"time"
)

func TestBus_PublishSubscribe(t *testing.T) {
	bus := New()
	received := make(chan ModeChangedEvent, 1)

	unsub := bus.Subscribe(func(e ModeChangedEvent) {
		received <- e
	})
	defer unsub()

	event := ModeChangedEvent{
		Mode:      "preview_one",
		Selected:  2,
		Previous:  "preview_all",
		Timestamp: "2026-01-27T10:30:00Z",
	}
	bus.Publish(event)

	select {
	case got := <-received:
		if got != event {
			t.Errorf("received %+v, want %+v", got, event)
		}
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestBus_MultipleSubscribers(t *testing.T) {
	bus := New()
	received1 := make(chan WorkerExitedEvent, 1)
	received2 := make(chan WorkerExitedEvent, 1)

	unsub1 := bus.Subscribe(func(e WorkerExitedEvent) { received1 <- e })
	defer unsub1()
	unsub2 := bus.Subscribe(func(e WorkerExitedEvent) { received2 <- e })
	defer unsub2()

	bus.Publish(WorkerExitedEvent{Worker: "render"})

	for i, ch := range []chan WorkerExitedEvent{received1, received2} {
		select {
		case e := <-ch:
			if e.Worker != "render" {
				t.Errorf("subscriber %d got worker %q", i, e.Worker)
			}
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d not notified", i)
		}
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := New()
	received := make(chan ModeChangedEvent, 1)

	unsub := bus.Subscribe(func(e ModeChangedEvent) { received <- e })
	unsub()

	bus.Publish(ModeChangedEvent{Mode: "idle"})

	select {
	case <-received:
		t.Error("received event after unsubscribe")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBus_TypeSafety(t *testing.T) {
	bus := New()
	modes := make(chan ModeChangedEvent, 1)
	exits := make(chan WorkerExitedEvent, 1)

	unsub1 := bus.Subscribe(func(e ModeChangedEvent) { modes <- e })
	defer unsub1()
	unsub2 := bus.Subscribe(func(e WorkerExitedEvent) { exits <- e })
	defer unsub2()

	bus.Publish(WorkerExitedEvent{Worker: "capture"})

	select {
	case <-exits:
	case <-time.After(time.Second):
		t.Fatal("WorkerExitedEvent not delivered")
	}
	select {
	case e := <-modes:
		t.Errorf("ModeChangedEvent subscriber received %+v", e)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBus_UnknownHandler(_ *testing.T) {
	bus := New()
	unsub := bus.Subscribe(func(string) {})
	unsub()
}

func TestBus_ThreadSafety(_ *testing.T) {
	bus := New()
	var wg sync.WaitGroup

	unsub := bus.Subscribe(func(LogEntryEvent) {})
	defer unsub()

	for i := range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range 100 {
				bus.Publish(LogEntryEvent{Message: "msg", Attributes: map[string]any{"i": i, "j": j}})
			}
		}()
	}
	wg.Wait()
}

func TestEventTypes(t *testing.T) {
	tests := []struct {
		event Event
		want  uint32
	}{
		{ModeChangedEvent{}, TypeModeChanged},
		{CommandRejectedEvent{}, TypeCommandRejected},
		{WorkerExitedEvent{}, TypeWorkerExited},
		{LogEntryEvent{}, TypeLogEntry},
	}
	seen := make(map[uint32]bool)
	for _, tt := range tests {
		if got := tt.event.Type(); got != tt.want {
			t.Errorf("%T.Type() = %d, want %d", tt.event, got, tt.want)
		}
		if seen[tt.want] {
			t.Errorf("duplicate event type %d", tt.want)
		}
		seen[tt.want] = true
	}
}

func TestEventJSONSerialization(t *testing.T) {
	data, err := json.Marshal(WorkerExitedEvent{Worker: "capture", Timestamp: "t"})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if _, ok := fields["error"]; ok {
		t.Error("empty error should be omitted")
	}
	if fields["worker"] != "capture" {
		t.Errorf("worker = %v, want capture", fields["worker"])
	}
}

func TestWorkerExitedEvent_Failed(t *testing.T) {
	if (WorkerExitedEvent{Worker: "render"}).Failed() {
		t.Error("clean exit reported as failure")
	}
	if !(WorkerExitedEvent{Worker: "render", Error: "boom"}).Failed() {
		t.Error("error exit not reported as failure")
	}
}

func TestSubscribeToChannel(t *testing.T) {
	bus := New()
	ch := make(chan any, 10)

	unsub := SubscribeToChannel[ModeChangedEvent](bus, ch)
	defer unsub()

	bus.Publish(ModeChangedEvent{Mode: "preview_all", Selected: -1})

	select {
	case received := <-ch:
		e, ok := received.(ModeChangedEvent)
		if !ok {
			t.Fatalf("Expected ModeChangedEvent, got %T", received)
		}
		if e.Mode != "preview_all" {
			t.Errorf("Mode = %q, want preview_all", e.Mode)
		}
	case <-time.After(time.Second):
		t.Fatal("event not forwarded to channel")
	}
}

func TestSubscribeToChannel_NonBlocking(_ *testing.T) {
	bus := New()
	ch := make(chan any) // No buffer

	unsub := SubscribeToChannel[WorkerExitedEvent](bus, ch)
	defer unsub()

	done := make(chan bool, 1)
	go func() {
		bus.Publish(WorkerExitedEvent{Worker: "capture"})
		done <- true
	}()

	<-done // Should complete without blocking
}
