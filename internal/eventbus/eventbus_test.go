package eventbus

import "testing"

func TestBusPublishSubscribe(t *testing.T) {
	bus := New()
	ch := bus.Subscribe()
	bus.Publish(StageEvent{Stage: "optimize"})
	v := <-ch
	ev, ok := v.(StageEvent)
	if !ok || ev.Stage != "optimize" {
		t.Fatalf("expected optimize stage event, got %v", v)
	}
	bus.Unsubscribe(ch)
}

func TestBusNonBlockingPublish(t *testing.T) {
	bus := New()
	ch := bus.Subscribe()
	for i := 0; i < 20; i++ {
		bus.Publish(StageEvent{Stage: "simulate"})
	}
	// Buffer is 8; the rest must have been dropped without blocking.
	n := 0
	for len(ch) > 0 {
		<-ch
		n++
	}
	if n != 8 {
		t.Fatalf("expected 8 buffered events, got %d", n)
	}
	bus.Close()
}

func TestBusClose(t *testing.T) {
	bus := New()
	ch := bus.Subscribe()
	bus.Close()
	if _, ok := <-ch; ok {
		t.Fatalf("expected closed channel")
	}
	bus.Publish(StageEvent{Stage: "late"})
}
