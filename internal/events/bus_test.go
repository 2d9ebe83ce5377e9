package events

import "testing"

func TestBusFanOut(t *testing.T) {
	bus := NewBus()

	a, unsubA := bus.Subscribe(EventOrderSent, 1)
	b, unsubB := bus.Subscribe(EventOrderSent, 1)
	defer unsubA()
	defer unsubB()

	bus.Publish(EventOrderSent, 42)

	for name, ch := range map[string]<-chan any{"a": a, "b": b} {
		select {
		case v := <-ch:
			if v != 42 {
				t.Fatalf("subscriber %s got %v, expected 42", name, v)
			}
		default:
			t.Fatalf("subscriber %s received nothing", name)
		}
	}
}

func TestBusDropsWhenSubscriberFull(t *testing.T) {
	bus := NewBus()
	ch, unsub := bus.Subscribe(EventOrderQueued, 1)
	defer unsub()

	// Second publish must not block even though the buffer is full.
	bus.Publish(EventOrderQueued, 1)
	bus.Publish(EventOrderQueued, 2)

	if v := <-ch; v != 1 {
		t.Fatalf("got %v, expected first payload", v)
	}
	select {
	case v := <-ch:
		t.Fatalf("unexpected extra payload %v", v)
	default:
	}
}

func TestBusUnsubscribeClosesChannel(t *testing.T) {
	bus := NewBus()
	ch, unsub := bus.Subscribe(EventSessionLogon, 1)
	unsub()

	if _, ok := <-ch; ok {
		t.Fatal("channel should be closed after unsubscribe")
	}

	// Publishing to a topic with no subscribers is a no-op.
	bus.Publish(EventSessionLogon, "x")
}
