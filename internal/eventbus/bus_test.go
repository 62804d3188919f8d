package eventbus

import "testing"

func TestPublishFanout(t *testing.T) {
	t.Parallel()

	b := New()
	a, unsubA := b.Subscribe(2)
	c, unsubC := b.Subscribe(2)
	defer unsubA()
	defer unsubC()

	b.Publish(Event{Type: ShowLaunched, Data: 3})
	for _, ch := range []<-chan Event{a, c} {
		e := <-ch
		if e.Type != ShowLaunched || e.Data.(int) != 3 || e.Time.IsZero() {
			t.Fatalf("unexpected event %+v", e)
		}
	}
}

func TestSlowSubscriberDrops(t *testing.T) {
	t.Parallel()

	b := New()
	_, unsub := b.Subscribe(1)
	defer unsub()

	b.Publish(Event{Type: FireworkFired})
	b.Publish(Event{Type: FireworkFired})
	b.Publish(Event{Type: FireworkFired})
	if got := b.Dropped(); got != 2 {
		t.Fatalf("Dropped=%d want 2", got)
	}
}

func TestUnsubscribeClosesAndIsIdempotent(t *testing.T) {
	t.Parallel()

	b := New()
	ch, unsub := b.Subscribe(1)
	unsub()
	unsub()
	if _, ok := <-ch; ok {
		t.Fatalf("expected closed channel")
	}
	b.Publish(Event{Type: LootDropped})
}
