package stream

import (
	"testing"
	"time"

	"LTPCoach/internal/domain/models"
)

func priceEvent(symbol string, price float64) models.StreamEvent {
	return models.NewPriceEvent(&models.Tick{Symbol: symbol, Price: price, Timestamp: time.Now().Unix()})
}

func newTestDispatcher(t *testing.T, queue int, onDrop func(models.StreamEvent)) *Dispatcher {
	t.Helper()
	d := NewDispatcher(Config{QueueSize: queue, HeartbeatInterval: time.Hour}, onDrop)
	t.Cleanup(d.Close)
	return d
}

func TestSymbolFiltering(t *testing.T) {
	d := newTestDispatcher(t, 8, nil)
	sub := d.Subscribe([]string{"aapl"})

	d.Publish(priceEvent("AAPL", 190))
	d.Publish(priceEvent("MSFT", 410))
	d.Publish(priceEvent("AAPL", 191))

	got := drain(sub)
	if len(got) != 2 {
		t.Fatalf("received %d events, want 2", len(got))
	}
	for _, ev := range got {
		if ev.Symbol != "AAPL" {
			t.Fatalf("received event for %s on an AAPL-only subscription", ev.Symbol)
		}
	}
}

func TestWildcardReceivesEverything(t *testing.T) {
	d := newTestDispatcher(t, 8, nil)
	sub := d.Subscribe(nil)

	d.Publish(priceEvent("AAPL", 190))
	d.Publish(priceEvent("MSFT", 410))

	if got := drain(sub); len(got) != 2 {
		t.Fatalf("received %d events, want 2", len(got))
	}
}

func TestSlowSubscriberDropsOldest(t *testing.T) {
	dropped := 0
	d := newTestDispatcher(t, 2, func(models.StreamEvent) { dropped++ })
	sub := d.Subscribe([]string{"AAPL"})

	for i := 1; i <= 4; i++ {
		d.Publish(priceEvent("AAPL", float64(i)))
	}

	got := drain(sub)
	if len(got) != 2 {
		t.Fatalf("queue held %d events, want 2", len(got))
	}
	if got[0].Price.Price != 3 || got[1].Price.Price != 4 {
		t.Fatalf("kept prices %.0f, %.0f; want the newest two (3, 4)", got[0].Price.Price, got[1].Price.Price)
	}
	if dropped != 2 {
		t.Fatalf("drop callback ran %d times, want 2", dropped)
	}
}

func TestPerSymbolOrdering(t *testing.T) {
	d := newTestDispatcher(t, 16, nil)
	sub := d.Subscribe([]string{"AAPL"})

	for i := 1; i <= 10; i++ {
		d.Publish(priceEvent("AAPL", float64(i)))
	}

	got := drain(sub)
	if len(got) != 10 {
		t.Fatalf("received %d events, want 10", len(got))
	}
	for i, ev := range got {
		if ev.Price.Price != float64(i+1) {
			t.Fatalf("event %d carries price %.0f, delivery reordered", i, ev.Price.Price)
		}
	}
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	d := newTestDispatcher(t, 8, nil)
	sub := d.Subscribe([]string{"AAPL"})

	d.Unsubscribe(sub)
	d.Unsubscribe(sub) // second call is a no-op
	d.Unsubscribe(nil)

	if _, open := <-sub.Events(); open {
		t.Fatal("channel still open after unsubscribe")
	}
	if n := d.SubscriberCount(); n != 0 {
		t.Fatalf("subscriber count = %d, want 0", n)
	}

	// Publishing after unsubscribe must not panic or deliver.
	d.Publish(priceEvent("AAPL", 1))
}

func TestHeartbeatReachesFilteredSubscribers(t *testing.T) {
	d := NewDispatcher(Config{QueueSize: 8, HeartbeatInterval: 10 * time.Millisecond}, nil)
	defer d.Close()
	sub := d.Subscribe([]string{"AAPL"})

	select {
	case ev := <-sub.Events():
		if ev.Type != models.EventHeartbeat {
			t.Fatalf("event type = %s, want heartbeat", ev.Type)
		}
	case <-time.After(time.Second):
		t.Fatal("no heartbeat within a second")
	}
}

func drain(sub *Subscription) []models.StreamEvent {
	var out []models.StreamEvent
	for {
		select {
		case ev := <-sub.Events():
			out = append(out, ev)
		default:
			return out
		}
	}
}
