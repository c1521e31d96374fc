package activity

import (
	"context"
	"testing"
	"time"
)

func TestFeedDeliversToMatchingOrganizationOnly(t *testing.T) {
	feed := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	orgA := feed.Subscribe(ctx, "org-a")
	orgB := feed.Subscribe(ctx, "org-b")

	feed.Publish(Event{Kind: KindTaskCreated, OrganizationID: "org-a", Title: "Food drive"})

	select {
	case evt := <-orgA:
		if evt.Kind != KindTaskCreated || evt.Title != "Food drive" {
			t.Fatalf("unexpected event: %+v", evt)
		}
		if evt.Timestamp.IsZero() {
			t.Fatal("expected timestamp to be stamped")
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive event")
	}

	select {
	case evt := <-orgB:
		t.Fatalf("cross-tenant delivery: %+v", evt)
	default:
	}
}

func TestFeedUnsubscribesOnContextCancel(t *testing.T) {
	feed := New()
	ctx, cancel := context.WithCancel(context.Background())

	ch := feed.Subscribe(ctx, "org-a")
	cancel()

	select {
	case _, open := <-ch:
		if open {
			t.Fatal("expected channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("channel was not closed after cancel")
	}
}

func TestFeedDropsSlowSubscribers(t *testing.T) {
	feed := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_ = feed.Subscribe(ctx, "org-a")

	// Publishing past the buffer must never block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			feed.Publish(Event{Kind: KindTaskCreated, OrganizationID: "org-a"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on slow subscriber")
	}
}
