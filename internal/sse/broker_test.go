package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients")
	}
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}
	b.Unsubscribe(ch)
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after unsub")
	}
}

func TestPublishDelivery(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Publish(Event{Type: EventNotificationError, Data: map[string]string{"path": "a.md"}})

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.Contains(s, "event: notification.error") {
			t.Errorf("missing event type in %q", s)
		}
		if !strings.Contains(s, `"path":"a.md"`) {
			t.Errorf("missing data in %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestPublishRebuild_UpdatedThrottle(t *testing.T) {
	b := NewBroker(500 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishRebuild(false, map[string]string{"id": "r1"})
	// First finish should trigger pages.updated.
	b.PublishRebuild(true, map[string]string{"id": "r1"})
	// Second finish immediately should NOT trigger another pages.updated.
	b.PublishRebuild(true, map[string]string{"id": "r2"})

	// Drain and count events.
	time.Sleep(50 * time.Millisecond)
	var started, finished, updated int
loop:
	for {
		select {
		case msg := <-ch:
			s := string(msg)
			switch {
			case strings.Contains(s, "event: "+EventPagesUpdated):
				updated++
			case strings.Contains(s, "event: "+EventRebuildStarted):
				started++
			case strings.Contains(s, "event: "+EventRebuildFinished):
				finished++
			}
		default:
			break loop
		}
	}

	if started != 1 || finished != 2 {
		t.Errorf("started = %d, finished = %d, want 1 and 2", started, finished)
	}
	if updated != 1 {
		t.Errorf("updated events = %d, want 1 (throttled)", updated)
	}
}

func TestSSEHandler(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()

	// Start handler in background.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req = req.WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()

	// Give handler time to subscribe.
	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client from handler")
	}

	b.PublishRebuild(false, map[string]string{"id": "x"})
	time.Sleep(50 * time.Millisecond)

	// Cancel context to disconnect.
	cancel()
	<-done

	body := w.Body.String()
	if !strings.Contains(body, "event: pages.rebuild.started") {
		t.Errorf("handler output missing event: %q", body)
	}

	// Client should be cleaned up.
	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 0 {
		t.Errorf("client not cleaned up after disconnect")
	}
}

func TestPublishDropsOnFullBuffer(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// Fill buffer (capacity 64) and then one more should not block.
	for i := 0; i < 70; i++ {
		b.Publish(Event{Type: "test", Data: map[string]string{"i": "x"}})
	}
	// If we reach here without deadlock, the test passes.
}

func TestCloseClosesSubscribersAndStopsOperations(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}

	b.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected subscriber channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for channel close")
	}

	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after close")
	}

	// Should be safe no-op after close.
	b.Publish(Event{Type: EventNotificationError, Data: map[string]string{"message": "x"}})
	b.PublishRebuild(true, nil)
}

func TestSubscribeFrom_ReplaysNewerEvents(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()

	b.Publish(Event{Type: EventNotificationError, Data: map[string]string{"message": "one"}})
	b.Publish(Event{Type: EventNotificationError, Data: map[string]string{"message": "two"}})

	ch := b.SubscribeFrom(1)
	defer b.Unsubscribe(ch)

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.HasPrefix(s, "id: 2\n") || !strings.Contains(s, `"message":"two"`) {
			t.Errorf("replayed %q, want event 2", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for replay")
	}
	select {
	case msg := <-ch:
		t.Errorf("unexpected extra message %q", msg)
	default:
	}
}

func TestSubscribe_DoesNotReplay(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()

	b.Publish(Event{Type: EventNotificationError, Data: map[string]string{"message": "old"}})
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	if n := b.ClientCount(); n != 1 {
		t.Fatalf("clients = %d", n)
	}
	select {
	case msg := <-ch:
		t.Errorf("fresh subscriber got %q", msg)
	default:
	}
}

func TestSSEHandler_LastEventID(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	b.PublishRebuild(false, map[string]string{"id": "r1"})
	b.PublishRebuild(false, map[string]string{"id": "r2"})

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/events", nil).WithContext(ctx)
	req.Header.Set("Last-Event-ID", "1")
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()
	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	body := w.Body.String()
	if strings.Contains(body, `"id":"r1"`) || !strings.Contains(body, `"id":"r2"`) {
		t.Errorf("body = %q, want only the event after id 1", body)
	}
}
