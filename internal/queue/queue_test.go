package queue_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/florawise/outreach-backend/internal/queue"
)

func TestPublishWithoutSubscribersFails(t *testing.T) {
	q := queue.NewInMemoryQueue()
	if err := q.Publish(queue.TopicGenerations, 1); err == nil {
		t.Fatal("expected publish without subscribers to fail")
	}
}

func TestPublishDeliversPayload(t *testing.T) {
	q := queue.NewInMemoryQueue()
	got := make(chan int, 1)

	err := q.Subscribe(queue.TopicGenerations, func(payload int) error {
		got <- payload
		return nil
	})
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	if err := q.Publish(queue.TopicGenerations, 42); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	select {
	case payload := <-got:
		if payload != 42 {
			t.Errorf("expected payload 42, got %d", payload)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("handler was never invoked")
	}
}

func TestFailedJobIsRetried(t *testing.T) {
	q := queue.NewInMemoryQueue()

	var mu sync.Mutex
	attempts := 0
	done := make(chan struct{})

	q.Subscribe(queue.TopicGenerations, func(payload int) error {
		mu.Lock()
		defer mu.Unlock()
		attempts++
		if attempts < 2 {
			return errors.New("transient failure")
		}
		close(done)
		return nil
	})

	if err := q.Publish(queue.TopicGenerations, 7); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("job was not retried to success")
	}

	mu.Lock()
	defer mu.Unlock()
	if attempts != 2 {
		t.Errorf("expected 2 attempts, got %d", attempts)
	}
}
