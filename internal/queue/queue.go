package queue

import (
	"fmt"
	"log"
	"sync"
	"time"
)

// Topic for recipient content-generation jobs. Payloads are recipient IDs.
const TopicGenerations = "campaign_generations"

// Queue interface
type Queue interface {
	Publish(topic string, payload int) error
	Subscribe(topic string, handler func(payload int) error) error
}

// InMemoryQueue is an in-process queue with retry, used when no broker
// is configured. Jobs do not survive a restart; the RabbitMQ queue does.
type InMemoryQueue struct {
	mu       sync.Mutex
	handlers map[string][]func(payload int) error
}

func NewInMemoryQueue() *InMemoryQueue {
	return &InMemoryQueue{
		handlers: make(map[string][]func(payload int) error),
	}
}

// JobPayload wraps a payload with retry info
type JobPayload struct {
	Payload    int
	RetryCount int
	MaxRetries int
}

// Publish sends a job to all subscribers
func (q *InMemoryQueue) Publish(topic string, payload int) error {
	q.mu.Lock()
	handlers := q.handlers[topic]
	q.mu.Unlock()

	if len(handlers) == 0 {
		return fmt.Errorf("no subscribers for topic %s", topic)
	}

	job := JobPayload{
		Payload:    payload,
		RetryCount: 0,
		MaxRetries: 3,
	}

	for _, handler := range handlers {
		go q.processJob(handler, job)
	}

	return nil
}

// processJob handles retries and errors
func (q *InMemoryQueue) processJob(handler func(payload int) error, job JobPayload) {
	for job.RetryCount <= job.MaxRetries {
		err := handler(job.Payload)
		if err == nil {
			return // ACK
		}

		job.RetryCount++
		log.Printf("Job failed (attempt %d/%d): %d, error: %v\n", job.RetryCount, job.MaxRetries, job.Payload, err)

		if job.RetryCount > job.MaxRetries {
			log.Printf("Job permanently failed after %d attempts: %d\n", job.MaxRetries, job.Payload)
			return // No requeue
		}

		// Backoff before retry
		time.Sleep(time.Duration(job.RetryCount*500) * time.Millisecond)
	}
}

// Subscribe adds a handler for a topic
func (q *InMemoryQueue) Subscribe(topic string, handler func(payload int) error) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.handlers[topic] = append(q.handlers[topic], handler)
	return nil
}

var _ Queue = (*InMemoryQueue)(nil)
