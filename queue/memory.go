// Package queue provides the in-process queue transport and the polling
// runner that drives pipeline workers. Delivery is at-least-once: a leased
// message returns to the queue when its visibility window lapses without
// an ack.
package queue

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-order-ingest/core"
)

const defaultVisibilityTimeout = 30 * time.Second

type memoryEntry struct {
	message   core.QueueMessage
	visibleAt time.Time
	leased    bool
}

// MemoryQueue is an in-process queue with visibility timeouts, receive
// counts, and a dead-letter side channel.
type MemoryQueue struct {
	mu          sync.Mutex
	name        string
	visibility  time.Duration
	entries     []*memoryEntry
	deadLetters []core.QueueMessage
	Now         func() time.Time
}

type MemoryQueueOption func(*MemoryQueue)

func WithVisibilityTimeout(d time.Duration) MemoryQueueOption {
	return func(q *MemoryQueue) {
		if d > 0 {
			q.visibility = d
		}
	}
}

func NewMemoryQueue(name string, opts ...MemoryQueueOption) *MemoryQueue {
	queue := &MemoryQueue{
		name:       strings.TrimSpace(name),
		visibility: defaultVisibilityTimeout,
		Now: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(queue)
	}
	return queue
}

func (q *MemoryQueue) Name() string {
	if q == nil {
		return ""
	}
	return q.name
}

func (q *MemoryQueue) Enqueue(_ context.Context, body []byte) (string, error) {
	if q == nil {
		return "", fmt.Errorf("queue: memory queue is not configured")
	}
	if len(body) == 0 {
		return "", fmt.Errorf("queue: message body is required")
	}
	now := q.now()
	copied := make([]byte, len(body))
	copy(copied, body)
	message := core.QueueMessage{
		ID:         uuid.NewString(),
		Body:       copied,
		EnqueuedAt: now,
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries = append(q.entries, &memoryEntry{message: message, visibleAt: now})
	return message.ID, nil
}

// Dequeue leases the next visible message. Leases that lapse without an
// ack make the message visible again with its receive count intact.
func (q *MemoryQueue) Dequeue(_ context.Context) (core.QueueDelivery, error) {
	if q == nil {
		return nil, fmt.Errorf("queue: memory queue is not configured")
	}
	now := q.now()

	q.mu.Lock()
	defer q.mu.Unlock()
	for _, entry := range q.entries {
		if entry.visibleAt.After(now) {
			continue
		}
		entry.leased = true
		entry.visibleAt = now.Add(q.visibility)
		entry.message.ReceiveCount++
		return &memoryDelivery{queue: q, entry: entry, message: entry.message}, nil
	}
	return nil, core.ErrQueueEmpty
}

// DeadLetters returns the messages parked after a dead-letter nack.
func (q *MemoryQueue) DeadLetters() []core.QueueMessage {
	if q == nil {
		return nil
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]core.QueueMessage, len(q.deadLetters))
	copy(out, q.deadLetters)
	return out
}

// Len counts messages still on the queue, leased or not.
func (q *MemoryQueue) Len() int {
	if q == nil {
		return 0
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

func (q *MemoryQueue) ack(entry *memoryEntry) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.remove(entry) {
		return fmt.Errorf("queue: message %s is no longer leased", entry.message.ID)
	}
	return nil
}

func (q *MemoryQueue) nack(entry *memoryEntry, opts core.NackOptions) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if opts.DeadLetter {
		if q.remove(entry) {
			parked := entry.message
			parked.ReceiveCount = entry.message.ReceiveCount
			q.deadLetters = append(q.deadLetters, parked)
		}
		return nil
	}
	delay := opts.Delay
	if delay < 0 {
		delay = 0
	}
	entry.leased = false
	entry.visibleAt = q.now().Add(delay)
	return nil
}

func (q *MemoryQueue) remove(entry *memoryEntry) bool {
	for i, candidate := range q.entries {
		if candidate == entry {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			return true
		}
	}
	return false
}

func (q *MemoryQueue) now() time.Time {
	if q != nil && q.Now != nil {
		return q.Now().UTC()
	}
	return time.Now().UTC()
}

type memoryDelivery struct {
	queue   *MemoryQueue
	entry   *memoryEntry
	message core.QueueMessage
	settled bool
	mu      sync.Mutex
}

func (d *memoryDelivery) Message() core.QueueMessage {
	if d == nil {
		return core.QueueMessage{}
	}
	return d.message
}

func (d *memoryDelivery) Ack(context.Context) error {
	if d == nil || d.queue == nil {
		return fmt.Errorf("queue: delivery is not configured")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.settled {
		return fmt.Errorf("queue: message %s already settled", d.message.ID)
	}
	d.settled = true
	return d.queue.ack(d.entry)
}

func (d *memoryDelivery) Nack(_ context.Context, opts core.NackOptions) error {
	if d == nil || d.queue == nil {
		return fmt.Errorf("queue: delivery is not configured")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.settled {
		return fmt.Errorf("queue: message %s already settled", d.message.ID)
	}
	d.settled = true
	return d.queue.nack(d.entry, opts)
}

var (
	_ core.QueuePublisher = (*MemoryQueue)(nil)
	_ core.QueueDequeuer  = (*MemoryQueue)(nil)
	_ core.QueueDelivery  = (*memoryDelivery)(nil)
)
