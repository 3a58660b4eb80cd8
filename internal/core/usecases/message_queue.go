package usecases

import (
	"sync"

	"github.com/samirrijal/mapview/internal/core/domain"
	"github.com/samirrijal/mapview/internal/pkg/metrics"
)

// MessageQueue is the ordered list of user-visible notifications.
type MessageQueue struct {
	mu        sync.Mutex
	messages  []domain.Message
	listeners []func([]domain.Message)
}

// NewMessageQueue creates an empty MessageQueue.
func NewMessageQueue() *MessageQueue {
	return &MessageQueue{}
}

// Push appends a message. Duplicates are kept.
func (q *MessageQueue) Push(kind domain.MessageKind, text, header string) {
	q.mu.Lock()
	q.messages = append(q.messages, domain.Message{Kind: kind, Text: text, Header: header})
	snapshot := q.snapshotLocked()
	listeners := q.listeners
	q.mu.Unlock()

	metrics.MessagesPushed.WithLabelValues(string(kind)).Inc()
	notify(listeners, snapshot)
}

// Warn pushes a warning without a header.
func (q *MessageQueue) Warn(text string) {
	q.Push(domain.MessageWarn, text, "")
}

// Error pushes an error with an optional header.
func (q *MessageQueue) Error(text, header string) {
	q.Push(domain.MessageError, text, header)
}

// Clear empties the queue.
func (q *MessageQueue) Clear() {
	q.mu.Lock()
	q.messages = nil
	listeners := q.listeners
	q.mu.Unlock()

	notify(listeners, []domain.Message{})
}

// Messages returns a copy of the queued messages in insertion order.
func (q *MessageQueue) Messages() []domain.Message {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.snapshotLocked()
}

// HasMessages reports whether the queue is non-empty.
func (q *MessageQueue) HasMessages() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.messages) > 0
}

// Subscribe registers fn to receive the message list after every change.
func (q *MessageQueue) Subscribe(fn func([]domain.Message)) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.listeners = append(q.listeners, fn)
}

func (q *MessageQueue) snapshotLocked() []domain.Message {
	out := make([]domain.Message, len(q.messages))
	copy(out, q.messages)
	return out
}

func notify[T any](listeners []func(T), v T) {
	for _, fn := range listeners {
		fn(v)
	}
}
