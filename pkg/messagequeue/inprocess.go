package messagequeue

import (
	"context"
	"errors"
	"sync"
)

// ErrQueueFull is returned by InProcessQueue.Publish when the buffer is full.
var ErrQueueFull = errors.New("in-process queue is full")

// InProcessQueue is a buffered, channel-backed MessageQueue for single
// instance deployments without a broker. Messages are lost on restart.
type InProcessQueue struct {
	mu     sync.Mutex
	queues map[string]chan []byte
	size   int
	closed bool
}

// NewInProcessQueue creates queues buffering up to size messages each.
func NewInProcessQueue(size int) *InProcessQueue {
	return &InProcessQueue{queues: make(map[string]chan []byte), size: size}
}

func (q *InProcessQueue) queue(name string) (chan []byte, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.queueLocked(name)
}

func (q *InProcessQueue) queueLocked(name string) (chan []byte, error) {
	if q.closed {
		return nil, errors.New("in-process queue is closed")
	}
	ch, ok := q.queues[name]
	if !ok {
		ch = make(chan []byte, q.size)
		q.queues[name] = ch
	}
	return ch, nil
}

func (q *InProcessQueue) Publish(ctx context.Context, queueName string, body []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	ch, err := q.queueLocked(queueName)
	if err != nil {
		return err
	}
	select {
	case ch <- append([]byte(nil), body...):
		return nil
	default:
		return ErrQueueFull
	}
}

// Consume drains queueName until ctx is done. Handler errors are dropped
// after one retry.
func (q *InProcessQueue) Consume(ctx context.Context, queueName string, handler Handler) error {
	ch, err := q.queue(queueName)
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case body, ok := <-ch:
			if !ok {
				return nil
			}
			if err := handler(ctx, body); err != nil {
				_ = handler(ctx, body)
			}
		}
	}
}

func (q *InProcessQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	q.closed = true
	for _, ch := range q.queues {
		close(ch)
	}
	return nil
}
