// Package events publishes domain events to the message queue and consumes
// them to send purchase receipts.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/example/contacts-backend/internal/models"
	"github.com/example/contacts-backend/pkg/messagequeue"
)

// QueuePublisher implements core.EventPublisher over a MessageQueue.
type QueuePublisher struct {
	mq     messagequeue.MessageQueue
	queue  string
	logger *zap.Logger
}

// NewQueuePublisher publishes every event to queue.
func NewQueuePublisher(mq messagequeue.MessageQueue, queue string, logger *zap.Logger) *QueuePublisher {
	return &QueuePublisher{mq: mq, queue: queue, logger: logger}
}

func (p *QueuePublisher) Publish(ctx context.Context, event models.Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event %s: %w", event.Type, err)
	}
	if err := p.mq.Publish(ctx, p.queue, body); err != nil {
		return fmt.Errorf("failed to publish event %s: %w", event.Type, err)
	}
	p.logger.Debug("Event published", zap.String("type", event.Type), zap.String("user_id", event.UserID))
	return nil
}
