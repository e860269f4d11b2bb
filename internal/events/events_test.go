package events

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/example/contacts-backend/internal/models"
	"github.com/example/contacts-backend/pkg/messagequeue"
)

type recordingSender struct {
	mu   sync.Mutex
	sent []string
	done chan struct{}
}

func (s *recordingSender) Send(recipient, subject, body string) error {
	s.mu.Lock()
	s.sent = append(s.sent, recipient+"|"+subject+"|"+body)
	s.mu.Unlock()
	s.done <- struct{}{}
	return nil
}

func TestPurchaseEventSendsReceipt(t *testing.T) {
	mq := messagequeue.NewInProcessQueue(8)
	defer mq.Close()
	sender := &recordingSender{done: make(chan struct{}, 1)}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = NewConsumer(mq, "events", sender, zap.NewNop()).Run(ctx) }()

	pub := NewQueuePublisher(mq, "events", zap.NewNop())
	if err := pub.Publish(ctx, models.Event{Type: models.EventContactCreated, UserID: "u1", Email: "u1@example.com"}); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if err := pub.Publish(ctx, models.Event{
		Type:   models.EventCreditsPurchased,
		UserID: "u1",
		Email:  "u1@example.com",
		Data:   map[string]interface{}{"credits": 5, "amount": "250.00", "currency": "eur", "balance": 5, "payment_id": "pi_1"},
	}); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	select {
	case <-sender.done:
	case <-time.After(2 * time.Second):
		t.Fatal("receipt was not sent")
	}
	sender.mu.Lock()
	defer sender.mu.Unlock()
	if len(sender.sent) != 1 {
		t.Fatalf("sent = %d, want 1", len(sender.sent))
	}
	msg := sender.sent[0]
	if !strings.HasPrefix(msg, "u1@example.com|") || !strings.Contains(msg, "5 credits") || !strings.Contains(msg, "250.00 eur") || !strings.Contains(msg, "pi_1") {
		t.Errorf("receipt = %q", msg)
	}
}

func TestHandleIgnoresMalformedAndMailless(t *testing.T) {
	c := NewConsumer(nil, "events", nil, zap.NewNop())
	if err := c.handle(context.Background(), []byte("{not json")); err != nil {
		t.Errorf("handle(malformed) error = %v, want nil", err)
	}
	if err := c.handle(context.Background(), []byte(`{"type":"credits.purchased","user_id":"u1","email":"a@b.co"}`)); err != nil {
		t.Errorf("handle() without mailer error = %v, want nil", err)
	}
}
