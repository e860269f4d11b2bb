package events

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"

	"go.uber.org/zap"

	"github.com/example/contacts-backend/internal/models"
	"github.com/example/contacts-backend/pkg/messagequeue"
)

// Sender delivers one email.
type Sender interface {
	Send(recipient, subject, body string) error
}

var receiptTemplate = template.Must(template.New("receipt").Parse(`<html><body>
<p>Thank you for your purchase.</p>
<p>{{.Credits}} credits were added to your account for {{.Amount}} {{.Currency}}.</p>
<p>Your balance is now {{.Balance}} credits.</p>
<p>Reference: {{.PaymentID}}</p>
</body></html>`))

// Consumer drains the events queue. It emails a receipt for every
// credits.purchased event and logs credit inconsistencies for operators.
// A nil mailer disables receipts.
type Consumer struct {
	mq     messagequeue.MessageQueue
	queue  string
	mailer Sender
	logger *zap.Logger
}

// NewConsumer creates a Consumer reading from queue.
func NewConsumer(mq messagequeue.MessageQueue, queue string, mailer Sender, logger *zap.Logger) *Consumer {
	return &Consumer{mq: mq, queue: queue, mailer: mailer, logger: logger}
}

// Run consumes until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.mq.Consume(ctx, c.queue, c.handle)
}

func (c *Consumer) handle(_ context.Context, body []byte) error {
	var evt models.Event
	if err := json.Unmarshal(body, &evt); err != nil {
		// Redelivering a malformed message cannot succeed.
		c.logger.Error("Dropping malformed event", zap.ByteString("body", body), zap.Error(err))
		return nil
	}

	switch evt.Type {
	case models.EventCreditsPurchased:
		return c.sendReceipt(evt)
	case models.EventCreditInconsistent:
		c.logger.Error("Contact created without consuming a credit",
			zap.String("user_id", evt.UserID), zap.Any("data", evt.Data))
	default:
		c.logger.Debug("Event received", zap.String("type", evt.Type), zap.String("user_id", evt.UserID))
	}
	return nil
}

func (c *Consumer) sendReceipt(evt models.Event) error {
	if c.mailer == nil || evt.Email == "" {
		return nil
	}
	var buf bytes.Buffer
	if err := receiptTemplate.Execute(&buf, map[string]interface{}{
		"Credits":   evt.Data["credits"],
		"Amount":    evt.Data["amount"],
		"Currency":  evt.Data["currency"],
		"Balance":   evt.Data["balance"],
		"PaymentID": evt.Data["payment_id"],
	}); err != nil {
		return fmt.Errorf("failed to render receipt: %w", err)
	}
	if err := c.mailer.Send(evt.Email, "Your credit purchase receipt", buf.String()); err != nil {
		c.logger.Warn("Failed to send receipt", zap.String("user_id", evt.UserID), zap.Error(err))
		return err
	}
	c.logger.Info("Receipt sent", zap.String("user_id", evt.UserID))
	return nil
}
