// Package notifier publishes best-effort events to Kafka: user notifications
// and the workflow audit stream. Delivery is fire-and-forget; a broker outage
// must never fail a workflow.
package notifier

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

// NewWriter builds an async Kafka writer for one topic. Async mode means
// WriteMessages enqueues and returns; delivery errors surface in the logger
// via the completion callback.
func NewWriter(broker, topic string, logger *slog.Logger) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(broker),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		Async:        true,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logger.Error("Kafka delivery failed", "topic", topic, "count", len(messages), "error", err)
			}
		},
	}
}

// Notification is the payload pushed for one user.
type Notification struct {
	UserID  string    `json:"user_id"`
	Kind    string    `json:"kind"`
	Title   string    `json:"title"`
	Body    string    `json:"body"`
	Payload any       `json:"payload,omitempty"`
	SentAt  time.Time `json:"sent_at"`
}

// Notifier dispatches user notifications.
type Notifier struct {
	writer *kafka.Writer
	logger *slog.Logger
}

// NewNotifier wraps an existing writer.
func NewNotifier(writer *kafka.Writer, logger *slog.Logger) *Notifier {
	return &Notifier{writer: writer, logger: logger}
}

// Notify enqueues one notification. Errors are logged, never returned:
// notification delivery is best effort by contract.
func (n *Notifier) Notify(ctx context.Context, userID string, notification Notification) {
	notification.UserID = userID
	notification.SentAt = time.Now()

	value, err := json.Marshal(notification)
	if err != nil {
		n.logger.Error("Failed to marshal notification", "user_id", userID, "error", err)
		return
	}

	err = n.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(userID),
		Value: value,
	})
	if err != nil {
		n.logger.Error("Failed to enqueue notification", "user_id", userID, "error", err)
	}
}
