package notifier

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/navid-fn/pulse/internal/model"
)

// AuditStream mirrors workflow audit records onto a Kafka topic so external
// observers can follow instance lifecycles without polling the store.
type AuditStream struct {
	writer *kafka.Writer
	logger *slog.Logger
}

// NewAuditStream wraps an existing writer.
func NewAuditStream(writer *kafka.Writer, logger *slog.Logger) *AuditStream {
	return &AuditStream{writer: writer, logger: logger}
}

// Publish enqueues one audit record, keyed by instance id so one instance's
// lifecycle stays in order within a partition. Best effort.
func (a *AuditStream) Publish(ctx context.Context, record model.AuditRecord) {
	value, err := json.Marshal(record)
	if err != nil {
		a.logger.Error("Failed to marshal audit record", "instance_id", record.InstanceID, "error", err)
		return
	}

	err = a.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(record.InstanceID),
		Value: value,
	})
	if err != nil {
		a.logger.Error("Failed to enqueue audit record", "instance_id", record.InstanceID, "error", err)
	}
}
