package kafka

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/opsdesk/filetrack/internal/config"
	"github.com/opsdesk/filetrack/internal/domain/file"
	"github.com/opsdesk/filetrack/internal/domain/ledger"
	"github.com/opsdesk/filetrack/internal/infrastructure/monitoring/logging"
	"github.com/opsdesk/filetrack/pkg/errors"
)

// writerInterface abstracts kafka.Writer for testing.
type writerInterface interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes filetrack domain events.  It satisfies the publisher
// ports of both the intake service and the sweep service.
type Producer struct {
	writer writerInterface
	logger logging.Logger
	closed atomic.Bool
}

// NewProducer builds a producer for the configured brokers.  Events are
// written with RequireOne acks; a lost event is tolerable because the
// database row remains the source of truth.
func NewProducer(cfg config.KafkaConfig, logger logging.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: cfg.BatchTimeout,
		WriteTimeout: cfg.WriteTimeout,
		MaxAttempts:  cfg.MaxRetries + 1,
	}
	return &Producer{writer: writer, logger: logger.Named("kafka")}
}

// newProducerWithWriter wires a custom writer.  Used by tests.
func newProducerWithWriter(w writerInterface, logger logging.Logger) *Producer {
	return &Producer{writer: w, logger: logger}
}

// ─────────────────────────────────────────────────────────────────────────────
// Event payloads
// ─────────────────────────────────────────────────────────────────────────────

// FileReceivedEvent announces an accepted upload.
type FileReceivedEvent struct {
	FileID     string     `json:"file_id"`
	Filename   string     `json:"filename"`
	SectionID  string     `json:"section_id"`
	Priority   string     `json:"priority"`
	UploadTime time.Time  `json:"upload_time"`
	Deadline   *time.Time `json:"deadline,omitempty"`
}

// AlertRaisedEvent announces a new ledger alert.
type AlertRaisedEvent struct {
	AlertID   string    `json:"alert_id"`
	FileID    string    `json:"file_id"`
	Kind      string    `json:"kind"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// EscalationRaisedEvent announces a new escalation record.
type EscalationRaisedEvent struct {
	EscalationID string    `json:"escalation_id"`
	FileID       string    `json:"file_id"`
	Level        int       `json:"level"`
	TriggeredAt  time.Time `json:"triggered_at"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Publish methods
// ─────────────────────────────────────────────────────────────────────────────

// PublishFileReceived emits an intake event.
func (p *Producer) PublishFileReceived(ctx context.Context, f *file.File) error {
	return p.publish(ctx, TopicFileReceived, f.ID.String(), FileReceivedEvent{
		FileID:     f.ID.String(),
		Filename:   f.Filename,
		SectionID:  f.SectionID.String(),
		Priority:   string(f.Priority),
		UploadTime: f.UploadTime,
		Deadline:   f.SLADeadline,
	})
}

// PublishAlertRaised emits an alert event.
func (p *Producer) PublishAlertRaised(ctx context.Context, a *ledger.Alert) error {
	return p.publish(ctx, TopicAlertRaised, a.FileID.String(), AlertRaisedEvent{
		AlertID:   a.ID.String(),
		FileID:    a.FileID.String(),
		Kind:      string(a.Kind),
		Message:   a.Message,
		CreatedAt: a.CreatedAt,
	})
}

// PublishEscalationRaised emits an escalation event.
func (p *Producer) PublishEscalationRaised(ctx context.Context, e *ledger.Escalation) error {
	return p.publish(ctx, TopicEscalationRaised, e.FileID.String(), EscalationRaisedEvent{
		EscalationID: e.ID.String(),
		FileID:       e.FileID.String(),
		Level:        e.Level,
		TriggeredAt:  e.TriggeredAt,
	})
}

func (p *Producer) publish(ctx context.Context, topic, key string, payload any) error {
	if p.closed.Load() {
		return errors.New(errors.ErrCodeInternal, "kafka producer is closed")
	}
	value, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "encoding event")
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeExternalService, "writing kafka message")
	}
	return nil
}

// Close flushes and closes the writer.
func (p *Producer) Close() error {
	if p.closed.Swap(true) {
		return nil
	}
	return p.writer.Close()
}
