package kafka

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsdesk/filetrack/internal/domain/ledger"
	"github.com/opsdesk/filetrack/internal/infrastructure/monitoring/logging"
	"github.com/opsdesk/filetrack/pkg/errors"
	"github.com/opsdesk/filetrack/pkg/types/common"
)

type capturingWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *capturingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *capturingWriter) Close() error {
	w.closed = true
	return nil
}

func TestProducer_PublishAlertRaised(t *testing.T) {
	w := &capturingWriter{}
	p := newProducerWithWriter(w, logging.NewNopLogger())
	now := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

	alert, err := ledger.NewAlert(common.NewID(), ledger.AlertOverdue, "File x is OVERDUE! Deadline was earlier", now)
	require.NoError(t, err)
	require.NoError(t, p.PublishAlertRaised(context.Background(), alert))

	require.Len(t, w.messages, 1)
	msg := w.messages[0]
	assert.Equal(t, TopicAlertRaised, msg.Topic)
	assert.Equal(t, alert.FileID.String(), string(msg.Key))

	var event AlertRaisedEvent
	require.NoError(t, json.Unmarshal(msg.Value, &event))
	assert.Equal(t, alert.ID.String(), event.AlertID)
	assert.Equal(t, "overdue", event.Kind)
	assert.True(t, event.CreatedAt.Equal(now))
}

func TestProducer_PublishEscalationRaised(t *testing.T) {
	w := &capturingWriter{}
	p := newProducerWithWriter(w, logging.NewNopLogger())

	esc, err := ledger.NewEscalation(common.NewID(), 1, time.Now().UTC())
	require.NoError(t, err)
	require.NoError(t, p.PublishEscalationRaised(context.Background(), esc))

	require.Len(t, w.messages, 1)
	var event EscalationRaisedEvent
	require.NoError(t, json.Unmarshal(w.messages[0].Value, &event))
	assert.Equal(t, 1, event.Level)
}

func TestProducer_WriteFailure(t *testing.T) {
	w := &capturingWriter{err: errors.New(errors.ErrCodeExternalService, "broker down")}
	p := newProducerWithWriter(w, logging.NewNopLogger())

	esc, err := ledger.NewEscalation(common.NewID(), 1, time.Now().UTC())
	require.NoError(t, err)
	err = p.PublishEscalationRaised(context.Background(), esc)
	assert.True(t, errors.IsCode(err, errors.ErrCodeExternalService))
}

func TestProducer_Close(t *testing.T) {
	w := &capturingWriter{}
	p := newProducerWithWriter(w, logging.NewNopLogger())

	require.NoError(t, p.Close())
	assert.True(t, w.closed)

	// Publishing after close fails, and closing twice is a no-op.
	esc, err := ledger.NewEscalation(common.NewID(), 1, time.Now().UTC())
	require.NoError(t, err)
	assert.Error(t, p.PublishEscalationRaised(context.Background(), esc))
	require.NoError(t, p.Close())
}
