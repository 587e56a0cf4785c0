package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/routemesh/sms-routing/internal/routing_service/domain"
)

type stubMessage struct {
	subject string
	data    []byte
}

func (m stubMessage) Subject() string { return m.subject }
func (m stubMessage) Data() []byte    { return m.data }

func TestDLRConsumerHandleMessage(t *testing.T) {
	consumer := NewDLRConsumer(nil, time.Second, testLogger())

	consumer.handleMessage(stubMessage{subject: "dlr.raw.msg1", data: []byte(`{"data":{"id":"msg1","message_status":"DELIVRD"}}`)})
	consumer.handleMessage(stubMessage{subject: "dlr.raw.msg1", data: []byte(`{"data":{"id":"msg1","message_status":"DELIVRD"}}`)})
	consumer.handleMessage(stubMessage{subject: "dlr.raw.msg2", data: []byte(`{"data":{"id":"msg2","message_status":"UNDELIV"}}`)})

	consumer.mu.Lock()
	batch := append([]domain.DLRRecord(nil), consumer.batch...)
	consumer.mu.Unlock()

	require.Len(t, batch, 3)
	assert.False(t, batch[0].ReceivedAt.IsZero(), "missing receive time is stamped on ingest")

	consumer.flush(context.Background())

	consumer.mu.Lock()
	remaining := len(consumer.batch)
	consumer.mu.Unlock()
	assert.Zero(t, remaining)
}

func TestDLRConsumerDropsMalformedMessages(t *testing.T) {
	consumer := NewDLRConsumer(nil, time.Second, testLogger())

	consumer.handleMessage(stubMessage{subject: "dlr.raw.x", data: []byte(`not json`)})
	consumer.handleMessage(stubMessage{subject: "dlr.raw.x", data: []byte(`{"data":{"id":""}}`)})

	consumer.mu.Lock()
	defer consumer.mu.Unlock()
	assert.Empty(t, consumer.batch)
}
