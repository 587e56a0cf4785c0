package app

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/routemesh/sms-routing/internal/routing_service/domain"
)

func dlr(id, status string) domain.DLRRecord {
	return domain.DLRRecord{Data: domain.DLRPayload{ID: id, MessageStatus: status}}
}

func TestDedupeDLRRecords(t *testing.T) {
	records := []domain.DLRRecord{
		dlr("msg1", "DELIVRD"),
		dlr("msg1", "DELIVRD"),
		dlr("msg2", "UNDELIV"),
		dlr("msg1", "DELIVRD"),
	}

	unique := DedupeDLRRecords(records)

	assert.Len(t, unique, 2)
	// First-seen order is preserved.
	assert.Equal(t, "msg1", unique[0].Data.ID)
	assert.Equal(t, "msg2", unique[1].Data.ID)
}

func TestDedupeDLRRecordsEmpty(t *testing.T) {
	assert.Empty(t, DedupeDLRRecords(nil))
}

func TestDedupeDLRRecordsKeepsFirstOccurrence(t *testing.T) {
	records := []domain.DLRRecord{
		dlr("msg1", "ACCEPTD"),
		dlr("msg1", "DELIVRD"),
	}

	unique := DedupeDLRRecords(records)

	assert.Len(t, unique, 1)
	assert.Equal(t, "ACCEPTD", unique[0].Data.MessageStatus)
}
