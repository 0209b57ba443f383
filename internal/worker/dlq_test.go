package worker

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUndecodableEntry_KeepsRawMessage(t *testing.T) {
	raw := `{"type":"cash_session.closed","payload":` // truncated

	var job Job
	require.Error(t, json.Unmarshal([]byte(raw), &job))
	_, err := json.Marshal(DLQEntry{Payload: json.RawMessage(raw)})
	require.Error(t, err, "invalid JSON cannot travel as a RawMessage")

	data, err := json.Marshal(undecodableEntry(QueueAuditoriaCaja, raw, "decode: unexpected end of JSON input"))
	require.NoError(t, err)

	var got DLQEntry
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, raw, got.RawPayload)
	assert.Empty(t, got.Payload)
	assert.Equal(t, QueueAuditoriaCaja, got.OriginalQueue)
	assert.Equal(t, "unknown", got.JobType)
	assert.False(t, got.FailedAt.IsZero())
}
