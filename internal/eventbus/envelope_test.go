package eventbus_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medplatform/orders/internal/eventbus"
)

func TestNewEnvelopeStampsIDAndTimestamp(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	payload := map[string]string{"order_id": "ord_1"}

	env, err := eventbus.NewEnvelope("order.created", payload, now)
	require.NoError(t, err)

	assert.NotEmpty(t, env.MessageID)
	assert.Equal(t, "order.created", env.Type)
	assert.Equal(t, now.Format(time.RFC3339), env.Timestamp)
	assert.Equal(t, 0, env.Retries)

	var decoded map[string]string
	require.NoError(t, json.Unmarshal(env.Payload, &decoded))
	assert.Equal(t, payload, decoded)
}

func TestNewEnvelopeEachCallGetsDistinctMessageID(t *testing.T) {
	now := time.Now().UTC()
	first, err := eventbus.NewEnvelope("order.created", map[string]string{"a": "1"}, now)
	require.NoError(t, err)
	second, err := eventbus.NewEnvelope("order.created", map[string]string{"a": "1"}, now)
	require.NoError(t, err)

	assert.NotEqual(t, first.MessageID, second.MessageID)
}
